package config

import (
	"os"
	"path/filepath"
)

const configTemplate = `# marketpulse configuration

[channels]
# Steady-state cold-pull cadence per channel. Failed fetches back off
# up to roughly twice these values.
prices_interval = "30s"
defi_interval = "5m"
nft_interval = "10m"
gamefi_interval = "5m"
dao_interval = "10m"
market_movers_interval = "1m"
fear_greed_interval = "10m"
# Symbols the notification derivator watches. Empty = all symbols
# present in the price snapshot.
watchlist = []

[notifications]
price_move_threshold = 0.05
ring_capacity = 50
archive_enabled = false
# archive_path = "~/.config/marketpulse/notifications.db"

[sources]
market_api_url = "https://api.coingecko.com/api/v3"
defi_api_url = "https://api.llama.fi"
sentiment_url = "https://api.alternative.me/fng/"
binance_stream = true
# movers_feed_url = "wss://example.com/movers"
request_timeout = "15s"

[log]
level = "info"
console = true
file = true
`

// createTemplateConfig writes a commented template config file so the
// user has something to edit on first run.
func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	return os.WriteFile(path, []byte(configTemplate), 0644)
}
