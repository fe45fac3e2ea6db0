package cli

import (
	"marketpulse/internal/hub"
	"marketpulse/internal/notify"
	"marketpulse/pkg/utils"
)

// renderSnapshot writes a human-readable view of a channel snapshot.
func renderSnapshot(out *Output, snap hub.Snapshot) {
	if snap.IsEmpty() {
		out.Warning("%s: no data yet", snap.Channel)
		return
	}

	switch data := snap.Data.(type) {
	case hub.PriceBook:
		out.Header("Prices")
		out.Printf("%-8s %14s %10s %14s\n", "SYMBOL", "PRICE", "24H", "MARKET CAP")
		for _, p := range data.Prices {
			change := utils.FormatPercent(p.Change24h)
			if p.Change24h >= 0 {
				change = out.Colored(ColorGreen, change)
			} else {
				change = out.Colored(ColorRed, change)
			}
			out.Printf("%-8s %14s %19s %14s\n",
				p.Symbol, utils.FormatUSD(p.Price), change, utils.FormatCompact(p.MarketCap))
		}

	case hub.ProtocolSet:
		out.Header("DeFi Protocols")
		out.Printf("%-24s %-12s %-14s %12s %8s\n", "NAME", "CHAIN", "CATEGORY", "TVL", "24H")
		for _, p := range data.Protocols {
			out.Printf("%-24s %-12s %-14s %12s %8s\n",
				p.Name, p.Chain, p.Category, utils.FormatCompact(p.TVL), utils.FormatPercent(p.Change24h))
		}

	case hub.CollectionSet:
		out.Header("NFT Collections")
		out.Printf("%-28s %10s %12s %8s %8s\n", "NAME", "FLOOR", "VOLUME 24H", "24H", "OWNERS")
		for _, c := range data.Collections {
			out.Printf("%-28s %10.2f %12.1f %8s %8d\n",
				c.Name, c.FloorPrice, c.Volume24h, utils.FormatPercent(c.Change24h), c.Owners)
		}

	case hub.ProjectSet:
		out.Header("GameFi Projects")
		out.Printf("%-24s %-8s %14s %14s %8s\n", "NAME", "SYMBOL", "PRICE", "MARKET CAP", "24H")
		for _, p := range data.Projects {
			out.Printf("%-24s %-8s %14s %14s %8s\n",
				p.Name, p.Symbol, utils.FormatUSD(p.TokenPrice),
				utils.FormatCompact(p.MarketCap), utils.FormatPercent(p.Change24h))
		}

	case hub.DAOSet:
		out.Header("DAO Tokens")
		out.Printf("%-24s %-8s %14s %14s %8s\n", "NAME", "SYMBOL", "PRICE", "MARKET CAP", "24H")
		for _, d := range data.DAOs {
			out.Printf("%-24s %-8s %14s %14s %8s\n",
				d.Name, d.Symbol, utils.FormatUSD(d.TokenPrice),
				utils.FormatCompact(d.MarketCap), utils.FormatPercent(d.Change24h))
		}

	case hub.MoverBoard:
		out.Header("Market Movers")
		out.Printf("%-8s %-20s %14s %10s %8s\n", "SYMBOL", "NAME", "PRICE", "CHANGE", "SIDE")
		for _, m := range data.Movers {
			out.Printf("%-8s %-20s %14s %10s %8s\n",
				m.Symbol, m.Name, utils.FormatUSD(m.Price),
				utils.FormatPercent(m.ChangePercent), string(m.Direction))
		}

	case hub.SentimentGauge:
		out.Header("Fear & Greed Index")
		out.Printf("%d (%s) as of %s\n",
			data.Index.Value, data.Index.Classification,
			data.Index.UpdatedAt.Format("2006-01-02 15:04"))

	case hub.NotificationList:
		notifier := notify.NewTerminalNotifier(out.writer, out.colorEnabled)
		notifier.RenderAll(data.Items)
	}
}

// renderEvent writes a one-line summary of a snapshot mutation.
func renderEvent(out *Output, ev hub.Event) {
	out.Printf("%s %s v%d (%s) %s\n",
		ev.Snapshot.UpdatedAt.Format("15:04:05"),
		out.Colored(ColorCyan, string(ev.Channel)),
		ev.Snapshot.Version,
		ev.Origin,
		summarize(ev.Snapshot))
}

// summarize reduces a snapshot payload to a short cardinality label.
func summarize(snap hub.Snapshot) string {
	switch data := snap.Data.(type) {
	case hub.PriceBook:
		return utils.FormatCount(len(data.Prices), "asset")
	case hub.ProtocolSet:
		return utils.FormatCount(len(data.Protocols), "protocol")
	case hub.CollectionSet:
		return utils.FormatCount(len(data.Collections), "collection")
	case hub.ProjectSet:
		return utils.FormatCount(len(data.Projects), "project")
	case hub.DAOSet:
		return utils.FormatCount(len(data.DAOs), "dao")
	case hub.MoverBoard:
		return utils.FormatCount(len(data.Movers), "mover")
	case hub.SentimentGauge:
		return data.Index.Classification
	case hub.NotificationList:
		return utils.FormatCount(len(data.Items), "notification")
	}
	return ""
}
