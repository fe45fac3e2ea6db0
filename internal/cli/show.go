package cli

import (
	"github.com/spf13/cobra"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/hub"
)

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <channel>",
		Short: "Fetch and display one channel",
		Long: `Show performs a single cold pull of the given channel and renders the
resulting snapshot. Valid channels: prices, defi, nft, gamefi, dao,
market-movers, fear-greed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runShow(cmd, args[0])
		},
	}
}

func (app *App) runShow(cmd *cobra.Command, arg string) error {
	out := NewOutput(cmd)

	id := hub.ChannelID(arg)
	if !id.Valid() {
		return apperrors.Wrapf(apperrors.ErrUnknownChannel, "channel %q", arg)
	}
	if id == hub.ChannelNotifications {
		return apperrors.Wrap(apperrors.ErrConfigInvalid,
			"use 'marketpulse notifications list' for notifications")
	}

	channels, err := app.buildChannels(nil, id)
	if err != nil {
		return err
	}
	h, err := hub.New(channels, app.Logger)
	if err != nil {
		return err
	}
	defer h.Shutdown()

	snap, err := h.Refresh(cmd.Context(), id)
	if err != nil {
		return err
	}

	if out.IsJSON() {
		return out.JSON(snap)
	}
	renderSnapshot(out, snap)
	return nil
}
