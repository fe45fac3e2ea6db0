package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marketpulse/internal/hub"
	"marketpulse/internal/notify"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [channel...]",
		Short: "Run the hub and stream snapshot updates",
		Long: `Watch starts the hub, keeps the selected channels fresh, and prints
one line per snapshot update until interrupted. With no arguments every
channel is watched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runWatch(cmd, args)
		},
	}
}

func (app *App) runWatch(cmd *cobra.Command, args []string) error {
	out := NewOutput(cmd)

	ids, err := parseChannelArgs(args)
	if err != nil {
		return err
	}

	center, cleanup, err := app.buildCenter()
	if err != nil {
		return err
	}
	defer cleanup()

	channels, err := app.buildChannels(center, ids...)
	if err != nil {
		return err
	}

	h, err := hub.New(channels, app.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Printf("Initializing %d channels...\n", len(channels))
	if err := h.Initialize(ctx); err != nil {
		return err
	}

	derivator := notify.NewDerivator(
		center,
		app.Config.Notifications.PriceMoveThreshold,
		app.Config.Channels.Watchlist,
		app.Logger,
	)
	if err := derivator.Attach(h); err != nil {
		return err
	}
	defer derivator.Detach(h)

	for _, c := range channels {
		if _, err := h.Subscribe(c.ID, func(ev hub.Event) {
			renderEvent(out, ev)
		}); err != nil {
			return err
		}
	}

	for _, health := range h.HealthAll() {
		if health.Status == hub.HealthError {
			out.Warning("%s: initial fetch failed, retrying in background", health.Channel)
		}
	}
	out.Success("Watching. Press Ctrl+C to stop.")

	<-ctx.Done()

	out.Println()
	out.Printf("Shutting down...\n")
	h.Shutdown()
	return nil
}
