package cli

import (
	"github.com/spf13/cobra"

	"marketpulse/internal/hub"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Fetch all channels once and report their health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runStatus(cmd)
		},
	}
}

func (app *App) runStatus(cmd *cobra.Command) error {
	out := NewOutput(cmd)

	// One-shot pass: no notification center, no schedulers to keep.
	ids := make([]hub.ChannelID, 0, len(hub.AllChannels()))
	for _, id := range hub.AllChannels() {
		if id != hub.ChannelNotifications {
			ids = append(ids, id)
		}
	}

	channels, err := app.buildChannels(nil, ids...)
	if err != nil {
		return err
	}
	h, err := hub.New(channels, app.Logger)
	if err != nil {
		return err
	}
	defer h.Shutdown()

	for _, id := range ids {
		// Failures land in channel health; keep fetching the rest.
		_, _ = h.Refresh(cmd.Context(), id)
	}

	healths := h.HealthAll()
	if out.IsJSON() {
		return out.JSON(healths)
	}

	out.Header("Channel Health")
	out.Printf("%-16s %-8s %-20s %s\n", "CHANNEL", "STATUS", "LAST SUCCESS", "FAILURES")
	for _, health := range healths {
		status := string(health.Status)
		switch health.Status {
		case hub.HealthFresh:
			status = out.Colored(ColorGreen, status)
		case hub.HealthStale:
			status = out.Colored(ColorYellow, status)
		case hub.HealthError:
			status = out.Colored(ColorRed, status)
		}

		lastSuccess := "never"
		if !health.LastSuccess.IsZero() {
			lastSuccess = health.LastSuccess.Format("2006-01-02 15:04:05")
		}
		out.Printf("%-16s %-8s %-20s %d\n",
			health.Channel, status, lastSuccess, health.ConsecutiveFailures)
	}
	return nil
}
