package cli

import (
	"github.com/spf13/cobra"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/notify"
	"marketpulse/internal/store"
)

func newNotificationsCmd(app *App) *cobra.Command {
	notificationsCmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Manage archived notifications",
		Long: `Notifications raised during watch sessions are kept in a bounded
in-memory ring and, when the archive is enabled, persisted to SQLite.
These commands operate on the archive.`,
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List archived notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := app.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			items, err := archive.ListNotifications(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(items)
			}
			notify.NewTerminalNotifier(out.writer, out.colorEnabled).RenderAll(items)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum notifications to list")

	readCmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := app.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			if err := archive.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewOutput(cmd).Success("Marked %s as read", args[0])
			return nil
		},
	}

	readAllCmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := app.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			if err := archive.MarkAllRead(cmd.Context()); err != nil {
				return err
			}
			NewOutput(cmd).Success("Marked all notifications as read")
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all archived notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := app.openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			if err := archive.Clear(cmd.Context()); err != nil {
				return err
			}
			NewOutput(cmd).Success("Cleared notifications")
			return nil
		},
	}

	notificationsCmd.AddCommand(listCmd, readCmd, readAllCmd, clearCmd)
	return notificationsCmd
}

// openArchive opens the SQLite notification archive.
func (app *App) openArchive() (store.NotificationStore, error) {
	if !app.Config.Notifications.ArchiveEnabled {
		return nil, apperrors.Wrap(apperrors.ErrConfigInvalid,
			"notification archive disabled; set notifications.archive_enabled = true")
	}
	return store.NewSQLiteStore(app.Config.Notifications.ArchivePath)
}
