package notify

import (
	"fmt"
	"io"

	"marketpulse/internal/models"
)

// TerminalNotifier renders notifications to a terminal writer. It is
// the CLI's consumer of the notification center.
type TerminalNotifier struct {
	out   io.Writer
	color bool
}

// NewTerminalNotifier creates a terminal notifier.
func NewTerminalNotifier(out io.Writer, color bool) *TerminalNotifier {
	return &TerminalNotifier{out: out, color: color}
}

// Render writes one notification.
func (t *TerminalNotifier) Render(n models.Notification) {
	marker := "•"
	if !n.Read {
		marker = "●"
	}

	label := string(n.Type)
	if t.color {
		label = t.colorize(n.Type, label)
	}

	fmt.Fprintf(t.out, "%s [%s] %s: %s (%s)\n",
		marker, label, n.Title, n.Message, n.CreatedAt.Format("15:04:05"))
}

// RenderAll writes a list of notifications, newest first.
func (t *TerminalNotifier) RenderAll(items []models.Notification) {
	if len(items) == 0 {
		fmt.Fprintln(t.out, "No notifications.")
		return
	}
	for _, n := range items {
		t.Render(n)
	}
}

func (t *TerminalNotifier) colorize(typ models.NotificationType, s string) string {
	switch typ {
	case models.NotificationPriceAlert:
		return "\033[33m" + s + "\033[0m"
	case models.NotificationPortfolioChange:
		return "\033[36m" + s + "\033[0m"
	case models.NotificationAchievement:
		return "\033[32m" + s + "\033[0m"
	default:
		return s
	}
}
