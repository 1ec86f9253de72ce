// Package notify dispatches downstream notifications about newly published
// comments. Notifications go to every registered sender (Discord, Telegram);
// a single sender failure does not prevent delivery to the rest.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forecastlabs/commentd/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier formats comment events and dispatches them to one or more Senders.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NewComment notifies all senders about a freshly enriched comment. The bet
// is optional and adds trading context to the message when present.
func (n *Notifier) NewComment(ctx context.Context, market domain.Market, comment domain.Comment, creator domain.User, bet *domain.Bet) error {
	title := fmt.Sprintf("New comment on %q", market.Question)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (@%s) commented on %s\n", creator.Name, creator.Username, market.Slug)
	if bet != nil {
		fmt.Fprintf(&b, "after betting %.0f on %s\n", bet.Amount, bet.Outcome)
	}
	fmt.Fprintf(&b, "comment id: %s", comment.ID)

	return n.dispatch(ctx, title, b.String())
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
