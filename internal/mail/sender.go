// Package mail turns borrow events into reader notices.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tazhibayda/library-service/internal/log"
	"github.com/tazhibayda/library-service/internal/queue"
	"go.uber.org/zap"
)

// Sender delivers one notice. LogSender is the only implementation for now; an SMTP
// sender needs the user's address, which events do not carry yet.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	log.WithDD(ctx, nil).Info("notice",
		zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	return nil
}

type Notifier struct {
	sender Sender
}

func NewNotifier(s Sender) *Notifier {
	if s == nil {
		s = LogSender{}
	}
	return &Notifier{sender: s}
}

// Handle is a queue.Consumer handler. Unknown keys are acknowledged and ignored.
func (n *Notifier) Handle(ctx context.Context, env queue.Envelope) error {
	switch env.Key {
	case queue.KeyBorrowCreated:
		var ev queue.BorrowCreated
		if err := json.Unmarshal(env.Body, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", env.Key, err)
		}
		return n.sender.Send(ctx, ev.UserID, "Book borrowed",
			fmt.Sprintf("You borrowed book %s. Please return it by %s.",
				ev.BookID, ev.DueDate.Format(time.DateOnly)))
	case queue.KeyBorrowReturned:
		var ev queue.BorrowReturned
		if err := json.Unmarshal(env.Body, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", env.Key, err)
		}
		return n.sender.Send(ctx, ev.UserID, "Book returned",
			fmt.Sprintf("Book %s was returned on %s. Thank you.",
				ev.BookID, ev.ReturnedAt.Format(time.DateOnly)))
	}
	return nil
}
