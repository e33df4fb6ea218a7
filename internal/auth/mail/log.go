package mail

import (
	"context"

	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/google/uuid"
)

// LogMailer writes messages to the request logger instead of delivering
// them. Used in development and tests.
type LogMailer struct {
	From string
}

func (m LogMailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	id := uuid.NewString()
	slogx.FromContext(ctx).InfoContext(ctx, "mail_sent",
		"message_id", id,
		"from", m.From,
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return Receipt{ID: id}, nil
}
