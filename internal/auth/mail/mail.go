// Package mail sends account emails. Delivery is a capability: a Mailer
// either hands back a Receipt naming the accepted message or fails.
package mail

import (
	"context"
	"errors"
)

// ErrNoReceipt is returned when a provider accepted a send without naming
// the message.
var ErrNoReceipt = errors.New("mail: provider returned no message id")

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Receipt identifies a message the provider accepted.
type Receipt struct {
	ID string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, msg Message) (Receipt, error)

func (f MailerFunc) Send(ctx context.Context, msg Message) (Receipt, error) { return f(ctx, msg) }
