package mail

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authd/pkg/slogx"
	"github.com/sethvargo/go-retry"
)

// RetryMailer retries transient send failures with exponential backoff.
// A send that succeeds without a receipt is not retried.
type RetryMailer struct {
	Next    Mailer
	Retries uint64
	Base    time.Duration
}

func (m RetryMailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	base := m.Base
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(m.Retries, retry.NewExponential(base))

	var receipt Receipt
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		r, err := m.Next.Send(ctx, msg)
		switch {
		case err == nil && r.ID == "":
			return ErrNoReceipt
		case err == nil:
			receipt = r
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			slogx.FromContext(ctx).DebugContext(ctx, "mail_send_retry", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}
