package notify

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"salon-booking/internal/model"
)

type OutboxStore interface {
	DueOutbox(ctx context.Context, now time.Time, maxAttempts, limit int) ([]model.OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id string, at time.Time) error
	RescheduleOutbox(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error
}

// Retrier re-sends queued messages on a cron schedule.
type Retrier struct {
	Store       OutboxStore
	Sender      MailSender
	MaxAttempts int
	BatchSize   int
	Timeout     time.Duration

	now func() time.Time
}

// Start schedules RunOnce with spec (standard cron or "@every 1m").
func (r *Retrier) Start(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout())
		defer cancel()
		if n, err := r.RunOnce(ctx); err != nil {
			log.Printf("outbox retry: %v", err)
		} else if n > 0 {
			log.Printf("outbox retry: %d message(s) delivered", n)
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// RunOnce attempts every due message once and returns how many were delivered.
func (r *Retrier) RunOnce(ctx context.Context) (int, error) {
	now := r.clock()
	batch := r.BatchSize
	if batch <= 0 {
		batch = 50
	}
	due, err := r.Store.DueOutbox(ctx, now, r.MaxAttempts, batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range due {
		err := r.Sender.Send(ctx, Message{To: m.Recipient, Subject: m.Subject, HTML: m.HTML})
		if err == nil {
			if err := r.Store.MarkOutboxSent(ctx, m.ID, r.clock()); err != nil {
				return sent, err
			}
			sent++
			continue
		}

		attempts := m.Attempts + 1
		if attempts >= r.MaxAttempts {
			log.Printf("outbox retry: giving up on %s to %s after %d attempts: %v", m.ID, m.Recipient, attempts, err)
		}
		if err := r.Store.RescheduleOutbox(ctx, m.ID, attempts, err.Error(), r.clock().Add(backoff(attempts))); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (r *Retrier) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Retrier) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return 2 * time.Minute
}
