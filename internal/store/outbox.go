package store

import (
	"context"
	"time"

	"salon-booking/internal/model"
)

func (s *Store) EnqueueOutbox(ctx context.Context, m *model.OutboxMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_outbox (id, recipient, subject, html, attempts, last_error, next_attempt_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.Recipient, m.Subject, m.HTML, m.Attempts, m.LastError, m.NextAttemptAt,
	)
	if err != nil {
		return mapErr("enqueue outbox", "message", err)
	}
	return nil
}

// DueOutbox returns unsent messages whose next attempt is due and that have
// not exhausted maxAttempts, oldest first.
func (s *Store) DueOutbox(ctx context.Context, now time.Time, maxAttempts, limit int) ([]model.OutboxMessage, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, recipient, subject, html, attempts, last_error, next_attempt_at, sent_at, created_at
		 FROM notification_outbox
		 WHERE sent_at IS NULL AND next_attempt_at <= $1 AND attempts < $2
		 ORDER BY next_attempt_at
		 LIMIT $3`, now, maxAttempts, limit)
	if err != nil {
		return nil, mapErr("due outbox", "message", err)
	}
	defer rows.Close()

	var out []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Recipient, &m.Subject, &m.HTML, &m.Attempts, &m.LastError,
			&m.NextAttemptAt, &m.SentAt, &m.CreatedAt); err != nil {
			return nil, mapErr("due outbox", "message", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("due outbox", "message", err)
	}
	return out, nil
}

func (s *Store) MarkOutboxSent(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notification_outbox SET sent_at=$1, attempts=attempts+1, last_error='' WHERE id=$2`, at, id)
	if err != nil {
		return mapErr("mark outbox sent", "message", err)
	}
	return nil
}

func (s *Store) RescheduleOutbox(ctx context.Context, id string, attempts int, lastErr string, next time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notification_outbox SET attempts=$1, last_error=$2, next_attempt_at=$3 WHERE id=$4`,
		attempts, lastErr, next, id)
	if err != nil {
		return mapErr("reschedule outbox", "message", err)
	}
	return nil
}
