package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"salon-booking/internal/model"
)

const eventColumns = `e.id, e.title, e.user_id, e.professional_name, e.start_date, e.start_time, e.end_date, e.created_at, e.updated_at`

const ownerColumns = `u.id, u.name, u.phone, u.email, u.is_admin, u.created_at, u.updated_at`

// splitStart breaks an instant into the DATE and TIME columns.
func splitStart(t time.Time) (time.Time, pgtype.Time) {
	y, m, d := t.Date()
	us := int64(t.Hour())*int64(time.Hour/time.Microsecond) +
		int64(t.Minute())*int64(time.Minute/time.Microsecond) +
		int64(t.Second())*int64(time.Second/time.Microsecond)
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), pgtype.Time{Microseconds: us, Valid: true}
}

func (s *Store) joinStart(date time.Time, clock pgtype.Time) time.Time {
	us := clock.Microseconds
	h := us / int64(time.Hour/time.Microsecond)
	us -= h * int64(time.Hour/time.Microsecond)
	m := us / int64(time.Minute/time.Microsecond)
	us -= m * int64(time.Minute/time.Microsecond)
	sec := us / int64(time.Second/time.Microsecond)
	y, mo, d := date.Date()
	return time.Date(y, mo, d, int(h), int(m), int(sec), 0, s.loc)
}

func (s *Store) scanEvent(row pgx.Row, extra ...any) (*model.Event, error) {
	var (
		e     model.Event
		date  time.Time
		clock pgtype.Time
		end   *time.Time
	)
	dest := append([]any{&e.ID, &e.Title, &e.UserID, &e.ProfessionalName, &date, &clock, &end, &e.CreatedAt, &e.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Start = s.joinStart(date, clock)
	if end != nil {
		y, m, d := end.Date()
		t := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
		e.End = &t
	}
	return &e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapErr("create event", "event", err)
	}
	defer tx.Rollback(ctx)

	date, clock := splitStart(e.Start)
	err = tx.QueryRow(ctx,
		`INSERT INTO events (id, title, user_id, professional_name, start_date, start_time, end_date)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at, updated_at`,
		e.ID, e.Title, e.UserID, e.ProfessionalName, date, clock, e.End,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return mapErr("create event", "event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapErr("create event", "event", err)
	}
	return nil
}

func (s *Store) EventByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := s.scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id))
	if err != nil {
		return nil, mapErr("event by id", "event", err)
	}
	return e, nil
}

func (s *Store) UpdateEvent(ctx context.Context, e *model.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapErr("update event", "event", err)
	}
	defer tx.Rollback(ctx)

	date, clock := splitStart(e.Start)
	err = tx.QueryRow(ctx,
		`UPDATE events
		 SET title=$1, professional_name=$2, start_date=$3, start_time=$4, end_date=$5, updated_at=NOW()
		 WHERE id=$6
		 RETURNING updated_at`,
		e.Title, e.ProfessionalName, date, clock, e.End, e.ID,
	).Scan(&e.UpdatedAt)
	if err != nil {
		return mapErr("update event", "event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapErr("update event", "event", err)
	}
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return mapErr("delete event", "event", err)
	}
	if tag.RowsAffected() == 0 {
		return mapErr("delete event", "event", pgx.ErrNoRows)
	}
	return nil
}

// EventsByProfessionalOn lists events booked with professional on day's calendar date.
func (s *Store) EventsByProfessionalOn(ctx context.Context, professional string, day time.Time) ([]model.Event, error) {
	date, _ := splitStart(day)
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events e
		 WHERE e.professional_name = $1 AND e.start_date = $2
		 ORDER BY e.start_time`, professional, date)
	if err != nil {
		return nil, mapErr("events by professional", "event", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := s.scanEvent(rows)
		if err != nil {
			return nil, mapErr("events by professional", "event", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("events by professional", "event", err)
	}
	return out, nil
}

func (s *Store) EventsByUser(ctx context.Context, userID string) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events e
		 WHERE e.user_id = $1
		 ORDER BY e.start_date, e.start_time`, userID)
	if err != nil {
		return nil, mapErr("events by user", "event", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := s.scanEvent(rows)
		if err != nil {
			return nil, mapErr("events by user", "event", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("events by user", "event", err)
	}
	return out, nil
}

func (s *Store) EventsWithOwners(ctx context.Context) ([]model.EventWithOwner, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+`, `+ownerColumns+`
		 FROM events e JOIN users u ON u.id = e.user_id
		 ORDER BY e.start_date, e.start_time`)
	if err != nil {
		return nil, mapErr("events with owners", "event", err)
	}
	defer rows.Close()

	var out []model.EventWithOwner
	for rows.Next() {
		ew, err := s.scanEventWithOwner(rows)
		if err != nil {
			return nil, mapErr("events with owners", "event", err)
		}
		out = append(out, *ew)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("events with owners", "event", err)
	}
	return out, nil
}

func (s *Store) EventWithOwner(ctx context.Context, id string) (*model.EventWithOwner, error) {
	ew, err := s.scanEventWithOwner(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+`, `+ownerColumns+`
		 FROM events e JOIN users u ON u.id = e.user_id
		 WHERE e.id = $1`, id))
	if err != nil {
		return nil, mapErr("event with owner", "event", err)
	}
	return ew, nil
}

func (s *Store) scanEventWithOwner(row pgx.Row) (*model.EventWithOwner, error) {
	var u model.User
	e, err := s.scanEvent(row, &u.ID, &u.Name, &u.Phone, &u.Email, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &model.EventWithOwner{Event: *e, Owner: u}, nil
}
