// Package booking owns the appointment lifecycle: availability lookups,
// creation, edits and cancellations, and the notifications they trigger.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
	"salon-booking/internal/notify"
)

// Repository is the persistence the lifecycle needs. Implementations return
// apperr NotFound/Conflict errors; anything else is treated as a storage failure.
type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	EventByID(ctx context.Context, id string) (*model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	EventsByProfessionalOn(ctx context.Context, professional string, day time.Time) ([]model.Event, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	Admins(ctx context.Context) ([]model.User, error)
}

type Notifier interface {
	Send(ctx context.Context, n notify.Notice) error
}

type Options struct {
	// Location is the salon's time zone; dates and clock times are read in it.
	Location     *time.Location
	ServiceTitle string
	Now          func() time.Time
}

type Manager struct {
	repo     Repository
	notifier Notifier
	loc      *time.Location
	title    string
	now      func() time.Time
}

func NewManager(repo Repository, notifier Notifier, opts Options) *Manager {
	m := &Manager{
		repo:     repo,
		notifier: notifier,
		loc:      opts.Location,
		title:    opts.ServiceTitle,
		now:      opts.Now,
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.title == "" {
		m.title = "Serviço de Manicure"
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) Location() *time.Location { return m.loc }

var hourLayouts = []string{"15:04", "15:04:05"}

// ParseDay parses a YYYY-MM-DD date at midnight in the salon location.
func (m *Manager) ParseDay(date string) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(date), m.loc)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

// ParseSlot combines a YYYY-MM-DD date and an HH:mm clock time into one instant.
func (m *Manager) ParseSlot(date, hour string) (time.Time, error) {
	day, err := m.ParseDay(date)
	if err != nil {
		return time.Time{}, err
	}
	hour = strings.TrimSpace(hour)
	for _, layout := range hourLayouts {
		if c, err := time.Parse(layout, hour); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, m.loc), nil
		}
	}
	return time.Time{}, apperr.Validation("invalid time, expected HH:mm")
}

// CanCancel reports whether an appointment on eventDate may still be cancelled
// by its owner on day today. Only calendar days are compared: same-day
// cancellation is refused, tomorrow and later are allowed.
func CanCancel(eventDate, today time.Time) bool {
	ev := day(eventDate)
	t := day(today)
	return ev.After(t) || ev.Equal(t.AddDate(0, 0, 1))
}

// CanCancelNow applies CanCancel with today's date in the salon location.
func (m *Manager) CanCancelNow(e *model.Event) bool {
	return CanCancel(e.Start.In(m.loc), m.now().In(m.loc))
}

func day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func slotOf(e *model.Event) notify.Slot {
	return notify.Slot{Title: e.Title, Professional: e.ProfessionalName, Start: e.Start}
}

func recipientOf(u *model.User) notify.Recipient {
	return notify.Recipient{Name: u.Name, Email: u.Email}
}

// storage passes typed errors through and marks everything else as a storage failure.
func storage(op string, err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Storage(op, err)
}
