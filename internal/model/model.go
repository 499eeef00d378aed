package model

import "time"

type User struct {
	ID           string
	Name         string
	Phone        string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Event is a booked appointment. Start holds the scheduled date and clock
// time as one instant in the salon's time zone.
type Event struct {
	ID               string
	Title            string
	UserID           string
	ProfessionalName string
	Start            time.Time
	End              *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Date returns the start date as YYYY-MM-DD.
func (e *Event) Date() string { return e.Start.Format(DateLayout) }

// Hour returns the start clock time as HH:mm.
func (e *Event) Hour() string { return e.Start.Format(TimeLayout) }

// Actor is the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

type OutboxMessage struct {
	ID            string
	Recipient     string
	Subject       string
	HTML          string
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
}

// EventWithOwner is an event joined with the user who booked it.
type EventWithOwner struct {
	Event
	Owner User
}

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}
