package handler

import (
	"time"

	"salon-booking/internal/model"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

func iso(t time.Time) string { return t.UTC().Format(isoLayout) }

type userJSON struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

func toUser(u *model.User) userJSON {
	return userJSON{ID: u.ID, Nome: u.Name, Telefone: u.Phone, Email: u.Email, IsAdmin: u.IsAdmin}
}

func toUsers(us []model.User) []userJSON {
	out := make([]userJSON, 0, len(us))
	for i := range us {
		out = append(out, toUser(&us[i]))
	}
	return out
}

// eventJSON is the stored shape: start is the calendar date, hora the clock time.
type eventJSON struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Start            string  `json:"start"`
	Hora             string  `json:"hora"`
	End              *string `json:"end"`
	ProfessionalName string  `json:"professionalName"`
	UserID           string  `json:"userId"`
	CanCancel        *bool   `json:"canCancel,omitempty"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

func toEvent(e *model.Event) eventJSON {
	out := eventJSON{
		ID:               e.ID,
		Title:            e.Title,
		Start:            e.Date(),
		Hora:             e.Hour(),
		ProfessionalName: e.ProfessionalName,
		UserID:           e.UserID,
		CreatedAt:        iso(e.CreatedAt),
		UpdatedAt:        iso(e.UpdatedAt),
	}
	if e.End != nil {
		end := e.End.Format(model.DateLayout)
		out.End = &end
	}
	return out
}

func toEvents(es []model.Event) []eventJSON {
	out := make([]eventJSON, 0, len(es))
	for i := range es {
		out = append(out, toEvent(&es[i]))
	}
	return out
}

type ownerJSON struct {
	ID       string `json:"id"`
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
}

// listedEventJSON is one row of the events feed: start is a full ISO instant.
type listedEventJSON struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Start            string    `json:"start"`
	Hora             string    `json:"hora"`
	ProfessionalName string    `json:"professionalName"`
	User             ownerJSON `json:"user"`
}

func toListedEvent(ew *model.EventWithOwner) listedEventJSON {
	return listedEventJSON{
		ID:               ew.ID,
		Title:            ew.Title,
		Start:            iso(ew.Start),
		Hora:             ew.Hour(),
		ProfessionalName: ew.ProfessionalName,
		User:             ownerJSON{ID: ew.Owner.ID, Nome: ew.Owner.Name, Telefone: ew.Owner.Phone, Email: ew.Owner.Email},
	}
}

type eventDetailsJSON struct {
	eventJSON
	User ownerJSON `json:"user"`
}

type calendarProps struct {
	User     string `json:"user"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
}

// calendarEventJSON is the FullCalendar event object.
type calendarEventJSON struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           *string       `json:"end"`
	ExtendedProps calendarProps `json:"extendedProps"`
}

func toCalendarEvent(ew *model.EventWithOwner) calendarEventJSON {
	out := calendarEventJSON{
		ID:    ew.ID,
		Title: ew.Title,
		Start: iso(ew.Start),
		ExtendedProps: calendarProps{
			User:     ew.Owner.Name,
			Telefone: ew.Owner.Phone,
			Email:    ew.Owner.Email,
		},
	}
	if ew.End != nil {
		end := iso(*ew.End)
		out.End = &end
	}
	return out
}
