package notify

import "time"

type Template string

const (
	EventUpdatedTemplate          Template = "event-updated"
	EventCancelledByAdminTemplate Template = "event-cancelled-by-admin"
	EventCancelledByUserTemplate  Template = "event-cancelled-by-user"
	AdminCancellationTemplate     Template = "admin-notified-of-cancellation"
	PasswordResetTemplate         Template = "password-reset"
)

// Notice is one of the typed payloads below. The set is closed: only this
// package implements it.
type Notice interface {
	Template() Template
	Recipient() Recipient
	subject() string
}

type Recipient struct {
	Name  string
	Email string
}

// Slot is the part of an appointment a message talks about.
type Slot struct {
	Title        string
	Professional string
	Start        time.Time
}

type EventUpdated struct {
	To  Recipient
	Old Slot
	New Slot
}

type EventCancelledByAdmin struct {
	To   Recipient
	Slot Slot
}

type EventCancelledByUser struct {
	To   Recipient
	Slot Slot
}

// AdminCancellation tells an admin that Customer cancelled their own slot.
type AdminCancellation struct {
	To       Recipient
	Customer string
	Slot     Slot
}

type PasswordReset struct {
	To        Recipient
	ResetLink string
}

func (n EventUpdated) Template() Template          { return EventUpdatedTemplate }
func (n EventCancelledByAdmin) Template() Template { return EventCancelledByAdminTemplate }
func (n EventCancelledByUser) Template() Template  { return EventCancelledByUserTemplate }
func (n AdminCancellation) Template() Template     { return AdminCancellationTemplate }
func (n PasswordReset) Template() Template         { return PasswordResetTemplate }

func (n EventUpdated) Recipient() Recipient          { return n.To }
func (n EventCancelledByAdmin) Recipient() Recipient { return n.To }
func (n EventCancelledByUser) Recipient() Recipient  { return n.To }
func (n AdminCancellation) Recipient() Recipient     { return n.To }
func (n PasswordReset) Recipient() Recipient         { return n.To }

func (EventUpdated) subject() string          { return "Atualização de Agendamento" }
func (EventCancelledByAdmin) subject() string { return "Cancelamento de Sessão pelo Administrador" }
func (EventCancelledByUser) subject() string  { return "Cancelamento de Sessão" }
func (AdminCancellation) subject() string     { return "Sessão Cancelada pelo Usuário" }
func (PasswordReset) subject() string         { return "Redefinição de senha" }
