package booking

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
	"salon-booking/internal/notify"
)

// CheckAvailability returns the events already booked with professional on
// date. Only the exact date is matched; durations are not considered.
func (m *Manager) CheckAvailability(ctx context.Context, date, professional string) ([]model.Event, error) {
	professional = strings.TrimSpace(professional)
	if professional == "" {
		return nil, apperr.Validation("professional name required")
	}
	d, err := m.ParseDay(date)
	if err != nil {
		return nil, err
	}
	events, err := m.repo.EventsByProfessionalOn(ctx, professional, d)
	if err != nil {
		return nil, storage("check availability", err)
	}
	return events, nil
}

type CreateInput struct {
	ProfessionalName string
	Date             string
	Time             string
	OwnerID          string
	// Title defaults to the configured service title.
	Title string
}

// Create books a slot for OwnerID and returns the new event id. A second
// booking of the same professional at the same moment fails with a conflict.
func (m *Manager) Create(ctx context.Context, in CreateInput) (string, error) {
	if in.OwnerID == "" {
		return "", apperr.Auth("login required")
	}
	professional := strings.TrimSpace(in.ProfessionalName)
	if professional == "" {
		return "", apperr.Validation("professional name required")
	}
	start, err := m.ParseSlot(in.Date, in.Time)
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = m.title
	}

	e := &model.Event{
		ID:               uuid.New().String(),
		Title:            title,
		UserID:           in.OwnerID,
		ProfessionalName: professional,
		Start:            start,
	}
	if err := m.repo.CreateEvent(ctx, e); err != nil {
		return "", storage("create event", err)
	}
	log.Printf("booking: event %s created for %s with %s at %s", e.ID, e.UserID, professional, start.Format("2006-01-02 15:04"))
	return e.ID, nil
}

type EditInput struct {
	EventID          string
	Title            string
	Date             string
	Hour             string
	ProfessionalName string
}

// Edit rewrites an event and mails its owner the old and new values.
// Only the owner or an admin may edit. When the update committed but the
// notification failed, the updated event is returned with a delivery error.
func (m *Manager) Edit(ctx context.Context, in EditInput, actor model.Actor) (*model.Event, error) {
	professional := strings.TrimSpace(in.ProfessionalName)
	if professional == "" {
		return nil, apperr.Validation("professional name required")
	}
	start, err := m.ParseSlot(in.Date, in.Hour)
	if err != nil {
		return nil, err
	}

	ev, owner, err := m.load(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != ev.UserID && !actor.IsAdmin {
		return nil, apperr.Forbidden("only the owner or an admin may edit this appointment")
	}

	old := *ev
	updated := *ev
	if t := strings.TrimSpace(in.Title); t != "" {
		updated.Title = t
	}
	updated.ProfessionalName = professional
	updated.Start = start

	if err := m.repo.UpdateEvent(ctx, &updated); err != nil {
		return nil, storage("update event", err)
	}

	nerr := m.notifier.Send(ctx, notify.EventUpdated{
		To:  recipientOf(owner),
		Old: slotOf(&old),
		New: slotOf(&updated),
	})
	return &updated, nerr
}

// Cancel deletes an event. A self-cancel mails the owner and every admin;
// an admin cancel mails only the owner. Notification failures after the
// delete are returned as delivery errors and do not undo it.
//
// Non-admin owners are additionally held to CanCancel: on the day of the
// appointment the delete is refused with a validation error, not just hidden
// behind the canCancel flag that listings expose.
func (m *Manager) Cancel(ctx context.Context, eventID string, actor model.Actor) error {
	ev, owner, err := m.load(ctx, eventID)
	if err != nil {
		return err
	}

	self := actor.UserID == ev.UserID
	if !self && !actor.IsAdmin {
		return apperr.Forbidden("only the owner or an admin may cancel this appointment")
	}
	if !actor.IsAdmin && !m.CanCancelNow(ev) {
		return apperr.Validation("appointments can only be cancelled up to the day before")
	}

	if err := m.repo.DeleteEvent(ctx, ev.ID); err != nil {
		return storage("delete event", err)
	}
	log.Printf("booking: event %s cancelled by %s", ev.ID, actor.UserID)

	slot := slotOf(ev)
	if !self {
		return m.notifier.Send(ctx, notify.EventCancelledByAdmin{To: recipientOf(owner), Slot: slot})
	}

	var errs []error
	if err := m.notifier.Send(ctx, notify.EventCancelledByUser{To: recipientOf(owner), Slot: slot}); err != nil {
		errs = append(errs, err)
	}
	admins, err := m.repo.Admins(ctx)
	if err != nil {
		// the delete is committed; a failed admin lookup only loses mail
		return errors.Join(append(errs, apperr.Delivery("admins", err))...)
	}
	for i := range admins {
		err := m.notifier.Send(ctx, notify.AdminCancellation{
			To:       recipientOf(&admins[i]),
			Customer: owner.Name,
			Slot:     slot,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) load(ctx context.Context, eventID string) (*model.Event, *model.User, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, nil, apperr.Validation("event id required")
	}
	ev, err := m.repo.EventByID(ctx, eventID)
	if err != nil {
		return nil, nil, storage("load event", err)
	}
	owner, err := m.repo.UserByID(ctx, ev.UserID)
	if err != nil {
		return nil, nil, storage("load owner", err)
	}
	return ev, owner, nil
}
