package handler

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"salon-booking/internal/apperr"
	"salon-booking/internal/booking"
)

type selectTimeRequest struct {
	ProfessionalName string `json:"professionalName"`
	Date             string `json:"date"`
	Time             string `json:"time"`
}

// SelectTime books a slot for the caller and redirects back to a page.
func (h *Handler) SelectTime(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in selectTimeRequest
	err := decodeForm(r, &in, map[string]*string{
		"professionalName": &in.ProfessionalName,
		"date":             &in.Date,
		"time":             &in.Time,
	})
	if err != nil {
		redirect(w, r, "/agendamento", "error", apperr.Message(err, "Erro ao realizar agendamento."))
		return
	}

	_, err = h.booking.Create(r.Context(), booking.CreateInput{
		ProfessionalName: in.ProfessionalName,
		Date:             in.Date,
		Time:             in.Time,
		OwnerID:          actor(r).UserID,
	})
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			writeError(w, r, err)
			return
		}
		redirect(w, r, "/agendamento", "error", apperr.Message(err, "Erro ao realizar agendamento."))
		return
	}
	redirect(w, r, "/profile", "success", "Agendamento realizado com sucesso!")
}

type availabilityRequest struct {
	Date             string `json:"date"`
	ProfessionalName string `json:"professionalName"`
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in availabilityRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.booking.CheckAvailability(r.Context(), in.Date, in.ProfessionalName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvents(events))
}

type editRequest struct {
	Title            string `json:"title"`
	Start            string `json:"start"`
	Hora             string `json:"hora"`
	ProfessionalName string `json:"professionalName"`
}

func (h *Handler) EditEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in editRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.booking.Edit(r.Context(), booking.EditInput{
		EventID:          ps.ByName("id"),
		Title:            in.Title,
		Date:             in.Start,
		Hour:             in.Hora,
		ProfessionalName: in.ProfessionalName,
	}, actor(r))
	if err != nil && !logDelivery(r, err) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Evento atualizado com sucesso",
		"event":   toEvent(ev),
	})
}

// DeleteEvent is the admin cancellation.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.booking.Cancel(r.Context(), ps.ByName("id"), actor(r))
	if err != nil && !logDelivery(r, err) {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteOwnEvent is the customer cancellation, posted from the profile page.
func (h *Handler) DeleteOwnEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.booking.Cancel(r.Context(), ps.ByName("id"), actor(r))
	switch {
	case err == nil, logDelivery(r, err):
		redirect(w, r, "/profile", "success", "Sessão cancelada com sucesso!")
	case errors.Is(err, apperr.ErrValidation):
		redirect(w, r, "/profile", "error", apperr.Message(err, "Erro ao cancelar sessão."))
	default:
		writeError(w, r, err)
	}
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	events, err := h.store.EventsWithOwners(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]listedEventJSON, 0, len(events))
	for i := range events {
		out = append(out, toListedEvent(&events[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) EventDetails(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ew, err := h.store.EventWithOwner(r.Context(), ps.ByName("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventDetailsJSON{
		eventJSON: toEvent(&ew.Event),
		User:      ownerJSON{ID: ew.Owner.ID, Nome: ew.Owner.Name, Telefone: ew.Owner.Phone, Email: ew.Owner.Email},
	})
}

// Calendar feeds the admin FullCalendar view.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	events, err := h.store.EventsWithOwners(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]calendarEventJSON, 0, len(events))
	for i := range events {
		out = append(out, toCalendarEvent(&events[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
