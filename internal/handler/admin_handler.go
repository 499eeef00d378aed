package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (h *Handler) AllUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	users, err := h.store.AllUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsers(users))
}

// SearchUsers matches ?query= as a substring of the email, or of the phone
// for any other ?type=.
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	field := "telefone"
	if q.Get("type") == "email" {
		field = "email"
	}
	users, err := h.store.SearchUsers(r.Context(), field, q.Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsers(users))
}

func (h *Handler) UserAppointments(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	u, err := h.store.UserByID(ctx, ps.ByName("userId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.store.EventsByUser(ctx, u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(events) == 0 {
		writeJSON(w, http.StatusNotFound, messageBody{Message: "Nenhum evento encontrado para este usuário."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":   ownerJSON{ID: u.ID, Nome: u.Name, Telefone: u.Phone, Email: u.Email},
		"events": toEvents(events),
	})
}
