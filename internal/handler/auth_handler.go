package handler

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"salon-booking/internal/apperr"
	"salon-booking/internal/auth"
	"salon-booking/internal/middleware"
	"salon-booking/internal/model"
	"salon-booking/internal/notify"
)

const (
	refreshCookie  = "refresh_token"
	minPasswordLen = 8
)

type registerRequest struct {
	Nome     string `json:"nome"`
	Telefone string `json:"telefone"`
	Email    string `json:"email"`
	Senha    string `json:"senha"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in registerRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Nome = strings.TrimSpace(in.Nome)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Nome == "" || in.Email == "" || in.Senha == "" {
		writeError(w, r, apperr.Validation("nome, email and senha are required"))
		return
	}
	if len(in.Senha) < minPasswordLen {
		writeError(w, r, apperr.Validation("password too short"))
		return
	}

	hash, err := auth.HashPassword(in.Senha)
	if err != nil {
		writeError(w, r, apperr.Storage("hash password", err))
		return
	}
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         in.Nome,
		Phone:        strings.TrimSpace(in.Telefone),
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("user %s registered", u.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID})
}

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

type loginResponse struct {
	ID      string `json:"id"`
	Nome    string `json:"nome"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Email == "" || in.Senha == "" {
		writeError(w, r, apperr.Validation("email and senha required"))
		return
	}

	u, err := h.store.UserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(in.Email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, r, apperr.Auth("invalid credentials"))
			return
		}
		writeError(w, r, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, in.Senha) {
		writeError(w, r, apperr.Auth("invalid credentials"))
		return
	}

	tok, err := h.issueTokens(w, r, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{ID: u.ID, Nome: u.Name, IsAdmin: u.IsAdmin, Token: tok})
}

// issueTokens creates a fresh refresh token and sets both cookies. It
// returns the access token.
func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, u *model.User) (string, error) {
	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		return "", apperr.Storage("generate refresh token", err)
	}
	if _, err := h.store.CreateRefreshToken(r.Context(), u.ID, hash, time.Now().Add(h.opts.RefreshTTL)); err != nil {
		return "", err
	}
	return h.setCookies(w, u, raw)
}

func (h *Handler) setCookies(w http.ResponseWriter, u *model.User, refresh string) (string, error) {
	tok, err := auth.MakeToken(u.ID, u.IsAdmin, h.opts.Secret, h.opts.AccessTTL)
	if err != nil {
		return "", apperr.Storage("sign token", err)
	}
	h.cookie(w, middleware.AccessCookie, tok, h.opts.AccessTTL)
	h.cookie(w, refreshCookie, refresh, h.opts.RefreshTTL)
	return tok, nil
}

func (h *Handler) cookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if value == "" {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.opts.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
}

// Refresh trades a refresh cookie for a new access token and rotates the
// refresh token. Presenting an already rotated token revokes every session
// of its user.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, r, apperr.Auth("no refresh token"))
		return
	}
	ctx := r.Context()

	rt, err := h.store.GetRefreshTokenByHash(ctx, auth.HashRefreshToken(c.Value))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, r, apperr.Auth("invalid refresh token"))
			return
		}
		writeError(w, r, err)
		return
	}
	if rt.Revoked {
		log.Printf("refresh token reuse for user %s, revoking all sessions", rt.UserID)
		if err := h.store.RevokeAllRefreshTokens(ctx, rt.UserID); err != nil {
			log.Printf("revoke sessions for %s: %v", rt.UserID, err)
		}
		writeError(w, r, apperr.Auth("refresh token already used"))
		return
	}
	if time.Now().After(rt.ExpiresAt) {
		writeError(w, r, apperr.Auth("refresh token expired"))
		return
	}

	u, err := h.store.UserByID(ctx, rt.UserID)
	if err != nil {
		writeError(w, r, apperr.Auth("invalid refresh token"))
		return
	}

	raw, hash, err := auth.GenerateRefreshToken()
	if err != nil {
		writeError(w, r, apperr.Storage("generate refresh token", err))
		return
	}
	if err := h.store.RotateRefreshToken(ctx, rt.ID, u.ID, hash, time.Now().Add(h.opts.RefreshTTL)); err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := h.setCookies(w, u, raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := h.store.RevokeAllRefreshTokens(r.Context(), actor(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	h.cookie(w, middleware.AccessCookie, "", 0)
	h.cookie(w, refreshCookie, "", 0)
	w.WriteHeader(http.StatusNoContent)
}

type statusUser struct {
	ID    string `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
}

type authStatus struct {
	IsAuthenticated bool        `json:"isAuthenticated"`
	IsAdmin         bool        `json:"isAdmin"`
	User            *statusUser `json:"user"`
}

func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, authStatus{})
		return
	}
	u, err := h.store.UserByID(r.Context(), a.UserID)
	if err != nil {
		// deleted since the token was issued
		writeJSON(w, http.StatusOK, authStatus{})
		return
	}
	writeJSON(w, http.StatusOK, authStatus{
		IsAuthenticated: true,
		IsAdmin:         u.IsAdmin,
		User:            &statusUser{ID: u.ID, Nome: u.Name, Email: u.Email},
	})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		writeError(w, r, apperr.Validation("email required"))
		return
	}

	u, err := h.store.UserByEmail(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := auth.MakeResetToken(u.ID, h.opts.Secret, h.opts.ResetTTL)
	if err != nil {
		writeError(w, r, apperr.Storage("sign reset token", err))
		return
	}
	link := h.opts.BaseURL + "/reset-password?token=" + url.QueryEscape(tok)

	err = h.mail.Send(r.Context(), notify.PasswordReset{
		To:        notify.Recipient{Name: u.Name, Email: u.Email},
		ResetLink: link,
	})
	if err != nil && !logDelivery(r, err) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Email de redefinição de senha enviado com sucesso!"})
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in resetRequest
	if err := decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if len(in.NewPassword) < minPasswordLen {
		writeError(w, r, apperr.Validation("password too short"))
		return
	}

	uid, err := auth.ParseResetToken(in.Token, h.opts.Secret)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, r, apperr.Validation("Token expirado! Por favor, solicite uma nova redefinição de senha."))
		return
	case err != nil:
		writeError(w, r, apperr.Validation("invalid reset token"))
		return
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		writeError(w, r, apperr.Storage("hash password", err))
		return
	}
	if err := h.store.SetPassword(r.Context(), uid, hash); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.RevokeAllRefreshTokens(r.Context(), uid); err != nil {
		log.Printf("revoke sessions after reset for %s: %v", uid, err)
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Senha redefinida com sucesso!"})
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in profileRequest
	err := decodeForm(r, &in, map[string]*string{"name": &in.Name, "email": &in.Email, "phone": &in.Phone})
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if name == "" || email == "" {
		writeError(w, r, apperr.Validation("name and email are required"))
		return
	}

	uid := actor(r).UserID
	if err := h.store.UpdateProfile(r.Context(), uid, name, email, strings.TrimSpace(in.Phone)); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.store.UserByID(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Perfil atualizado com sucesso!", "user": toUser(u)})
}

type profileResponse struct {
	User   userJSON    `json:"user"`
	Events []eventJSON `json:"events"`
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	uid := actor(r).UserID

	u, err := h.store.UserByID(ctx, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.store.EventsByUser(ctx, uid)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := profileResponse{User: toUser(u), Events: make([]eventJSON, 0, len(events))}
	for i := range events {
		ej := toEvent(&events[i])
		ok := h.booking.CanCancelNow(&events[i])
		ej.CanCancel = &ok
		out.Events = append(out.Events, ej)
	}
	writeJSON(w, http.StatusOK, out)
}
