package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"salon-booking/internal/apperr"
	"salon-booking/internal/booking"
	"salon-booking/internal/middleware"
	"salon-booking/internal/model"
)

// Store is the persistence the HTTP layer reads directly, outside the
// booking lifecycle.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, name, email, phone string) error
	SetPassword(ctx context.Context, id, hash string) error
	AllUsers(ctx context.Context) ([]model.User, error)
	SearchUsers(ctx context.Context, field, query string) ([]model.User, error)

	EventsByUser(ctx context.Context, userID string) ([]model.Event, error)
	EventsWithOwners(ctx context.Context) ([]model.EventWithOwner, error)
	EventWithOwner(ctx context.Context, id string) (*model.EventWithOwner, error)

	CreateRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) (string, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID, userID, newHash string, newExpiry time.Time) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
}

type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	// BaseURL prefixes links sent by mail; https also marks cookies Secure.
	BaseURL string
}

type Handler struct {
	store   Store
	booking *booking.Manager
	mail    booking.Notifier
	limiter *middleware.RateLimiter
	opts    Options
}

func New(st Store, mgr *booking.Manager, mail booking.Notifier, limiter *middleware.RateLimiter, opts Options) *Handler {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = time.Hour
	}
	return &Handler{store: st, booking: mgr, mail: mail, limiter: limiter, opts: opts}
}

func (h *Handler) Routes() *httprouter.Router {
	r := httprouter.New()

	user := func(fn httprouter.Handle) httprouter.Handle { return middleware.RequireUser(h.opts.Secret, fn) }
	admin := func(fn httprouter.Handle) httprouter.Handle { return middleware.RequireAdmin(h.opts.Secret, h.store, fn) }
	limited := func(fn httprouter.Handle) httprouter.Handle {
		if h.limiter == nil {
			return fn
		}
		return h.limiter.Limit(fn)
	}

	// accounts
	r.POST("/cadastrar", limited(h.Register))
	r.POST("/login", limited(h.Login))
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/logout", user(h.Logout))
	r.GET("/auth/status", middleware.OptionalUser(h.opts.Secret, h.AuthStatus))
	r.POST("/forgot-password", limited(h.ForgotPassword))
	r.POST("/reset-password", h.ResetPassword)
	r.POST("/update-profile", user(h.UpdateProfile))
	r.GET("/profile", user(h.Profile))

	// booking
	r.POST("/select-time", user(h.SelectTime))
	r.POST("/check-availability", h.CheckAvailability)
	r.POST("/edit-event/:id", user(h.EditEvent))
	r.DELETE("/delete-event/:id", admin(h.DeleteEvent))
	r.POST("/delete-event-user/:id", user(h.DeleteOwnEvent))
	r.GET("/events", user(h.Events))
	r.GET("/event-details/:id", user(h.EventDetails))
	r.GET("/calendar", admin(h.Calendar))

	// admin lookups
	r.GET("/api/users/all", admin(h.AllUsers))
	r.GET("/api/users/search", admin(h.SearchUsers))
	r.GET("/api/appointments/:userId", admin(h.UserAppointments))

	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	r.PanicHandler = func(w http.ResponseWriter, r *http.Request, rec any) {
		log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
	return r
}

// Server wraps the router with CORS and panic recovery.
func (h *Handler) Server(allowedOrigins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return middleware.Recover(c.Handler(h.Routes()))
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		log.Printf("readyz: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status code. Internal causes are logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, code, errorBody{Error: apperr.Message(err, "internal error")})
}

// logDelivery reports whether err is only a mail failure after a committed
// change, logging it if so.
func logDelivery(r *http.Request, err error) bool {
	if !apperr.OnlyDelivery(err) {
		return false
	}
	log.Printf("%s %s: notification failed: %v", r.Method, r.URL.Path, err)
	return true
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}

// decodeForm fills fields from an urlencoded form when the request carries
// one, and from a JSON body otherwise. Pages post forms; scripts send JSON.
func decodeForm(r *http.Request, dst any, fields map[string]*string) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return apperr.Validation("invalid form")
		}
		for k, p := range fields {
			*p = r.PostForm.Get(k)
		}
		return nil
	}
	return decode(r, dst)
}

// redirect sends a 303 to path?status=...&message=..., status first so pages
// can match on the prefix.
func redirect(w http.ResponseWriter, r *http.Request, path, status, msg string) {
	loc := path + "?status=" + url.QueryEscape(status) + "&message=" + url.QueryEscape(msg)
	http.Redirect(w, r, loc, http.StatusSeeOther)
}

func actor(r *http.Request) model.Actor {
	a, _ := middleware.ActorFrom(r.Context())
	return a
}
