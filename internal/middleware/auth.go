package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"salon-booking/internal/apperr"
	"salon-booking/internal/auth"
	"salon-booking/internal/model"
)

type ctxKey string

const actorKey ctxKey = "actor"

// AccessCookie carries the access token for browser clients.
const AccessCookie = "access_token"

func WithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFrom returns the authenticated caller stored by one of the auth wrappers.
func ActorFrom(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(actorKey).(model.Actor)
	return a, ok
}

// token from Authorization: Bearer <jwt>, falling back to the access cookie
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(AccessCookie); err == nil {
		return c.Value
	}
	return ""
}

func actorFromRequest(r *http.Request, secret string) (model.Actor, bool) {
	raw := tokenFromRequest(r)
	if raw == "" {
		return model.Actor{}, false
	}
	claims, err := auth.ParseToken(raw, secret)
	if err != nil {
		return model.Actor{}, false
	}
	return model.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, true
}

// OptionalUser attaches the caller when a valid token is present and never rejects.
func OptionalUser(secret string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if a, ok := actorFromRequest(r, secret); ok {
			r = r.WithContext(WithActor(r.Context(), a))
		}
		next(w, r, ps)
	}
}

func RequireUser(secret string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		a, ok := actorFromRequest(r, secret)
		if !ok {
			deny(w, http.StatusUnauthorized, "login required")
			return
		}
		next(w, r.WithContext(WithActor(r.Context(), a)), ps)
	}
}

// UserLookup loads the current state of an account.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
}

// RequireAdmin admits callers whose token carries the admin claim. With a
// non-nil users the claim is re-checked against the stored account, so a
// demoted admin loses access before the token expires.
func RequireAdmin(secret string, users UserLookup, next httprouter.Handle) httprouter.Handle {
	return RequireUser(secret, func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		a, _ := ActorFrom(r.Context())
		if !a.IsAdmin {
			deny(w, http.StatusForbidden, "admin only")
			return
		}
		if users != nil {
			u, err := users.UserByID(r.Context(), a.UserID)
			switch {
			case errors.Is(err, apperr.ErrNotFound):
				deny(w, http.StatusUnauthorized, "login required")
				return
			case err != nil:
				log.Printf("middleware: admin lookup %s: %v", a.UserID, err)
				deny(w, http.StatusInternalServerError, "internal server error")
				return
			case !u.IsAdmin:
				deny(w, http.StatusForbidden, "admin only")
				return
			}
		}
		next(w, r, ps)
	})
}

func deny(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		log.Printf("middleware: write response: %v", err)
	}
}

// Auth requires a bearer token on every gRPC call except the open methods.
func Auth(secret string, open ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(open))
	for _, m := range open {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return next(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = strings.TrimPrefix(vals[0], "Bearer ")
		}
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}

		claims, err := auth.ParseToken(raw, secret)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}

		ctx = WithActor(ctx, model.Actor{UserID: claims.UserID, IsAdmin: claims.IsAdmin})
		return next(ctx, req)
	}
}
