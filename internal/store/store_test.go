package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
	"salon-booking/internal/store"
)

func setup(t *testing.T) *store.Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := store.Migrate(pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(pool, time.UTC)
}

func createUser(t *testing.T, st *store.Store, admin bool) *model.User {
	t.Helper()
	u := &model.User{
		ID:           uuid.New().String(),
		Name:         "Test User",
		Phone:        "11999990000",
		Email:        fmt.Sprintf("test-%s@test.com", uuid.New().String()[:8]),
		PasswordHash: "x",
		IsAdmin:      admin,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// each test books a distinct professional so reruns never collide on the slot key
func professional() string {
	return "Maria-" + uuid.New().String()[:8]
}

func TestUserRoundTrip(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, false)

	got, err := st.UserByEmail(ctx, u.Email)
	if err != nil {
		t.Fatalf("by email: %v", err)
	}
	if got.ID != u.ID || got.Phone != u.Phone {
		t.Errorf("got %+v", got)
	}

	dup := *u
	dup.ID = uuid.New().String()
	if err := st.CreateUser(ctx, &dup); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict on duplicate email, got %v", err)
	}

	if _, err := st.UserByID(ctx, uuid.New().String()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestEventStartRoundTrip(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, false)

	start := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	e := &model.Event{ID: uuid.New().String(), Title: "Manicure", UserID: u.ID, ProfessionalName: professional(), Start: start}
	if err := st.CreateEvent(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.EventByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Start.Equal(start) {
		t.Errorf("start: got %v want %v", got.Start, start)
	}

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	list, err := st.EventsByProfessionalOn(ctx, e.ProfessionalName, day)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(list) != 1 || list[0].ID != e.ID {
		t.Errorf("expected exactly the created event, got %+v", list)
	}

	other, err := st.EventsByProfessionalOn(ctx, e.ProfessionalName, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected nothing on the next day, got %d", len(other))
	}
}

func TestSlotUniqueness(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u1 := createUser(t, st, false)
	u2 := createUser(t, st, false)
	name := professional()
	start := time.Date(2030, 1, 2, 10, 0, 0, 0, time.UTC)

	first := &model.Event{ID: uuid.New().String(), Title: "A", UserID: u1.ID, ProfessionalName: name, Start: start}
	if err := st.CreateEvent(ctx, first); err != nil {
		t.Fatalf("first: %v", err)
	}
	second := &model.Event{ID: uuid.New().String(), Title: "B", UserID: u2.ID, ProfessionalName: name, Start: start}
	if err := st.CreateEvent(ctx, second); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, false)

	e := &model.Event{ID: uuid.New().String(), Title: "Old", UserID: u.ID, ProfessionalName: professional(),
		Start: time.Date(2030, 5, 1, 9, 30, 0, 0, time.UTC)}
	if err := st.CreateEvent(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	e.Title = "New"
	e.Start = time.Date(2030, 5, 2, 11, 15, 0, 0, time.UTC)
	if err := st.UpdateEvent(ctx, e); err != nil {
		t.Fatalf("update: %v", err)
	}
	ew, err := st.EventWithOwner(ctx, e.ID)
	if err != nil {
		t.Fatalf("with owner: %v", err)
	}
	if ew.Title != "New" || !ew.Start.Equal(e.Start) || ew.Owner.Email != u.Email {
		t.Errorf("got %+v", ew)
	}

	if err := st.DeleteEvent(ctx, e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteEvent(ctx, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestAdminsListing(t *testing.T) {
	st := setup(t)
	admin := createUser(t, st, true)

	admins, err := st.Admins(context.Background())
	if err != nil {
		t.Fatalf("admins: %v", err)
	}
	found := false
	for _, a := range admins {
		if !a.IsAdmin {
			t.Errorf("non-admin %s listed", a.ID)
		}
		if a.ID == admin.ID {
			found = true
		}
	}
	if !found {
		t.Error("created admin missing")
	}
}

func TestOutboxLifecycle(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	m := &model.OutboxMessage{
		ID: uuid.New().String(), Recipient: "a@test.com", Subject: "s", HTML: "<p>x</p>",
		Attempts: 1, LastError: "dial", NextAttemptAt: now.Add(-time.Second),
	}
	if err := st.EnqueueOutbox(ctx, m); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	due, err := st.DueOutbox(ctx, now, 5, 1000)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !containsMessage(due, m.ID) {
		t.Fatal("enqueued message not due")
	}

	if err := st.MarkOutboxSent(ctx, m.ID, now); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	due, _ = st.DueOutbox(ctx, now, 5, 1000)
	if containsMessage(due, m.ID) {
		t.Error("sent message still due")
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	u := createUser(t, st, false)

	id, err := st.CreateRefreshToken(ctx, u.ID, uuid.New().String(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.RotateRefreshToken(ctx, id, u.ID, uuid.New().String(), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	// second rotation of the same token is reuse
	err = st.RotateRefreshToken(ctx, id, u.ID, uuid.New().String(), time.Now().Add(time.Hour))
	if !errors.Is(err, apperr.ErrAuth) {
		t.Errorf("expected auth error on reuse, got %v", err)
	}
}

func containsMessage(list []model.OutboxMessage, id string) bool {
	for _, m := range list {
		if m.ID == id {
			return true
		}
	}
	return false
}
