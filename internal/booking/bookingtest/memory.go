// Package bookingtest provides in-memory fakes for tests that exercise the
// booking lifecycle without a database or a mail server.
package bookingtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
	"salon-booking/internal/notify"
)

// Memory is a goroutine-safe store with the same uniqueness rules as the
// Postgres schema: one email per user, one event per professional and start.
type Memory struct {
	mu      sync.Mutex
	users   map[string]model.User
	events  map[string]model.Event
	tokens  map[string]model.RefreshToken
	outbox  map[string]model.OutboxMessage
	deletes int

	// FailAdmins makes Admins return an error.
	FailAdmins bool
}

func NewMemory() *Memory {
	return &Memory{
		users:  map[string]model.User{},
		events: map[string]model.Event{},
		tokens: map[string]model.RefreshToken{},
		outbox: map[string]model.OutboxMessage{},
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

// AddUser inserts u directly, filling in an id when empty.
func (m *Memory) AddUser(u model.User) model.User {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return u
}

// AddEvent inserts e directly, filling in an id when empty.
func (m *Memory) AddEvent(e model.Event) model.Event {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	m.mu.Lock()
	m.events[e.ID] = e
	m.mu.Unlock()
	return e
}

// Deletes counts successful DeleteEvent calls.
func (m *Memory) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

// Events returns a snapshot of every stored event ordered by start.
func (m *Memory) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e)
	}
	sortEvents(out)
	return out
}

// Outbox returns a snapshot of queued messages.
func (m *Memory) Outbox() []model.OutboxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.OutboxMessage, 0, len(m.outbox))
	for _, o := range m.outbox {
		out = append(out, o)
	}
	return out
}

// users

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if strings.EqualFold(x.Email, u.Email) {
			return apperr.Conflict("email already registered")
		}
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (m *Memory) UserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return &u, nil
}

func (m *Memory) UpdateProfile(_ context.Context, id, name, email, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	for _, x := range m.users {
		if x.ID != id && strings.EqualFold(x.Email, email) {
			return apperr.Conflict("email already registered")
		}
	}
	u.Name, u.Email, u.Phone = name, email, phone
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *Memory) SetPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *Memory) Admins(context.Context) ([]model.User, error) {
	if m.FailAdmins {
		return nil, errors.New("admins unavailable")
	}
	return m.filterUsers(func(u model.User) bool { return u.IsAdmin }), nil
}

func (m *Memory) AllUsers(context.Context) ([]model.User, error) {
	return m.filterUsers(func(model.User) bool { return true }), nil
}

func (m *Memory) SearchUsers(_ context.Context, field, query string) ([]model.User, error) {
	q := strings.ToLower(query)
	return m.filterUsers(func(u model.User) bool {
		v := u.Phone
		if field == "email" {
			v = u.Email
		}
		return strings.Contains(strings.ToLower(v), q)
	}), nil
}

func (m *Memory) filterUsers(keep func(model.User) bool) []model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// events

func (m *Memory) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[e.UserID]; !ok {
		return apperr.NotFound("user not found")
	}
	if m.slotTaken(e) {
		return apperr.Conflict("slot already booked")
	}
	now := time.Now()
	e.CreatedAt, e.UpdatedAt = now, now
	m.events[e.ID] = *e
	return nil
}

func (m *Memory) EventByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, apperr.NotFound("event not found")
	}
	return &e, nil
}

func (m *Memory) UpdateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; !ok {
		return apperr.NotFound("event not found")
	}
	if m.slotTaken(e) {
		return apperr.Conflict("slot already booked")
	}
	e.UpdatedAt = time.Now()
	m.events[e.ID] = *e
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return apperr.NotFound("event not found")
	}
	delete(m.events, id)
	m.deletes++
	return nil
}

func (m *Memory) EventsByProfessionalOn(_ context.Context, professional string, day time.Time) ([]model.Event, error) {
	y, mo, d := day.Date()
	return m.filterEvents(func(e model.Event) bool {
		ey, emo, ed := e.Start.Date()
		return e.ProfessionalName == professional && ey == y && emo == mo && ed == d
	}), nil
}

func (m *Memory) EventsByUser(_ context.Context, userID string) ([]model.Event, error) {
	return m.filterEvents(func(e model.Event) bool { return e.UserID == userID }), nil
}

func (m *Memory) EventsWithOwners(context.Context) ([]model.EventWithOwner, error) {
	events := m.filterEvents(func(model.Event) bool { return true })
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EventWithOwner, 0, len(events))
	for _, e := range events {
		out = append(out, model.EventWithOwner{Event: e, Owner: m.users[e.UserID]})
	}
	return out, nil
}

func (m *Memory) EventWithOwner(_ context.Context, id string) (*model.EventWithOwner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, apperr.NotFound("event not found")
	}
	return &model.EventWithOwner{Event: e, Owner: m.users[e.UserID]}, nil
}

func (m *Memory) filterEvents(keep func(model.Event) bool) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

// slotTaken must be called with mu held.
func (m *Memory) slotTaken(e *model.Event) bool {
	for _, x := range m.events {
		if x.ID != e.ID && x.ProfessionalName == e.ProfessionalName && x.Start.Equal(e.Start) {
			return true
		}
	}
	return false
}

func sortEvents(es []model.Event) {
	sort.Slice(es, func(i, j int) bool { return es[i].Start.Before(es[j].Start) })
}

// refresh tokens

func (m *Memory) CreateRefreshToken(_ context.Context, userID, tokenHash string, expiresAt time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.tokens[id] = model.RefreshToken{ID: id, UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return id, nil
}

func (m *Memory) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, apperr.NotFound("refresh token not found")
}

func (m *Memory) RotateRefreshToken(_ context.Context, oldID, userID, newHash string, newExpiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.tokens[oldID]
	if !ok || old.Revoked {
		return apperr.Auth("refresh token already used")
	}
	newID := uuid.New().String()
	old.Revoked = true
	old.ReplacedBy = &newID
	m.tokens[oldID] = old
	m.tokens[newID] = model.RefreshToken{ID: newID, UserID: userID, TokenHash: newHash, ExpiresAt: newExpiry, CreatedAt: time.Now()}
	return nil
}

func (m *Memory) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
			m.tokens[id] = t
		}
	}
	return nil
}

// outbox

func (m *Memory) EnqueueOutbox(_ context.Context, msg *model.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox[msg.ID] = *msg
	return nil
}

func (m *Memory) DueOutbox(_ context.Context, now time.Time, maxAttempts, limit int) ([]model.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OutboxMessage
	for _, o := range m.outbox {
		if o.SentAt == nil && !o.NextAttemptAt.After(now) && o.Attempts < maxAttempts {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkOutboxSent(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outbox[id]
	if !ok {
		return apperr.NotFound("message not found")
	}
	o.SentAt = &at
	o.Attempts++
	o.LastError = ""
	m.outbox[id] = o
	return nil
}

func (m *Memory) RescheduleOutbox(_ context.Context, id string, attempts int, lastErr string, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outbox[id]
	if !ok {
		return apperr.NotFound("message not found")
	}
	o.Attempts, o.LastError, o.NextAttemptAt = attempts, lastErr, next
	m.outbox[id] = o
	return nil
}

// Notices records every notice handed to Send. When Fail is set, Send
// records the notice and returns a delivery error for it.
type Notices struct {
	mu   sync.Mutex
	sent []notify.Notice
	Fail bool
}

func (n *Notices) Send(_ context.Context, notice notify.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notice)
	if n.Fail {
		return apperr.Delivery(notice.Recipient().Email, errors.New("smtp down"))
	}
	return nil
}

func (n *Notices) Sent() []notify.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notice(nil), n.sent...)
}

// Mailbox is a notify.MailSender that keeps messages instead of sending them.
type Mailbox struct {
	mu   sync.Mutex
	msgs []notify.Message
	Err  error
}

func (b *Mailbox) Send(_ context.Context, m notify.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.msgs = append(b.msgs, m)
	return nil
}

func (b *Mailbox) Messages() []notify.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]notify.Message(nil), b.msgs...)
}
