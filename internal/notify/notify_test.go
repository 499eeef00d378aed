package notify

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

type fakeOutbox struct {
	mu   sync.Mutex
	rows map[string]model.OutboxMessage
}

func newFakeOutbox() *fakeOutbox { return &fakeOutbox{rows: map[string]model.OutboxMessage{}} }

func (o *fakeOutbox) EnqueueOutbox(_ context.Context, m *model.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows[m.ID] = *m
	return nil
}

func (o *fakeOutbox) DueOutbox(_ context.Context, now time.Time, maxAttempts, limit int) ([]model.OutboxMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []model.OutboxMessage
	for _, m := range o.rows {
		if m.SentAt == nil && !m.NextAttemptAt.After(now) && m.Attempts < maxAttempts && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (o *fakeOutbox) MarkOutboxSent(_ context.Context, id string, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m := o.rows[id]
	m.SentAt = &at
	o.rows[id] = m
	return nil
}

func (o *fakeOutbox) RescheduleOutbox(_ context.Context, id string, attempts int, lastErr string, next time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m := o.rows[id]
	m.Attempts, m.LastError, m.NextAttemptAt = attempts, lastErr, next
	o.rows[id] = m
	return nil
}

func (o *fakeOutbox) only(t *testing.T) model.OutboxMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.rows) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(o.rows))
	}
	for _, m := range o.rows {
		return m
	}
	return model.OutboxMessage{}
}

var brt = time.FixedZone("BRT", -3*60*60)

func slot() Slot {
	return Slot{Title: "Serviço de Manicure", Professional: "Maria", Start: time.Date(2025, 3, 10, 14, 5, 0, 0, brt)}
}

func TestRenderFormatsDateAndTime(t *testing.T) {
	notices := []Notice{
		EventCancelledByAdmin{To: Recipient{Name: "Ana", Email: "ana@test.com"}, Slot: slot()},
		EventCancelledByUser{To: Recipient{Name: "Ana", Email: "ana@test.com"}, Slot: slot()},
		AdminCancellation{To: Recipient{Name: "Patty", Email: "adm@test.com"}, Customer: "Ana", Slot: slot()},
		EventUpdated{To: Recipient{Name: "Ana", Email: "ana@test.com"}, Old: slot(), New: slot()},
	}
	for _, n := range notices {
		t.Run(string(n.Template()), func(t *testing.T) {
			msg, err := Render(n)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if !strings.Contains(msg.HTML, "10/03/2025") {
				t.Errorf("missing DD/MM/YYYY date in %s", msg.HTML)
			}
			if !strings.Contains(msg.HTML, "14:05") {
				t.Errorf("missing HH:mm time in %s", msg.HTML)
			}
			if msg.To != n.Recipient().Email || msg.Subject == "" {
				t.Errorf("got to=%q subject=%q", msg.To, msg.Subject)
			}
		})
	}
}

func TestRenderUpdateShowsOldAndNew(t *testing.T) {
	old := slot()
	nw := Slot{Title: "Pedicure", Professional: "Joana", Start: time.Date(2025, 4, 1, 9, 0, 0, 0, brt)}
	msg, err := Render(EventUpdated{To: Recipient{Name: "Ana", Email: "ana@test.com"}, Old: old, New: nw})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Maria", "Joana", "10/03/2025", "01/04/2025", "14:05", "09:00", "Pedicure"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("missing %q", want)
		}
	}
	if msg.Subject != "Atualização de Agendamento" {
		t.Errorf("subject: %q", msg.Subject)
	}
}

func TestRenderPasswordReset(t *testing.T) {
	msg, err := Render(PasswordReset{To: Recipient{Name: "Ana", Email: "ana@test.com"}, ResetLink: "http://x/reset-password?token=abc"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(msg.HTML, "token=abc") {
		t.Errorf("reset link missing: %s", msg.HTML)
	}
}

func TestDispatcherSends(t *testing.T) {
	s := &fakeSender{}
	ob := newFakeOutbox()
	d := NewDispatcher(s, ob)

	err := d.Send(context.Background(), EventCancelledByUser{To: Recipient{Name: "Ana", Email: "ana@test.com"}, Slot: slot()})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(s.msgs) != 1 || s.msgs[0].Subject != "Cancelamento de Sessão" {
		t.Errorf("got %+v", s.msgs)
	}
	if len(ob.rows) != 0 {
		t.Error("successful send was queued")
	}
}

func TestDispatcherQueuesFailedDelivery(t *testing.T) {
	s := &fakeSender{err: errors.New("connection refused")}
	ob := newFakeOutbox()
	d := NewDispatcher(s, ob)
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	err := d.Send(context.Background(), EventCancelledByUser{To: Recipient{Name: "Ana", Email: "ana@test.com"}, Slot: slot()})
	if !errors.Is(err, apperr.ErrDelivery) {
		t.Fatalf("expected delivery error, got %v", err)
	}

	m := ob.only(t)
	if m.Recipient != "ana@test.com" || m.Attempts != 1 || m.LastError != "connection refused" {
		t.Errorf("got %+v", m)
	}
	if !m.NextAttemptAt.Equal(now.Add(time.Minute)) {
		t.Errorf("next attempt: %v", m.NextAttemptAt)
	}
	if !strings.Contains(m.HTML, "10/03/2025") {
		t.Error("queued message not rendered")
	}
}

func TestDispatcherWithoutOutbox(t *testing.T) {
	d := NewDispatcher(&fakeSender{err: errors.New("down")}, nil)
	err := d.Send(context.Background(), PasswordReset{To: Recipient{Email: "a@test.com"}, ResetLink: "x"})
	if !apperr.OnlyDelivery(err) {
		t.Fatalf("got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{6, 32 * time.Minute},
		{7, time.Hour},
		{20, time.Hour},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempts); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestRetrierDeliversDue(t *testing.T) {
	ob := newFakeOutbox()
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	ob.EnqueueOutbox(context.Background(), &model.OutboxMessage{ID: "due", Recipient: "a@test.com", Subject: "s", HTML: "h", Attempts: 1, NextAttemptAt: now.Add(-time.Second)})
	ob.EnqueueOutbox(context.Background(), &model.OutboxMessage{ID: "later", Recipient: "b@test.com", Attempts: 1, NextAttemptAt: now.Add(time.Hour)})

	s := &fakeSender{}
	r := &Retrier{Store: ob, Sender: s, MaxAttempts: 5, now: func() time.Time { return now }}
	n, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 || len(s.msgs) != 1 || s.msgs[0].To != "a@test.com" {
		t.Fatalf("sent %d: %+v", n, s.msgs)
	}
	if ob.rows["due"].SentAt == nil {
		t.Error("due message not marked sent")
	}
	if ob.rows["later"].SentAt != nil {
		t.Error("future message sent early")
	}
}

func TestRetrierReschedulesWithBackoff(t *testing.T) {
	ob := newFakeOutbox()
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	ob.EnqueueOutbox(context.Background(), &model.OutboxMessage{ID: "m", Recipient: "a@test.com", Attempts: 2, NextAttemptAt: now})

	r := &Retrier{Store: ob, Sender: &fakeSender{err: errors.New("timeout")}, MaxAttempts: 5, now: func() time.Time { return now }}
	n, err := r.RunOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("run: n=%d err=%v", n, err)
	}
	m := ob.only(t)
	if m.Attempts != 3 || m.LastError != "timeout" {
		t.Errorf("got %+v", m)
	}
	if !m.NextAttemptAt.Equal(now.Add(4 * time.Minute)) {
		t.Errorf("next attempt: %v", m.NextAttemptAt)
	}
}

func TestRetrierStopsAtMaxAttempts(t *testing.T) {
	ob := newFakeOutbox()
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	ob.EnqueueOutbox(context.Background(), &model.OutboxMessage{ID: "m", Recipient: "a@test.com", Attempts: 5, NextAttemptAt: now})

	s := &fakeSender{}
	r := &Retrier{Store: ob, Sender: s, MaxAttempts: 5, now: func() time.Time { return now }}
	if n, _ := r.RunOnce(context.Background()); n != 0 || len(s.msgs) != 0 {
		t.Errorf("exhausted message was retried")
	}
}

func TestRetrierStartRejectsBadSpec(t *testing.T) {
	r := &Retrier{Store: newFakeOutbox(), Sender: &fakeSender{}, MaxAttempts: 5}
	if _, err := r.Start("not a schedule"); err == nil {
		t.Fatal("expected error for bad cron spec")
	}
	c, err := r.Start("@every 1h")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()
}

func TestSMTPComposeHeaders(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.test", Port: "587", Username: "u@test.com", Password: "p", FromName: "Patty Nails"})
	raw := string(s.compose(Message{To: "ana@test.com", Subject: "Cancelamento de Sessão", HTML: "<p>a</p>\n<p>b</p>"},
		time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)))

	for _, want := range []string{
		"From: Patty Nails <u@test.com>\r\n",
		"To: ana@test.com\r\n",
		"Subject: =?utf-8?q?Cancelamento_de_Sess=C3=A3o?=\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>a</p>\r\n<p>b</p>\r\n",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("missing %q in\n%s", want, raw)
		}
	}
}

func TestSMTPRequiresCredentials(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: "1"})
	if err := s.Send(context.Background(), Message{To: "a@test.com"}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestSMTPStalledServerTimesOut(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	// accept and never greet
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	s := NewSMTPSender(SMTPConfig{Host: host, Port: port, Username: "u", Password: "p", Timeout: 200 * time.Millisecond})

	start := time.Now()
	if err := s.Send(context.Background(), Message{To: "a@test.com"}); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("send blocked for %v", time.Since(start))
	}
}

func TestArmDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	a, b := net.Pipe()
	defer b.Close()
	if err := armDeadline(ctx, a); err != nil {
		t.Fatalf("open conn: %v", err)
	}
	if err := armDeadline(context.Background(), a); err != nil {
		t.Errorf("no deadline: %v", err)
	}

	a.Close()
	if err := armDeadline(ctx, a); err == nil {
		t.Fatal("expected error on a closed conn")
	}
}
