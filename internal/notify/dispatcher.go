package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/google/uuid"

	"salon-booking/internal/apperr"
	"salon-booking/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"formatDate": func(t time.Time) string { return t.Format("02/01/2006") },
	"formatTime": func(t time.Time) string { return t.Format("15:04") },
}

var templates = template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

type Message struct {
	To      string
	Subject string
	HTML    string
}

// MailSender hands a rendered message to an outbound transport.
type MailSender interface {
	Send(ctx context.Context, m Message) error
}

// Outbox stores messages whose first delivery failed.
type Outbox interface {
	EnqueueOutbox(ctx context.Context, m *model.OutboxMessage) error
}

type Dispatcher struct {
	sender MailSender
	outbox Outbox
	now    func() time.Time
}

func NewDispatcher(sender MailSender, outbox Outbox) *Dispatcher {
	return &Dispatcher{sender: sender, outbox: outbox, now: time.Now}
}

// Render turns a notice into a message without sending it.
func Render(n Notice) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(n.Template())+".html", n); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", n.Template(), err)
	}
	return Message{
		To:      n.Recipient().Email,
		Subject: n.subject(),
		HTML:    buf.String(),
	}, nil
}

// Send renders n and delivers it. A failed delivery is logged, queued for
// retry when an outbox is configured, and returned as a delivery error.
func (d *Dispatcher) Send(ctx context.Context, n Notice) error {
	msg, err := Render(n)
	if err != nil {
		return apperr.Delivery(n.Recipient().Email, err)
	}

	err = d.sender.Send(ctx, msg)
	if err == nil {
		return nil
	}
	log.Printf("notify: %s to %s failed: %v", n.Template(), msg.To, err)

	if d.outbox != nil {
		now := d.now()
		qerr := d.outbox.EnqueueOutbox(ctx, &model.OutboxMessage{
			ID:            uuid.New().String(),
			Recipient:     msg.To,
			Subject:       msg.Subject,
			HTML:          msg.HTML,
			Attempts:      1,
			LastError:     err.Error(),
			NextAttemptAt: now.Add(backoff(1)),
			CreatedAt:     now,
		})
		if qerr != nil {
			log.Printf("notify: outbox enqueue for %s: %v", msg.To, qerr)
		}
	}
	return apperr.Delivery(msg.To, err)
}

// backoff doubles from one minute per attempt, capped at an hour.
func backoff(attempts int) time.Duration {
	d := time.Minute
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}
