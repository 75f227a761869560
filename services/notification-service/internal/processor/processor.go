package processor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JohanU89-coder/clinica-monteluz/libs/kafkax"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/email"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/storage"
	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/templates"
	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
)

type Transactor interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

type Inbox interface {
	Record(ctx context.Context, tx pgx.Tx, eventID, eventType string) (bool, error)
}

type Store interface {
	Insert(ctx context.Context, tx pgx.Tx, n storage.Notification) error
}

type Renderer interface {
	Render(eventType string, payload []byte) (templates.Rendered, error)
}

type Processor struct {
	tx       Transactor
	inbox    Inbox
	store    Store
	renderer Renderer
	sender   email.Sender
	logger   *slog.Logger
}

func New(tx Transactor, inbox Inbox, store Store, renderer Renderer, sender email.Sender, logger *slog.Logger) *Processor {
	return &Processor{tx: tx, inbox: inbox, store: store, renderer: renderer, sender: sender, logger: logger}
}

// Handle sends at most one e-mail per event id. Every attempt, sent or not,
// leaves a notifications row; a database error rolls back and is returned.
func (p *Processor) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	return p.tx.InTx(ctx, func(tx pgx.Tx) error {
		fresh, err := p.inbox.Record(ctx, tx, meta.EventID, meta.EventType)
		if err != nil {
			return err
		}
		if !fresh {
			p.logger.InfoContext(ctx, "duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return nil
		}

		n := storage.Notification{
			EventID:   meta.EventID,
			EventType: meta.EventType,
			Channel:   "email",
			Payload:   msg.Value,
		}
		rendered, err := p.renderer.Render(meta.EventType, msg.Value)
		n.AppointmentID = rendered.AppointmentID
		switch {
		case errors.Is(err, templates.ErrNoRecipient), errors.Is(err, templates.ErrUnsupported):
			n.Status = storage.StatusSkipped
			n.Error = err.Error()
		case err != nil:
			n.Status = storage.StatusFailed
			n.Error = err.Error()
			p.logger.ErrorContext(ctx, "invalid event payload", "event_id", meta.EventID, "err", err)
		default:
			n.Recipient = rendered.Message.To
			n.Subject = rendered.Message.Subject
			if err := p.sender.Send(ctx, rendered.Message); err != nil {
				n.Status = storage.StatusFailed
				n.Error = err.Error()
				p.logger.ErrorContext(ctx, "email send failed", "event_id", meta.EventID, "recipient", n.Recipient, "err", err)
			} else {
				n.Status = storage.StatusSent
			}
		}

		if err := p.store.Insert(ctx, tx, n); err != nil {
			return err
		}
		p.logger.InfoContext(ctx, "notification processed",
			"event_id", meta.EventID,
			"event_type", meta.EventType,
			"appointment_id", n.AppointmentID,
			"status", n.Status,
			"provider", p.sender.ProviderID(),
		)
		return nil
	})
}
