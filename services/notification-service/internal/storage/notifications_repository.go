package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

type Notification struct {
	EventID       string
	EventType     string
	AppointmentID int64
	Channel       string
	Recipient     string
	Subject       string
	Payload       json.RawMessage
	Status        string
	Error         string
}

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, n Notification) error {
	payload := n.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	var appointmentID *int64
	if n.AppointmentID > 0 {
		appointmentID = &n.AppointmentID
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO notifications (event_id, event_type, appointment_id, channel, recipient, subject, payload, status, error_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
	`, n.EventID, n.EventType, appointmentID, n.Channel, n.Recipient, n.Subject, []byte(payload), n.Status, n.Error)
	return err
}
