package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
)

// IdempotencyRecord is the stored outcome of a booking submitted with an
// Idempotency-Key header. StatusCode is zero until the first attempt finishes.
type IdempotencyRecord struct {
	CallerID        string
	Key             string
	AppointmentID   int64
	StatusCode      int
	ResponsePayload []byte
}

func (r IdempotencyRecord) Done() bool { return r.StatusCode > 0 }

type IdempotencyRepository struct {
	pool *db.Pool
}

func NewIdempotencyRepository(pool *db.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Lock claims (callerID, key) for the duration of tx, creating the row when
// absent. A concurrent request with the same key waits on the row lock.
func (r *IdempotencyRepository) Lock(ctx context.Context, tx pgx.Tx, callerID, key string) (IdempotencyRecord, error) {
	rec, err := r.selectForUpdate(ctx, tx, callerID, key)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (caller_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (caller_id, idempotency_key) DO NOTHING
	`, callerID, key)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	return r.selectForUpdate(ctx, tx, callerID, key)
}

func (r *IdempotencyRepository) Finalize(ctx context.Context, tx pgx.Tx, rec IdempotencyRecord) error {
	var apptID *int64
	if rec.AppointmentID > 0 {
		apptID = &rec.AppointmentID
	}
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE caller_id = $1 AND idempotency_key = $2
	`, rec.CallerID, rec.Key, apptID, rec.StatusCode, rec.ResponsePayload)
	return err
}

func (r *IdempotencyRepository) selectForUpdate(ctx context.Context, tx pgx.Tx, callerID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var payload string
	err := tx.QueryRow(ctx, `
		SELECT caller_id::text,
			idempotency_key,
			COALESCE(appointment_id, 0),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE caller_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, callerID, key).Scan(&rec.CallerID, &rec.Key, &rec.AppointmentID, &rec.StatusCode, &payload)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if payload != "" {
		rec.ResponsePayload = []byte(payload)
	}
	return rec, nil
}
