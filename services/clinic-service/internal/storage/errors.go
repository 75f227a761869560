package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

// PostgreSQL error codes the clinic schema relies on.
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeInsufficientPriv   = "42501"
	codeRaiseException     = "P0001"
)

// Classify maps driver errors onto model sentinels. Errors it does not
// recognise are returned unchanged and treated as transient by callers.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %v", model.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation, codeExclusionViolation:
		return fmt.Errorf("%w: %s", model.ErrSlotTaken, pgErr.ConstraintName)
	case codeInsufficientPriv:
		return fmt.Errorf("%w: %s", model.ErrPermissionDenied, pgErr.Message)
	case codeRaiseException:
		return &model.RejectedError{Message: pgErr.Message}
	default:
		return err
	}
}

// IsConflict reports a lost race on (doctor_id, appointment_time).
func IsConflict(err error) bool {
	return errors.Is(Classify(err), model.ErrSlotTaken)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, model.ErrNotFound)
}
