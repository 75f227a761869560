package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Patients may be profiles or dependents, so the name comes from whichever matches.
const appointmentSelect = `
	SELECT a.id, a.patient_id::text, a.doctor_id::text, COALESCE(a.booked_by_id::text, ''),
		a.appointment_time, a.status, COALESCE(a.diagnosis, ''), a.rating, COALESCE(a.feedback, ''),
		a.created_at,
		COALESCE(d.full_name, ''),
		COALESCE(p.full_name, dep.full_name, ''),
		COALESCE(s.name, ''),
		EXISTS (SELECT 1 FROM prescriptions pr WHERE pr.appointment_id = a.id)
	FROM appointments a
	LEFT JOIN profiles d ON d.id = a.doctor_id
	LEFT JOIN specialties s ON s.id = d.specialty_id
	LEFT JOIN profiles p ON p.id = a.patient_id
	LEFT JOIN dependents dep ON dep.id = a.patient_id
`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.BookedByID,
		&a.Time,
		&a.Status,
		&a.Diagnosis,
		&a.Rating,
		&a.Feedback,
		&a.CreatedAt,
		&a.DoctorName,
		&a.PatientName,
		&a.SpecialtyName,
		&a.HasPrescription,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Time = a.Time.UTC()
	a.Status = model.NormalizeStatus(a.Status)
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	out := make([]model.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// BookedInstants returns the start of every scheduled appointment of the
// doctor at or after since, in UTC.
func (r *AppointmentRepository) BookedInstants(ctx context.Context, doctorID string, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE doctor_id = $1
			AND status = 'scheduled'
			AND appointment_time >= $2
		ORDER BY appointment_time
	`, doctorID, since)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	out := make([]time.Time, 0)
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Create inserts a scheduled appointment. A concurrent booking of the same
// doctor and instant fails with model.ErrSlotTaken.
func (r *AppointmentRepository) Create(ctx context.Context, tx pgx.Tx, in model.NewAppointment) (model.Appointment, error) {
	var bookedBy *string
	if in.BookedByID != "" {
		bookedBy = &in.BookedByID
	}
	a := model.Appointment{
		PatientID:  in.PatientID,
		DoctorID:   in.DoctorID,
		BookedByID: in.BookedByID,
		Status:     model.StatusScheduled,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, booked_by_id, appointment_time, status)
		VALUES ($1, $2, $3, $4, 'scheduled')
		RETURNING id, appointment_time, created_at
	`, in.PatientID, in.DoctorID, bookedBy, in.Time.UTC()).Scan(&a.ID, &a.Time, &a.CreatedAt)
	if err != nil {
		return model.Appointment{}, Classify(err)
	}
	a.Time = a.Time.UTC()
	return a, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id int64) (model.Appointment, error) {
	a, err := scanAppointment(r.pool.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return model.Appointment{}, Classify(err)
	}
	return a, nil
}

// GetForUpdate locks the appointment row for the rest of tx.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id int64) (model.Appointment, error) {
	a, err := scanAppointment(tx.QueryRow(ctx, appointmentSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if err != nil {
		return model.Appointment{}, Classify(err)
	}
	return a, nil
}

// ListByPatients returns appointments of any of the given patients, newest first.
func (r *AppointmentRepository) ListByPatients(ctx context.Context, patientIDs []string) ([]model.Appointment, error) {
	if len(patientIDs) == 0 {
		return []model.Appointment{}, nil
	}
	rows, err := r.pool.Query(ctx, appointmentSelect+`
		WHERE a.patient_id = ANY($1::uuid[])
		ORDER BY a.appointment_time DESC
	`, patientIDs)
	if err != nil {
		return nil, Classify(err)
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, appointmentSelect+`
		WHERE a.doctor_id = $1
		ORDER BY a.appointment_time DESC
	`, doctorID)
	if err != nil {
		return nil, Classify(err)
	}
	return collectAppointments(rows)
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status string) error {
	return r.exec(ctx, tx, `UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
}

func (r *AppointmentRepository) UpdateNotes(ctx context.Context, tx pgx.Tx, id int64, diagnosis string) error {
	return r.exec(ctx, tx, `UPDATE appointments SET diagnosis = $2 WHERE id = $1`, id, diagnosis)
}

func (r *AppointmentRepository) UpdateFeedback(ctx context.Context, tx pgx.Tx, id int64, rating int, feedback string) error {
	return r.exec(ctx, tx, `UPDATE appointments SET rating = $2, feedback = $3 WHERE id = $1`, id, rating, feedback)
}

func (r *AppointmentRepository) exec(ctx context.Context, tx pgx.Tx, sql string, args ...any) error {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
