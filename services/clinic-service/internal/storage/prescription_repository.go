package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type PrescriptionRepository struct {
	pool *db.Pool
}

func NewPrescriptionRepository(pool *db.Pool) *PrescriptionRepository {
	return &PrescriptionRepository{pool: pool}
}

// Create inserts the header and every item inside tx.
func (r *PrescriptionRepository) Create(ctx context.Context, tx pgx.Tx, p model.Prescription) (model.Prescription, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO prescriptions (appointment_id, patient_id, doctor_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.AppointmentID, p.PatientID, p.DoctorID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return model.Prescription{}, Classify(err)
	}

	batch := &pgx.Batch{}
	for _, it := range p.Items {
		batch.Queue(`
			INSERT INTO prescription_items (prescription_id, medication, dosage, frequency, duration, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, p.ID, it.Medication, it.Dosage, it.Frequency, it.Duration, it.Notes)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range p.Items {
		if err := results.QueryRow().Scan(&p.Items[i].ID); err != nil {
			_ = results.Close()
			return model.Prescription{}, Classify(err)
		}
		p.Items[i].PrescriptionID = p.ID
	}
	if err := results.Close(); err != nil {
		return model.Prescription{}, Classify(err)
	}
	return p, nil
}

func (r *PrescriptionRepository) Get(ctx context.Context, id int64) (model.Prescription, error) {
	return r.getWhere(ctx, `pr.id = $1`, id)
}

func (r *PrescriptionRepository) GetByAppointment(ctx context.Context, appointmentID int64) (model.Prescription, error) {
	return r.getWhere(ctx, `pr.appointment_id = $1`, appointmentID)
}

func (r *PrescriptionRepository) getWhere(ctx context.Context, where string, arg int64) (model.Prescription, error) {
	var p model.Prescription
	err := r.pool.QueryRow(ctx, `
		SELECT pr.id, pr.appointment_id, pr.patient_id::text, pr.doctor_id::text, pr.created_at,
			COALESCE(pp.full_name, dep.full_name, ''), COALESCE(d.full_name, '')
		FROM prescriptions pr
		LEFT JOIN profiles pp ON pp.id = pr.patient_id
		LEFT JOIN dependents dep ON dep.id = pr.patient_id
		LEFT JOIN profiles d ON d.id = pr.doctor_id
		WHERE `+where+`
		ORDER BY pr.created_at DESC
		LIMIT 1
	`, arg).Scan(&p.ID, &p.AppointmentID, &p.PatientID, &p.DoctorID, &p.CreatedAt, &p.PatientName, &p.DoctorName)
	if err != nil {
		return model.Prescription{}, Classify(err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, prescription_id, medication, COALESCE(dosage, ''), COALESCE(frequency, ''),
			COALESCE(duration, ''), COALESCE(notes, '')
		FROM prescription_items
		WHERE prescription_id = $1
		ORDER BY id
	`, p.ID)
	if err != nil {
		return model.Prescription{}, Classify(err)
	}
	defer rows.Close()

	p.Items = make([]model.PrescriptionItem, 0)
	for rows.Next() {
		var it model.PrescriptionItem
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.Medication, &it.Dosage, &it.Frequency, &it.Duration, &it.Notes); err != nil {
			return model.Prescription{}, err
		}
		p.Items = append(p.Items, it)
	}
	if rows.Err() != nil {
		return model.Prescription{}, rows.Err()
	}
	return p, nil
}
