package storage

import (
	"context"

	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// ListByDoctor returns the doctor's weekly windows. Times are read as text so
// the generator parses them itself and can report malformed rows.
func (r *ScheduleRepository) ListByDoctor(ctx context.Context, doctorID string) ([]model.Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id::text, day_of_week, start_time::text, end_time::text
		FROM schedules
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_time
	`, doctorID)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	out := make([]model.Schedule, 0)
	for rows.Next() {
		var s model.Schedule
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ScheduleRepository) Create(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO schedules (doctor_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3::time, $4::time)
		RETURNING id, doctor_id::text, day_of_week, start_time::text, end_time::text
	`, s.DoctorID, s.DayOfWeek, s.StartTime, s.EndTime).Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime)
	if err != nil {
		return model.Schedule{}, Classify(err)
	}
	return s, nil
}

// Delete removes a window owned by doctorID; other doctors' rows are not found.
func (r *ScheduleRepository) Delete(ctx context.Context, doctorID string, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1 AND doctor_id = $2`, id, doctorID)
	if err != nil {
		return Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
