package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JohanU89-coder/clinica-monteluz/libs/db"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type ProfileRepository struct {
	pool *db.Pool
}

func NewProfileRepository(pool *db.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

const profileSelect = `
	SELECT p.id::text, COALESCE(p.email, ''), COALESCE(p.full_name, ''), p.role,
		p.specialty_id, COALESCE(s.name, ''), COALESCE(p.license_number, ''),
		(SELECT AVG(a.rating)::float8 FROM appointments a WHERE a.doctor_id = p.id AND a.rating IS NOT NULL),
		p.created_at
	FROM profiles p
	LEFT JOIN specialties s ON s.id = p.specialty_id
`

func scanProfile(row pgx.Row) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.SpecialtyID, &p.SpecialtyName,
		&p.LicenseNumber, &p.AverageRating, &p.CreatedAt)
	return p, err
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return model.Profile{}, Classify(err)
	}
	return p, nil
}

// ListDoctors returns doctors by name, optionally only those of one specialty.
func (r *ProfileRepository) ListDoctors(ctx context.Context, specialtyID *int64) ([]model.Profile, error) {
	rows, err := r.pool.Query(ctx, profileSelect+`
		WHERE p.role = 'doctor' AND ($1::bigint IS NULL OR p.specialty_id = $1)
		ORDER BY p.full_name
	`, specialtyID)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	out := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ProfileRepository) Update(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET full_name = COALESCE($2, full_name),
			specialty_id = COALESCE($3, specialty_id),
			license_number = COALESCE($4, license_number)
		WHERE id = $1
	`, id, upd.FullName, upd.SpecialtyID, upd.LicenseNumber)
	if err != nil {
		return model.Profile{}, Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return model.Profile{}, model.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Contact is who receives notices about a patient's appointments. For a
// dependent that is the guardian's address.
type Contact struct {
	Name  string
	Email string
}

func (r *ProfileRepository) Contact(ctx context.Context, patientID string) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(p.full_name, dep.full_name, ''), COALESCE(p.email, g.email, '')
		FROM (SELECT $1::uuid AS id) x
		LEFT JOIN profiles p ON p.id = x.id
		LEFT JOIN dependents dep ON dep.id = x.id
		LEFT JOIN profiles g ON g.id = dep.guardian_id
	`, patientID).Scan(&c.Name, &c.Email)
	if err != nil {
		return Contact{}, Classify(err)
	}
	return c, nil
}

type SpecialtyRepository struct {
	pool *db.Pool
}

func NewSpecialtyRepository(pool *db.Pool) *SpecialtyRepository {
	return &SpecialtyRepository{pool: pool}
}

func (r *SpecialtyRepository) List(ctx context.Context) ([]model.Specialty, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(description, '') FROM specialties ORDER BY name`)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	out := make([]model.Specialty, 0)
	for rows.Next() {
		var s model.Specialty
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

type DependentRepository struct {
	pool *db.Pool
}

func NewDependentRepository(pool *db.Pool) *DependentRepository {
	return &DependentRepository{pool: pool}
}

func (r *DependentRepository) ListByGuardian(ctx context.Context, guardianID string) ([]model.Dependent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, full_name, guardian_id::text
		FROM dependents
		WHERE guardian_id = $1
		ORDER BY full_name
	`, guardianID)
	if err != nil {
		return nil, Classify(err)
	}
	defer rows.Close()

	out := make([]model.Dependent, 0)
	for rows.Next() {
		var d model.Dependent
		if err := rows.Scan(&d.ID, &d.FullName, &d.GuardianID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *DependentRepository) Create(ctx context.Context, guardianID, fullName string) (model.Dependent, error) {
	d := model.Dependent{ID: uuid.NewString(), FullName: fullName, GuardianID: guardianID}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dependents (id, full_name, guardian_id) VALUES ($1, $2, $3)
	`, d.ID, d.FullName, d.GuardianID)
	if err != nil {
		return model.Dependent{}, Classify(err)
	}
	return d, nil
}

func (r *DependentRepository) IsGuardianOf(ctx context.Context, guardianID, dependentID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM dependents WHERE id = $1 AND guardian_id = $2)
	`, dependentID, guardianID).Scan(&ok)
	if err != nil {
		return false, Classify(err)
	}
	return ok, nil
}
