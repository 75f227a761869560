package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type Profiles interface {
	Get(ctx context.Context, id string) (model.Profile, error)
	ListDoctors(ctx context.Context, specialtyID *int64) ([]model.Profile, error)
	Update(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error)
}

type Specialties interface {
	List(ctx context.Context) ([]model.Specialty, error)
}

type Dependents interface {
	ListByGuardian(ctx context.Context, guardianID string) ([]model.Dependent, error)
	Create(ctx context.Context, guardianID, fullName string) (model.Dependent, error)
}

// Service serves the clinic's reference data: specialties, doctors, the
// caller's profile and the family members they manage.
type Service struct {
	profiles    Profiles
	specialties Specialties
	dependents  Dependents
}

func NewService(profiles Profiles, specialties Specialties, dependents Dependents) *Service {
	return &Service{profiles: profiles, specialties: specialties, dependents: dependents}
}

func (s *Service) Specialties(ctx context.Context) ([]model.Specialty, error) {
	return s.specialties.List(ctx)
}

func (s *Service) Doctors(ctx context.Context, specialtyID *int64) ([]model.Profile, error) {
	return s.profiles.ListDoctors(ctx, specialtyID)
}

func (s *Service) Profile(ctx context.Context, id string) (model.Profile, error) {
	return s.profiles.Get(ctx, id)
}

// UpdateProfile trims the editable fields. Specialty and license only apply
// to doctors.
func (s *Service) UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error) {
	current, err := s.profiles.Get(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return model.Profile{}, fmt.Errorf("%w: full_name cannot be empty", model.ErrInvalidInput)
		}
		upd.FullName = &name
	}
	if upd.LicenseNumber != nil {
		lic := strings.TrimSpace(*upd.LicenseNumber)
		upd.LicenseNumber = &lic
	}
	if current.Role != model.RoleDoctor && (upd.SpecialtyID != nil || upd.LicenseNumber != nil) {
		return model.Profile{}, fmt.Errorf("%w: only doctors have a specialty or license number", model.ErrInvalidInput)
	}
	return s.profiles.Update(ctx, id, upd)
}

func (s *Service) Dependents(ctx context.Context, guardianID string) ([]model.Dependent, error) {
	return s.dependents.ListByGuardian(ctx, guardianID)
}

func (s *Service) AddDependent(ctx context.Context, guardianID, fullName string) (model.Dependent, error) {
	fullName = strings.Join(strings.Fields(fullName), " ")
	if fullName == "" {
		return model.Dependent{}, fmt.Errorf("%w: full_name is required", model.ErrInvalidInput)
	}
	return s.dependents.Create(ctx, guardianID, fullName)
}
