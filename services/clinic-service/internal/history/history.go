package history

import (
	"context"
	"sort"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

// PatientRef is one row of a doctor's patient list.
type PatientRef struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	LastVisit time.Time `json:"last_visit"`
}

// UniquePatients keeps the first appointment seen per patient, in input order.
// With past appointments sorted newest first that is the latest visit.
func UniquePatients(past []model.Appointment) []PatientRef {
	seen := make(map[string]struct{}, len(past))
	out := make([]PatientRef, 0)
	for _, a := range past {
		if _, ok := seen[a.PatientID]; ok {
			continue
		}
		seen[a.PatientID] = struct{}{}
		out = append(out, PatientRef{ID: a.PatientID, Name: a.PatientName, LastVisit: a.Time})
	}
	return out
}

type Source interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error)
}

type Service struct {
	src Source
	now func() time.Time
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Patients lists everyone the doctor has already seen or had cancelled.
func (s *Service) Patients(ctx context.Context, doctorID string) ([]PatientRef, error) {
	appts, err := s.src.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	past := make([]model.Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Time.Before(now) || a.Status != model.StatusScheduled {
			past = append(past, a)
		}
	}
	sortNewestFirst(past)
	return UniquePatients(past), nil
}

// PatientHistory returns the patient's appointments with the doctor, newest first.
func (s *Service) PatientHistory(ctx context.Context, doctorID, patientID string) ([]model.Appointment, error) {
	appts, err := s.src.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Appointment, 0)
	for _, a := range appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, model.ErrNotFound
	}
	sortNewestFirst(out)
	return out, nil
}

func sortNewestFirst(appts []model.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool { return appts[i].Time.After(appts[j].Time) })
}
