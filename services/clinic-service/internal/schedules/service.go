package schedules

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

type Store interface {
	ListByDoctor(ctx context.Context, doctorID string) ([]model.Schedule, error)
	Create(ctx context.Context, s model.Schedule) (model.Schedule, error)
	Delete(ctx context.Context, doctorID string, id int64) error
}

// Service manages a doctor's weekly availability.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Add stores a window. Unlike the slot generator, writes refuse empty or
// inverted ranges.
func (s *Service) Add(ctx context.Context, doctorID string, day int, start, end string) (model.Schedule, error) {
	doctorID = strings.TrimSpace(doctorID)
	if doctorID == "" {
		return model.Schedule{}, fmt.Errorf("%w: doctor_id is required", model.ErrInvalidInput)
	}
	w, err := availability.ParseWindow(day, start, end)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if w.Empty() {
		return model.Schedule{}, fmt.Errorf("%w: start_time %s must be before end_time %s", model.ErrInvalidInput, w.Start, w.End)
	}
	created, err := s.store.Create(ctx, model.Schedule{
		DoctorID:  doctorID,
		DayOfWeek: day,
		StartTime: w.Start.String(),
		EndTime:   w.End.String(),
	})
	if err != nil {
		return model.Schedule{}, err
	}
	s.logger.Info("schedule added", "doctor_id", doctorID, "schedule_id", created.ID, "day_of_week", day)
	return created, nil
}

// List returns windows by weekday, then start time.
func (s *Service) List(ctx context.Context, doctorID string) ([]model.Schedule, error) {
	rows, err := s.store.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DayOfWeek != rows[j].DayOfWeek {
			return rows[i].DayOfWeek < rows[j].DayOfWeek
		}
		return clockMinutes(rows[i].StartTime) < clockMinutes(rows[j].StartTime)
	})
	return rows, nil
}

func clockMinutes(raw string) int {
	c, err := availability.ParseClock(raw)
	if err != nil {
		return -1
	}
	return c.Minutes()
}

func (s *Service) Delete(ctx context.Context, doctorID string, id int64) error {
	if err := s.store.Delete(ctx, doctorID, id); err != nil {
		return err
	}
	s.logger.Info("schedule deleted", "doctor_id", doctorID, "schedule_id", id)
	return nil
}
