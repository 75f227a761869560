package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/availability"
	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

var (
	// ErrStale is returned by a load whose doctor selection was superseded.
	// Its result has not been applied.
	ErrStale = errors.New("booking: result superseded by a newer selection")
	// ErrBusy rejects a submit while another one is in flight.
	ErrBusy = errors.New("booking: a submission is already in progress")
	// ErrIncomplete rejects a submit without doctor and slot.
	ErrIncomplete = errors.New("booking: doctor and slot must be selected")
)

// SlotSource lists free slots; *Service and the HTTP client implement it.
type SlotSource interface {
	Slots(ctx context.Context, doctorID string, horizonDays int) ([]availability.Slot, error)
}

type Submitter interface {
	Book(ctx context.Context, req BookRequest) (model.Appointment, error)
}

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateSubmitting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// View is a copy of the session state.
type View struct {
	State     State
	DoctorID  string
	PatientID string
	DateKey   string
	Selected  time.Time
	Slots     []availability.Slot
	Booked    *model.Appointment
	Err       error
}

// Session coordinates one user's booking flow: pick a doctor, load slots,
// pick a date and slot, submit. Every doctor selection starts a new
// generation; loads from older generations are cancelled and discarded.
type Session struct {
	source   SlotSource
	submit   Submitter
	callerID string
	horizon  int

	mu         sync.Mutex
	state      State
	submitting bool
	gen        uint64
	cancel     context.CancelFunc
	doctorID   string
	patientID  string
	dateKey    string
	selected   time.Time
	slots      []availability.Slot
	booked     *model.Appointment
	err        error
}

func NewSession(source SlotSource, submit Submitter, callerID string, horizonDays int) *Session {
	if horizonDays <= 0 {
		horizonDays = availability.LongHorizonDays
	}
	return &Session{source: source, submit: submit, callerID: callerID, horizon: horizonDays}
}

// SelectDoctor clears the date and slot selection and loads the doctor's
// slots. It returns ErrStale if another selection happened meanwhile.
func (s *Session) SelectDoctor(ctx context.Context, doctorID string) error {
	doctorID = strings.TrimSpace(doctorID)
	s.mu.Lock()
	s.doctorID = doctorID
	s.dateKey = ""
	s.selected = time.Time{}
	s.slots = nil
	s.booked = nil
	s.err = nil
	if doctorID == "" {
		s.bumpLocked()
		s.state = StateIdle
		s.mu.Unlock()
		return nil
	}
	gen, loadCtx, cancel := s.beginLoadLocked(ctx)
	s.mu.Unlock()
	return s.finishLoad(loadCtx, cancel, gen, doctorID)
}

func (s *Session) beginLoadLocked(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	gen := s.bumpLocked()
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateLoading
	return gen, loadCtx, cancel
}

func (s *Session) finishLoad(ctx context.Context, cancel context.CancelFunc, gen uint64, doctorID string) error {
	slots, err := s.source.Slots(ctx, doctorID, s.horizon)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()
	if gen != s.gen {
		return ErrStale
	}
	s.cancel = nil
	if err != nil {
		s.state = StateError
		s.err = err
		return err
	}
	s.slots = slots
	s.state = StateReady
	if s.dateKey != "" && len(availability.ForDate(slots, s.dateKey)) == 0 {
		s.dateKey = ""
	}
	return nil
}

// bumpLocked starts a new generation and cancels the previous load.
func (s *Session) bumpLocked() uint64 {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return s.gen
}

// ForPatient books for a dependent; an empty id books for the caller.
func (s *Session) ForPatient(patientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patientID = strings.TrimSpace(patientID)
}

func (s *Session) SelectDate(dateKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dateKey = dateKey
	s.selected = time.Time{}
}

// SelectSlot accepts only an instant present in the loaded list.
func (s *Session) SelectSlot(instant time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !availability.Contains(s.slots, instant) {
		return model.ErrSlotUnavailable
	}
	s.selected = instant.UTC()
	if s.dateKey == "" {
		for _, sl := range s.slots {
			if sl.Start.Equal(s.selected) {
				s.dateKey = sl.DateKey
				break
			}
		}
	}
	return nil
}

// Submit books the selected slot. When the slot was taken in the meantime the
// list is regenerated, the selection cleared and model.ErrSlotTaken returned.
func (s *Session) Submit(ctx context.Context) (model.Appointment, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return model.Appointment{}, ErrBusy
	}
	if s.doctorID == "" || s.selected.IsZero() {
		s.mu.Unlock()
		return model.Appointment{}, ErrIncomplete
	}
	req := BookRequest{
		CallerID:  s.callerID,
		PatientID: s.patientID,
		DoctorID:  s.doctorID,
		Start:     s.selected,
	}
	s.state = StateSubmitting
	s.submitting = true
	s.err = nil
	startGen := s.gen
	s.mu.Unlock()

	appt, err := s.submit.Book(ctx, req)

	s.mu.Lock()
	s.submitting = false
	sameDoctor := s.doctorID == req.DoctorID
	switch {
	case err == nil && s.gen != startGen:
		// Another doctor was selected while booking; keep that selection.
		s.booked = &appt
		s.mu.Unlock()
		return appt, nil
	case err == nil:
		s.bumpLocked()
		s.state = StateSuccess
		s.booked = &appt
		s.doctorID, s.patientID, s.dateKey = "", "", ""
		s.selected = time.Time{}
		s.slots = nil
		s.mu.Unlock()
		return appt, nil
	case errors.Is(err, model.ErrSlotTaken) && sameDoctor:
		s.selected = time.Time{}
		gen, loadCtx, cancel := s.beginLoadLocked(ctx)
		s.mu.Unlock()
		lerr := s.finishLoad(loadCtx, cancel, gen, req.DoctorID)
		s.mu.Lock()
		if gen == s.gen && lerr == nil {
			s.err = err
		}
		s.mu.Unlock()
		if lerr != nil && !errors.Is(lerr, ErrStale) {
			return model.Appointment{}, errors.Join(err, lerr)
		}
		return model.Appointment{}, err
	default:
		if sameDoctor {
			s.state = StateError
			s.err = err
		}
		s.mu.Unlock()
		return model.Appointment{}, err
	}
}

// Reset returns to idle and abandons any in-flight load.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumpLocked()
	s.state = StateIdle
	s.doctorID, s.patientID, s.dateKey = "", "", ""
	s.selected = time.Time{}
	s.slots = nil
	s.booked = nil
	s.err = nil
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		State:     s.state,
		DoctorID:  s.doctorID,
		PatientID: s.patientID,
		DateKey:   s.dateKey,
		Selected:  s.selected,
		Slots:     append([]availability.Slot(nil), s.slots...),
		Booked:    s.booked,
		Err:       s.err,
	}
}

func (s *Session) Days() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return availability.Days(s.slots)
}

// SlotsForDate returns the loaded slots of the selected date.
func (s *Session) SlotsForDate() []availability.Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dateKey == "" {
		return []availability.Slot{}
	}
	return availability.ForDate(s.slots, s.dateKey)
}
