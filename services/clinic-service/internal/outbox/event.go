package outbox

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Event types double as Kafka topic names.
const (
	TypeAppointmentBooked    = "clinic.appointment.booked.v1"
	TypeAppointmentCancelled = "clinic.appointment.cancelled.v1"
	TypeAppointmentCompleted = "clinic.appointment.completed.v1"
	TypePrescriptionIssued   = "clinic.prescription.issued.v1"
)

// Event is the envelope written to outbox_events. EventID is generated on
// insert when empty.
type Event struct {
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the body of every clinic.appointment.* event.
type AppointmentPayload struct {
	AppointmentID   int64     `json:"appointment_id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	BookedByID      string    `json:"booked_by_id,omitempty"`
	AppointmentTime time.Time `json:"appointment_time"`
	Status          string    `json:"status"`
	PatientName     string    `json:"patient_name,omitempty"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	RecipientEmail  string    `json:"recipient_email,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type PrescriptionPayload struct {
	PrescriptionID int64     `json:"prescription_id"`
	AppointmentID  int64     `json:"appointment_id"`
	PatientID      string    `json:"patient_id"`
	DoctorID       string    `json:"doctor_id"`
	Medications    []string  `json:"medications"`
	PatientName    string    `json:"patient_name,omitempty"`
	DoctorName     string    `json:"doctor_name,omitempty"`
	RecipientEmail string    `json:"recipient_email,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func AppointmentEvent(eventType string, p AppointmentPayload) (Event, error) {
	return newEvent("appointment", p.AppointmentID, eventType, p)
}

func PrescriptionEvent(p PrescriptionPayload) (Event, error) {
	return newEvent("prescription", p.PrescriptionID, TypePrescriptionIssued, p)
}

func newEvent(aggregate string, id int64, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregate,
		AggregateID:   strconv.FormatInt(id, 10),
		EventType:     eventType,
		Payload:       body,
	}, nil
}
