package model

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Appointment struct {
	ID              int64     `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	BookedByID      string    `json:"booked_by_id,omitempty"`
	Time            time.Time `json:"appointment_time"`
	Status          string    `json:"status"`
	Diagnosis       string    `json:"diagnosis,omitempty"`
	Rating          *int      `json:"rating,omitempty"`
	Feedback        string    `json:"feedback,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	DoctorName      string    `json:"doctor_name,omitempty"`
	PatientName     string    `json:"patient_name,omitempty"`
	SpecialtyName   string    `json:"specialty_name,omitempty"`
	HasPrescription bool      `json:"has_prescription"`
}

// NewAppointment is what a booking inserts.
type NewAppointment struct {
	PatientID  string
	DoctorID   string
	BookedByID string
	Time       time.Time
}

// NormalizeStatus folds the legacy "canceled" spelling into StatusCancelled.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "canceled" {
		return StatusCancelled
	}
	return s
}
