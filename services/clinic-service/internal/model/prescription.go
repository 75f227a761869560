package model

import "time"

type Prescription struct {
	ID            int64              `json:"id"`
	AppointmentID int64              `json:"appointment_id"`
	PatientID     string             `json:"patient_id"`
	DoctorID      string             `json:"doctor_id"`
	CreatedAt     time.Time          `json:"created_at"`
	Items         []PrescriptionItem `json:"items"`
	PatientName   string             `json:"patient_name,omitempty"`
	DoctorName    string             `json:"doctor_name,omitempty"`
}

type PrescriptionItem struct {
	ID             int64  `json:"id"`
	PrescriptionID int64  `json:"prescription_id"`
	Medication     string `json:"medication"`
	Dosage         string `json:"dosage,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
	Duration       string `json:"duration,omitempty"`
	Notes          string `json:"notes,omitempty"`
}
