package model

import "time"

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

type Profile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Role          string    `json:"role"`
	SpecialtyID   *int64    `json:"specialty_id,omitempty"`
	SpecialtyName string    `json:"specialty_name,omitempty"`
	LicenseNumber string    `json:"license_number,omitempty"`
	AverageRating *float64  `json:"average_rating,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProfileUpdate holds the editable fields; nil means unchanged.
type ProfileUpdate struct {
	FullName      *string
	SpecialtyID   *int64
	LicenseNumber *string
}

type Specialty struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Dependent is a patient without an account, managed by a guardian profile.
type Dependent struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	GuardianID string `json:"guardian_id"`
}
