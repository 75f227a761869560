package model

// Schedule is one weekly availability row. Times are wall-clock "HH:MM" or
// "HH:MM:SS" in the clinic timezone; DayOfWeek 0 is Sunday.
type Schedule struct {
	ID        int64  `json:"id"`
	DoctorID  string `json:"doctor_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
