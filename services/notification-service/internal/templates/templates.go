// Package templates turns clinic events into Spanish e-mail bodies.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/services/notification-service/internal/email"
)

const (
	TypeAppointmentBooked    = "clinic.appointment.booked.v1"
	TypeAppointmentCancelled = "clinic.appointment.cancelled.v1"
	TypePrescriptionIssued   = "clinic.prescription.issued.v1"
)

var (
	ErrUnsupported = errors.New("unsupported event type")
	ErrNoRecipient = errors.New("event has no recipient email")
)

var (
	weekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	months   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
		"agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

type appointmentEvent struct {
	AppointmentID   int64     `json:"appointment_id"`
	AppointmentTime time.Time `json:"appointment_time"`
	PatientName     string    `json:"patient_name"`
	DoctorName      string    `json:"doctor_name"`
	RecipientEmail  string    `json:"recipient_email"`
}

type prescriptionEvent struct {
	PrescriptionID int64    `json:"prescription_id"`
	AppointmentID  int64    `json:"appointment_id"`
	Medications    []string `json:"medications"`
	PatientName    string   `json:"patient_name"`
	DoctorName     string   `json:"doctor_name"`
	RecipientEmail string   `json:"recipient_email"`
}

// Rendered is a message ready to send plus the appointment it concerns.
type Rendered struct {
	Message       email.Message
	AppointmentID int64
}

type Renderer struct {
	loc    *time.Location
	clinic string
}

func NewRenderer(loc *time.Location, clinic string) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	if clinic == "" {
		clinic = "Clínica Monteluz"
	}
	return &Renderer{loc: loc, clinic: clinic}
}

func (r *Renderer) Render(eventType string, payload []byte) (Rendered, error) {
	switch eventType {
	case TypeAppointmentBooked, TypeAppointmentCancelled:
		var evt appointmentEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return Rendered{}, fmt.Errorf("decode %s: %w", eventType, err)
		}
		if strings.TrimSpace(evt.RecipientEmail) == "" {
			return Rendered{AppointmentID: evt.AppointmentID}, ErrNoRecipient
		}
		return Rendered{Message: r.appointment(eventType, evt), AppointmentID: evt.AppointmentID}, nil
	case TypePrescriptionIssued:
		var evt prescriptionEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return Rendered{}, fmt.Errorf("decode %s: %w", eventType, err)
		}
		if strings.TrimSpace(evt.RecipientEmail) == "" {
			return Rendered{AppointmentID: evt.AppointmentID}, ErrNoRecipient
		}
		return Rendered{Message: r.prescription(evt), AppointmentID: evt.AppointmentID}, nil
	default:
		return Rendered{}, fmt.Errorf("%w: %s", ErrUnsupported, eventType)
	}
}

func (r *Renderer) appointment(eventType string, evt appointmentEvent) email.Message {
	when := r.when(evt.AppointmentTime)
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", orDefault(evt.PatientName, "paciente"))
	var subject string
	if eventType == TypeAppointmentBooked {
		subject = fmt.Sprintf("Cita confirmada: %s", when)
		fmt.Fprintf(&b, "Tu cita con %s quedó registrada para el %s.\n", orDefault(evt.DoctorName, "tu médico"), when)
		b.WriteString("Por favor llega 10 minutos antes. Puedes descargar tu ticket desde la aplicación.\n")
	} else {
		subject = fmt.Sprintf("Cita cancelada: %s", when)
		fmt.Fprintf(&b, "Tu cita con %s del %s fue cancelada.\n", orDefault(evt.DoctorName, "tu médico"), when)
		b.WriteString("Si deseas, puedes reservar un nuevo horario desde la aplicación.\n")
	}
	fmt.Fprintf(&b, "\nNúmero de cita: %d\n\n%s\n", evt.AppointmentID, r.clinic)
	return email.Message{To: evt.RecipientEmail, Subject: subject, Body: b.String()}
}

func (r *Renderer) prescription(evt prescriptionEvent) email.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\n", orDefault(evt.PatientName, "paciente"))
	fmt.Fprintf(&b, "%s emitió una receta para tu cita %d:\n\n", orDefault(evt.DoctorName, "Tu médico"), evt.AppointmentID)
	for _, m := range evt.Medications {
		fmt.Fprintf(&b, "  - %s\n", m)
	}
	fmt.Fprintf(&b, "\nPuedes descargarla en PDF desde la aplicación.\n\n%s\n", r.clinic)
	return email.Message{
		To:      evt.RecipientEmail,
		Subject: fmt.Sprintf("Nueva receta médica (cita %d)", evt.AppointmentID),
		Body:    b.String(),
	}
}

// when renders "lunes 12 de octubre a las 09:30".
func (r *Renderer) when(t time.Time) string {
	t = t.In(r.loc)
	return fmt.Sprintf("%s %d de %s a las %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1], t.Format("15:04"))
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
