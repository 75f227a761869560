package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/JohanU89-coder/clinica-monteluz/libs/kafkax"
)

func TestMessageUsesEventTypeAsTopic(t *testing.T) {
	msg := Message(context.Background(), Record{
		ID:          7,
		EventID:     "3f1c6a9e-0000-4000-8000-000000000001",
		AggregateID: "42",
		EventType:   TypeAppointmentBooked,
		Payload:     []byte(`{"appointment_id":42}`),
	})
	if msg.Topic != TypeAppointmentBooked {
		t.Fatalf("unexpected topic %q", msg.Topic)
	}
	if string(msg.Key) != "42" {
		t.Fatalf("unexpected key %q", msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "3f1c6a9e-0000-4000-8000-000000000001" || meta.EventType != TypeAppointmentBooked {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestAppointmentEventPayload(t *testing.T) {
	at := time.Date(2026, 10, 12, 14, 0, 0, 0, time.UTC)
	evt, err := AppointmentEvent(TypeAppointmentCancelled, AppointmentPayload{
		AppointmentID:   42,
		PatientID:       "p-1",
		DoctorID:        "d-1",
		AppointmentTime: at,
		Status:          "cancelled",
	})
	if err != nil {
		t.Fatalf("AppointmentEvent: %v", err)
	}
	if evt.AggregateType != "appointment" || evt.AggregateID != "42" || evt.EventType != TypeAppointmentCancelled {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	var body map[string]any
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["appointment_time"] != "2026-10-12T14:00:00Z" || body["status"] != "cancelled" {
		t.Fatalf("unexpected payload %v", body)
	}
	if _, ok := body["booked_by_id"]; ok {
		t.Fatalf("empty booked_by_id should be omitted")
	}
}
