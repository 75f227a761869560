package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

const displayTime = "02/01/2006 03:04 PM"

// Renderer writes documents with times shown in the clinic timezone.
type Renderer struct {
	loc    *time.Location
	clinic string
}

func NewRenderer(loc *time.Location, clinicName string) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	if clinicName == "" {
		clinicName = "Clínica Monteluz"
	}
	return &Renderer{loc: loc, clinic: clinicName}
}

func (r *Renderer) when(t time.Time) string { return t.In(r.loc).Format(displayTime) }

// Ticket renders the appointment ticket on a 600x400pt page.
func (r *Renderer) Ticket(w io.Writer, a model.Appointment) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: 600, Ht: 400},
	})
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(50, 40, 50)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 30)
	pdf.CellFormat(0, 40, tr(fmt.Sprintf("Ticket #%d", a.ID)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 20)
	for _, line := range []string{
		"Fecha y hora: " + r.when(a.Time),
		"Doctor: Dr. " + orDash(a.DoctorName),
		"Paciente: " + orDash(a.PatientName),
		"Especialidad: " + orDash(a.SpecialtyName),
	} {
		pdf.CellFormat(0, 32, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(16)
	pdf.SetFont("Helvetica", "I", 11)
	pdf.CellFormat(0, 14, tr(r.clinic+" - presente este ticket en recepción"), "", 1, "L", false, 0, "")

	return output(pdf, w)
}

// PrescriptionDocument renders a prescription as an A4 page with one block per item.
func (r *Renderer) PrescriptionDocument(w io.Writer, a model.Appointment, p model.Prescription) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.clinic), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 13)
	pdf.CellFormat(0, 8, tr("Receta médica"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	doctor := p.DoctorName
	if doctor == "" {
		doctor = a.DoctorName
	}
	patient := p.PatientName
	if patient == "" {
		patient = a.PatientName
	}
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		fmt.Sprintf("Receta #%d - Cita #%d", p.ID, a.ID),
		"Fecha de emisión: " + r.when(p.CreatedAt),
		"Fecha de la cita: " + r.when(a.Time),
		"Doctor: Dr. " + orDash(doctor),
		"Paciente: " + orDash(patient),
	} {
		pdf.CellFormat(0, 7, tr(line), "", 1, "L", false, 0, "")
	}
	if d := strings.TrimSpace(a.Diagnosis); d != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr("Diagnóstico"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(d), "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr("Indicaciones"), "B", 1, "L", false, 0, "")
	pdf.Ln(2)
	for i, it := range p.Items {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%d. %s", i+1, it.Medication)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, detail := range []struct{ label, value string }{
			{"Dosis", it.Dosage},
			{"Frecuencia", it.Frequency},
			{"Duración", it.Duration},
			{"Notas", it.Notes},
		} {
			if detail.value == "" {
				continue
			}
			pdf.MultiCell(0, 5, tr("    "+detail.label+": "+detail.value), "", "L", false)
		}
		pdf.Ln(2)
	}

	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "______________________________", "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr("Firma y sello"), "", 1, "R", false, 0, "")

	return output(pdf, w)
}

func output(pdf *fpdf.Fpdf, w io.Writer) error {
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
