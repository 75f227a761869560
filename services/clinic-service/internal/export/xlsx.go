package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JohanU89-coder/clinica-monteluz/services/clinic-service/internal/model"
)

const sheetName = "Citas"

var workbookHeader = []any{"ID", "Fecha y hora", "Doctor", "Paciente", "Especialidad", "Estado"}

// AppointmentsWorkbook writes one row per appointment under a bold header.
func (r *Renderer) AppointmentsWorkbook(w io.Writer, appts []model.Appointment) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &workbookHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "F1", bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, a := range appts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			a.ID,
			r.when(a.Time),
			"Dr. " + orDash(a.DoctorName),
			orDash(a.PatientName),
			orDash(a.SpecialtyName),
			statusLabel(a.Status),
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 8); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "F", 24); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func statusLabel(status string) string {
	switch status {
	case model.StatusScheduled:
		return "Programada"
	case model.StatusCompleted:
		return "Completada"
	case model.StatusCancelled:
		return "Cancelada"
	default:
		return status
	}
}
