package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medassist/scheduling/internal/appointment"
	"github.com/medassist/scheduling/internal/schedule"
)

const dateLayout = "2006-01-02"

type SuggestionRequest struct {
	DoctorID    string `json:"doctor_id"`
	PatientID   string `json:"patient_id"`
	Priority    string `json:"priority,omitempty"`
	TopK        int    `json:"top_k,omitempty"`
	HorizonDays int    `json:"horizon_days,omitempty"`
}

type SuggestionItem struct {
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	Date        string    `json:"date"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
	Window      string    `json:"window"`
	Priority    string    `json:"priority"`
	Confidence  float64   `json:"confidence"`
	Reason      string    `json:"reason"`
	Conflicts   []string  `json:"conflicts,omitempty"`
}

type SuggestionResponse struct {
	Suggestions []SuggestionItem `json:"suggestions"`
}

func toSuggestionItems(records []schedule.SuggestionRecord) []SuggestionItem {
	items := make([]SuggestionItem, len(records))
	for i, rec := range records {
		items[i] = SuggestionItem{
			DoctorID:    rec.DoctorID,
			PatientID:   rec.PatientID,
			Date:        rec.Date.Format(dateLayout),
			StartMinute: rec.Window.Start,
			EndMinute:   rec.Window.End,
			Window:      rec.Window.String(),
			Priority:    string(rec.Priority),
			Confidence:  rec.Confidence,
			Reason:      rec.Reason,
			Conflicts:   rec.Conflicts,
		}
	}
	return items
}

type ConflictItem struct {
	Kind                string      `json:"kind"`
	Severity            string      `json:"severity"`
	Date                string      `json:"date"`
	AppointmentIDs      []uuid.UUID `json:"appointment_ids"`
	Description         string      `json:"description"`
	SuggestedResolution string      `json:"suggested_resolution,omitempty"`
}

type SkippedItem struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Reason        string    `json:"reason"`
}

type ConflictScanResponse struct {
	DoctorID  uuid.UUID      `json:"doctor_id"`
	From      string         `json:"from"`
	To        string         `json:"to"`
	Conflicts []ConflictItem `json:"conflicts"`
	Skipped   []SkippedItem  `json:"skipped,omitempty"`
}

func toConflictScanResponse(doctorID uuid.UUID, from, to time.Time, report *schedule.ConflictReport) ConflictScanResponse {
	resp := ConflictScanResponse{
		DoctorID:  doctorID,
		From:      from.Format(dateLayout),
		To:        to.Format(dateLayout),
		Conflicts: make([]ConflictItem, len(report.Conflicts)),
	}
	for i, c := range report.Conflicts {
		resp.Conflicts[i] = ConflictItem{
			Kind:                string(c.Kind),
			Severity:            string(c.Severity),
			Date:                c.Date.Format(dateLayout),
			AppointmentIDs:      c.InvolvedAppointmentIDs,
			Description:         c.Description,
			SuggestedResolution: c.SuggestedResolution,
		}
	}
	for _, s := range report.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedItem{AppointmentID: s.ID, Reason: s.Reason})
	}
	return resp
}

type BookAppointmentRequest struct {
	DoctorID    string `json:"doctor_id"`
	PatientID   string `json:"patient_id"`
	Date        string `json:"date"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Priority    string `json:"priority,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	Date        string    `json:"date"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
	Window      string    `json:"window"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
}

func toAppointmentResponse(rec *appointment.AppointmentRecord) AppointmentResponse {
	window := schedule.TimeWindow{Start: rec.StartMinute, End: rec.EndMinute}
	return AppointmentResponse{
		ID:          rec.ID,
		DoctorID:    rec.DoctorID,
		PatientID:   rec.PatientID,
		Date:        rec.Date.Format(dateLayout),
		StartMinute: rec.StartMinute,
		EndMinute:   rec.EndMinute,
		Window:      window.String(),
		Priority:    string(rec.Priority),
		Status:      string(rec.Status),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
