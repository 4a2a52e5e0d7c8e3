package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medassist/scheduling/internal/appointment"
	redisclient "github.com/medassist/scheduling/internal/redis"
	"github.com/medassist/scheduling/internal/schedule"
)

// SchedulingService is the surface the handlers need from the appointment
// service.
type SchedulingService interface {
	DetectDoctorConflicts(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (*schedule.ConflictReport, error)
	SuggestSlots(ctx context.Context, params appointment.SuggestionParams) ([]schedule.SuggestionRecord, error)
	BookAppointment(ctx context.Context, params appointment.BookingParams) (*appointment.AppointmentRecord, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*appointment.AppointmentRecord, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.AppointmentRecord, error)
	ListPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.AppointmentRecord, error)
}

// defaultConflictScanDays bounds a conflict scan when the caller gives no
// explicit range.
const defaultConflictScanDays = 7

func scheduleConflictsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		now := time.Now()
		from, ok := parseDateParam(w, r, "from", now)
		if !ok {
			return
		}
		to, ok := parseDateParam(w, r, "to", from.AddDate(0, 0, defaultConflictScanDays))
		if !ok {
			return
		}
		if to.Before(from) {
			writeError(w, http.StatusBadRequest, "invalid_range", "to must not be before from")
			return
		}

		report, err := svc.DetectDoctorConflicts(r.Context(), doctorID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConflictScanResponse(doctorID, schedule.DateOnly(from), schedule.DateOnly(to), report))
	}
}

func aiSuggestionsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuggestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		records, err := svc.SuggestSlots(r.Context(), appointment.SuggestionParams{
			DoctorID:    doctorID,
			PatientID:   patientID,
			Priority:    schedule.Priority(req.Priority),
			TopK:        req.TopK,
			HorizonDays: req.HorizonDays,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SuggestionResponse{Suggestions: toSuggestionItems(records)})
	}
}

func bookAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be formatted YYYY-MM-DD")
			return
		}

		rec, err := svc.BookAppointment(r.Context(), appointment.BookingParams{
			DoctorID:  doctorID,
			PatientID: patientID,
			Date:      date,
			Window:    schedule.TimeWindow{Start: req.StartMinute, End: req.EndMinute},
			Priority:  schedule.Priority(req.Priority),
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(rec))
	}
}

func cancelAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CancelAppointmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		rec, err := svc.CancelAppointment(r.Context(), id, req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(rec))
	}
}

func getAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		rec, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(rec))
	}
}

func listPatientAppointmentsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		records, err := svc.ListPatientAppointments(r.Context(), patientID, limit, offset)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]AppointmentResponse, len(records))
		for i := range records {
			resp[i] = toAppointmentResponse(&records[i])
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string, def time.Time) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be formatted YYYY-MM-DD")
		return time.Time{}, false
	}
	return t, true
}

func handleServiceError(w http.ResponseWriter, err error) {
	var verr *schedule.ValidationError

	switch {
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, appointment.ErrDayFull):
		writeError(w, http.StatusConflict, "day_full", err.Error())
	case errors.Is(err, appointment.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrScheduleBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is currently being modified, please retry shortly")
	case errors.Is(err, appointment.ErrOutsideWorkingHours):
		writeError(w, http.StatusUnprocessableEntity, "outside_working_hours", err.Error())
	case errors.Is(err, appointment.ErrDuringBreak):
		writeError(w, http.StatusUnprocessableEntity, "during_break", err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, "invalid_parameters", verr.Error())
	case errors.Is(err, schedule.ErrInvalidWindow):
		writeError(w, http.StatusUnprocessableEntity, "invalid_window", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
