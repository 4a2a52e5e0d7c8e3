package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/scheduling/internal/appointment"
	"github.com/medassist/scheduling/internal/schedule"
)

// stubService returns canned results per call.
type stubService struct {
	conflicts    *schedule.ConflictReport
	conflictsErr error
	suggestions  []schedule.SuggestionRecord
	suggestErr   error
	booked       *appointment.AppointmentRecord
	bookErr      error
	cancelled    *appointment.AppointmentRecord
	cancelErr    error

	lastSuggestion appointment.SuggestionParams
	lastBooking    appointment.BookingParams
}

func (s *stubService) DetectDoctorConflicts(_ context.Context, doctorID uuid.UUID, from, to time.Time) (*schedule.ConflictReport, error) {
	if s.conflictsErr != nil {
		return nil, s.conflictsErr
	}
	if s.conflicts == nil {
		return &schedule.ConflictReport{}, nil
	}
	return s.conflicts, nil
}

func (s *stubService) SuggestSlots(_ context.Context, params appointment.SuggestionParams) ([]schedule.SuggestionRecord, error) {
	s.lastSuggestion = params
	return s.suggestions, s.suggestErr
}

func (s *stubService) BookAppointment(_ context.Context, params appointment.BookingParams) (*appointment.AppointmentRecord, error) {
	s.lastBooking = params
	return s.booked, s.bookErr
}

func (s *stubService) CancelAppointment(_ context.Context, id uuid.UUID, reason string) (*appointment.AppointmentRecord, error) {
	return s.cancelled, s.cancelErr
}

func (s *stubService) GetAppointment(_ context.Context, id uuid.UUID) (*appointment.AppointmentRecord, error) {
	if s.booked == nil {
		return nil, appointment.ErrAppointmentNotFound
	}
	return s.booked, nil
}

func (s *stubService) ListPatientAppointments(_ context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.AppointmentRecord, error) {
	if s.booked == nil {
		return nil, nil
	}
	return []appointment.AppointmentRecord{*s.booked}, nil
}

func newTestRouter(svc SchedulingService) http.Handler {
	return NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"})
}

var (
	apiDoctor  = uuid.MustParse("aaaaaaaa-0000-0000-0000-00000000000a")
	apiPatient = uuid.MustParse("bbbbbbbb-0000-0000-0000-00000000000b")
	apiDay     = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
)

func TestAISuggestionsEndpoint(t *testing.T) {
	svc := &stubService{
		suggestions: []schedule.SuggestionRecord{{
			PatientID:  apiPatient,
			DoctorID:   apiDoctor,
			Date:       apiDay,
			Window:     schedule.MustWindow(605, 635),
			Priority:   schedule.PriorityNormal,
			Confidence: 0.82,
			Reason:     "Routine visit; earliest available slot within working hours",
		}},
	}
	router := newTestRouter(svc)

	body := `{"doctor_id":"` + apiDoctor.String() + `","patient_id":"` + apiPatient.String() + `","priority":"normal","top_k":3}`
	req := httptest.NewRequest(http.MethodPost, "/ai-suggestions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SuggestionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "2025-03-10", resp.Suggestions[0].Date)
	assert.Equal(t, "10:05-10:35", resp.Suggestions[0].Window)
	assert.InDelta(t, 0.82, resp.Suggestions[0].Confidence, 1e-9)

	assert.Equal(t, 3, svc.lastSuggestion.TopK)
	assert.Equal(t, schedule.PriorityNormal, svc.lastSuggestion.Priority)
}

func TestAISuggestionsEndpoint_BadUUID(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/ai-suggestions", strings.NewReader(`{"doctor_id":"nope","patient_id":"nope"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAISuggestionsEndpoint_ValidationErrorMapsTo422(t *testing.T) {
	svc := &stubService{suggestErr: &schedule.ValidationError{Field: "priority", Reason: "unknown priority"}}
	router := newTestRouter(svc)

	body := `{"doctor_id":"` + apiDoctor.String() + `","patient_id":"` + apiPatient.String() + `","priority":"critical"}`
	req := httptest.NewRequest(http.MethodPost, "/ai-suggestions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_parameters", resp.Error)
}

func TestScheduleConflictsEndpoint(t *testing.T) {
	apptA := uuid.MustParse("cccccccc-0000-0000-0000-000000000001")
	apptB := uuid.MustParse("cccccccc-0000-0000-0000-000000000002")
	svc := &stubService{
		conflicts: &schedule.ConflictReport{
			Conflicts: []schedule.ConflictRecord{{
				Kind:                   schedule.KindOverlap,
				DoctorID:               apiDoctor,
				Date:                   apiDay,
				InvolvedAppointmentIDs: []uuid.UUID{apptA, apptB},
				Severity:               schedule.SeverityHigh,
				Description:            "2 appointments overlap between 09:00-10:00",
			}},
			Skipped: []schedule.InvalidAppointment{{ID: uuid.Nil, Reason: "missing date"}},
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/doctors/"+apiDoctor.String()+"/schedule-conflicts?from=2025-03-10&to=2025-03-17", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConflictScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "overlap", resp.Conflicts[0].Kind)
	assert.Equal(t, "high", resp.Conflicts[0].Severity)
	require.Len(t, resp.Skipped, 1)
}

func TestScheduleConflictsEndpoint_BadRange(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/doctors/"+apiDoctor.String()+"/schedule-conflicts?from=2025-03-17&to=2025-03-10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointmentEndpoint(t *testing.T) {
	booked := &appointment.AppointmentRecord{
		ID:          uuid.New(),
		DoctorID:    apiDoctor,
		PatientID:   apiPatient,
		Date:        apiDay,
		StartMinute: 605,
		EndMinute:   635,
		Priority:    schedule.PriorityNormal,
		Status:      schedule.StatusScheduled,
	}
	svc := &stubService{booked: booked}
	router := newTestRouter(svc)

	body := `{"doctor_id":"` + apiDoctor.String() + `","patient_id":"` + apiPatient.String() + `","date":"2025-03-10","start_minute":605,"end_minute":635}`
	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, booked.ID, resp.ID)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, schedule.TimeWindow{Start: 605, End: 635}, schedule.TimeWindow{Start: svc.lastBooking.Window.Start, End: svc.lastBooking.Window.End})
}

func TestBookAppointmentEndpoint_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"slot taken", appointment.ErrSlotTaken, http.StatusConflict, "slot_taken"},
		{"day full", appointment.ErrDayFull, http.StatusConflict, "day_full"},
		{"schedule busy", appointment.ErrScheduleBusy, http.StatusConflict, "schedule_busy"},
		{"doctor unavailable", appointment.ErrDoctorUnavailable, http.StatusConflict, "doctor_unavailable"},
		{"outside working hours", appointment.ErrOutsideWorkingHours, http.StatusUnprocessableEntity, "outside_working_hours"},
		{"during break", appointment.ErrDuringBreak, http.StatusUnprocessableEntity, "during_break"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{bookErr: tc.err}
			router := newTestRouter(svc)

			body := `{"doctor_id":"` + apiDoctor.String() + `","patient_id":"` + apiPatient.String() + `","date":"2025-03-10","start_minute":605,"end_minute":635}`
			req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Error)
		})
	}
}

func TestCancelAppointmentEndpoint_NotFound(t *testing.T) {
	svc := &stubService{cancelErr: appointment.ErrAppointmentNotFound}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+uuid.NewString()+"/cancel", strings.NewReader(`{"reason":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
