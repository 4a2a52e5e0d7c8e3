package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/scheduling/internal/config"
	redisclient "github.com/medassist/scheduling/internal/redis"
	"github.com/medassist/scheduling/internal/schedule"
)

const (
	EventConflictDetected     = "CONFLICT_DETECTED"
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

var (
	ErrSlotTaken               = errors.New("requested window is no longer free")
	ErrDayFull                 = errors.New("doctor has reached the daily patient limit")
	ErrOutsideWorkingHours     = errors.New("window falls outside the doctor's working hours")
	ErrDuringBreak             = errors.New("window overlaps a configured break")
	ErrScheduleBusy            = errors.New("schedule is currently being modified, please retry")
	ErrDoctorUnavailable       = errors.New("doctor is not accepting appointments")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// SuggestionParams is one slot-search request at the service level. Priority
// is optional; when empty it is derived from the patient's condition
// severity.
type SuggestionParams struct {
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	Priority    schedule.Priority
	TopK        int
	HorizonDays int
}

// BookingParams commits one proposed window, typically an accepted
// suggestion.
type BookingParams struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      time.Time
	Window    schedule.TimeWindow
	Priority  schedule.Priority
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	cfg    config.Config
	cache  *suggestionCache
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, cfg config.Config) (*Service, error) {
	cache, err := newSuggestionCache(cfg.SuggestionCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:   repo,
		locker: locker,
		cfg:    cfg,
		cache:  cache,
		now:    time.Now,
	}, nil
}

// constraintsFor returns the doctor's own scheduling constraints, or the
// configured defaults when the doctor row carries none.
func (s *Service) constraintsFor(doctor *Doctor) schedule.SchedulingConstraints {
	if doctor.Constraints.Validate() == nil {
		return doctor.Constraints
	}
	return schedule.SchedulingConstraints{
		MaxPatientsPerDay:        s.cfg.DefaultMaxPatientsPerDay,
		DefaultDurationMinutes:   s.cfg.DefaultDurationMinutes,
		EmergencyDurationMinutes: s.cfg.EmergencyDurationMinutes,
		BufferMinutes:            s.cfg.DefaultBufferMinutes,
		MinNoticeHours:           s.cfg.DefaultMinNoticeHours,
		MaxAdvanceDays:           s.cfg.DefaultMaxAdvanceDays,
	}
}

// DetectDoctorConflicts loads the doctor's scheduled appointments in
// [from, to] and runs the conflict scan over the snapshot. Every detected
// conflict is recorded in the event log; a scan never mutates appointments.
func (s *Service) DetectDoctorConflicts(ctx context.Context, doctorID uuid.UUID, from, to time.Time) (*schedule.ConflictReport, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	from = schedule.DateOnly(from)
	to = schedule.DateOnly(to)

	appts, err := s.repo.ListScheduledAppointments(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	report, err := schedule.DetectConflicts(snapshotAll(appts), s.constraintsFor(doctor))
	if err != nil {
		return nil, fmt.Errorf("detect conflicts: %w", err)
	}

	for _, conflict := range report.Conflicts {
		s.logEvent(ctx, EventConflictDetected, &doctorID, nil, map[string]any{
			"kind":         string(conflict.Kind),
			"severity":     string(conflict.Severity),
			"date":         conflict.Date.Format("2006-01-02"),
			"appointments": conflict.InvolvedAppointmentIDs,
		})
	}

	return report, nil
}

// SuggestSlots proposes ranked appointment windows for a patient. The result
// is advisory: committing a proposal goes through BookAppointment, which
// re-validates under the schedule lock.
func (s *Service) SuggestSlots(ctx context.Context, params SuggestionParams) ([]schedule.SuggestionRecord, error) {
	patient, err := s.repo.GetPatientByID(ctx, params.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, params.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Status != DoctorAvailable {
		return []schedule.SuggestionRecord{}, nil
	}

	priority := params.Priority
	if priority == "" {
		priority = schedule.PriorityNormal
		if patient.ConditionSeverity >= severityUrgentThreshold {
			priority = schedule.PriorityUrgent
		}
	}

	topK := params.TopK
	if topK == 0 {
		topK = s.cfg.SuggestionTopK
	}

	now := s.now()
	today := schedule.DateOnly(now)
	constraints := s.constraintsFor(doctor)
	earliestStart := now.Add(time.Duration(constraints.MinNoticeHours) * time.Hour)

	key := suggestionKey(params.DoctorID, today, priority, topK, params.HorizonDays)
	if records, ok := s.cache.Get(key); ok {
		// Cached records were scored against the clock at compute time; a
		// later request the same day can find some of them elapsed or
		// inside the notice period. Serve the hit only while every record
		// still clears the cutoff, otherwise recompute.
		if fresh := dropElapsed(records, earliestStart); len(fresh) == len(records) {
			return rebindSuggestions(fresh, params.PatientID), nil
		}
	}

	horizon := today.AddDate(0, 0, constraints.MaxAdvanceDays)
	appts, err := s.repo.ListScheduledAppointments(ctx, params.DoctorID, today, horizon)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	records, err := schedule.SuggestSlots(ctx, schedule.SuggestionRequest{
		PatientID:    params.PatientID,
		DoctorID:     params.DoctorID,
		Priority:     priority,
		Constraints:  constraints,
		WorkingHours: doctor.WorkingHours,
		Specialty:    doctor.SpecialtySettings,
		Appointments: snapshotAll(appts),
		Now:          now,
		HorizonDays:  params.HorizonDays,
		TopK:         topK,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Store(key, records)
	return records, nil
}

// dropElapsed removes proposals whose start no longer clears the notice
// cutoff.
func dropElapsed(records []schedule.SuggestionRecord, earliestStart time.Time) []schedule.SuggestionRecord {
	var out []schedule.SuggestionRecord
	for _, rec := range records {
		start := rec.Date.Add(time.Duration(rec.Window.Start) * time.Minute)
		if start.Before(earliestStart) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// rebindSuggestions retargets cached suggestions at the requesting patient.
// Slot availability does not depend on who asks; only the patient id on the
// returned records does.
func rebindSuggestions(records []schedule.SuggestionRecord, patientID uuid.UUID) []schedule.SuggestionRecord {
	out := make([]schedule.SuggestionRecord, len(records))
	for i, rec := range records {
		rec.PatientID = patientID
		out[i] = rec
	}
	return out
}

// BookAppointment commits a proposed window. The per-doctor per-day lock plus
// the in-lock re-read close the check-then-act race between suggestion and
// commit: a stale proposal is rejected with ErrSlotTaken instead of being
// written.
func (s *Service) BookAppointment(ctx context.Context, params BookingParams) (*AppointmentRecord, error) {
	if err := params.Window.Validate(); err != nil {
		return nil, err
	}
	priority := params.Priority
	if priority == "" {
		priority = schedule.PriorityNormal
	}
	if !schedule.ValidPriority(priority) {
		return nil, &schedule.ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", priority)}
	}

	if _, err := s.repo.GetPatientByID(ctx, params.PatientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, params.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.Status != DoctorAvailable {
		return nil, ErrDoctorUnavailable
	}

	constraints := s.constraintsFor(doctor)
	day := schedule.DateOnly(params.Date)

	// Commits are held to the same calendar rules the suggestion search
	// applies, not just structural validity.
	if !params.Window.WithinWorkingHours(doctor.WorkingHours, day.Weekday()) {
		return nil, ErrOutsideWorkingHours
	}
	if params.Window.IntersectsAny(constraints.BreakWindows) {
		return nil, ErrDuringBreak
	}

	var created *AppointmentRecord

	err = s.locker.WithScheduleLock(ctx, params.DoctorID, day, func(lockCtx context.Context) error {
		// Re-read the day inside the critical section; the suggestion this
		// booking came from may be stale.
		existing, err := s.repo.ListScheduledAppointments(lockCtx, params.DoctorID, day, day)
		if err != nil {
			return fmt.Errorf("reload day schedule: %w", err)
		}

		if len(existing) >= constraints.MaxPatientsPerDay {
			return ErrDayFull
		}
		for _, appt := range existing {
			if schedule.Overlaps(appt.Snapshot().Window, params.Window) {
				return ErrSlotTaken
			}
		}

		rec, err := s.repo.CreateAppointment(lockCtx, AppointmentRecord{
			DoctorID:    params.DoctorID,
			PatientID:   params.PatientID,
			Date:        day,
			StartMinute: params.Window.Start,
			EndMinute:   params.Window.End,
			Priority:    priority,
			Status:      schedule.StatusScheduled,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = rec
		s.logEvent(lockCtx, EventAppointmentBooked, &params.DoctorID, &rec.ID, map[string]any{
			"patient_id": params.PatientID.String(),
			"date":       day.Format("2006-01-02"),
			"window":     params.Window.String(),
			"priority":   string(priority),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	s.cache.InvalidateDoctor(params.DoctorID)
	return created, nil
}

// CancelAppointment moves a scheduled appointment to cancelled.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*AppointmentRecord, error) {
	return s.transition(ctx, id, schedule.StatusCancelled, EventAppointmentCancelled, map[string]any{"reason": reason})
}

// CompleteAppointment marks a scheduled appointment as completed.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	return s.transition(ctx, id, schedule.StatusCompleted, "", nil)
}

// MarkNoShow marks a scheduled appointment as a no-show.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	return s.transition(ctx, id, schedule.StatusNoShow, "", nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to schedule.AppointmentStatus, eventType string, payload map[string]any) (*AppointmentRecord, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.Status != schedule.StatusScheduled {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, id, schedule.StatusScheduled, to)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	if eventType != "" {
		s.logEvent(ctx, eventType, &updated.DoctorID, &updated.ID, payload)
	}

	s.cache.InvalidateDoctor(updated.DoctorID)
	return updated, nil
}

// GetAppointment retrieves an appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListPatientAppointments retrieves appointments for a specific patient.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentRecord, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appts, nil
}

func (s *Service) logEvent(ctx context.Context, eventType string, doctorID, appointmentID *uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		DoctorID:      doctorID,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}
