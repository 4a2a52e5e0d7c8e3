package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scoring weights for suggestion ranking. The exact values are tunable; the
// invariants that must survive any tuning are that earlier slots never score
// below later ones for the same priority, and that emergency requests outrank
// urgent and normal ones for the same slot.
var (
	weightPriority   = 0.45
	weightProximity  = 0.35
	weightPreference = 0.10
	weightLoad       = 0.10
)

func priorityBase(p Priority) float64 {
	switch p {
	case PriorityEmergency:
		return 1.0
	case PriorityUrgent:
		return 0.7
	default:
		return 0.5
	}
}

// urgencyFactor scales the proximity term so that being early matters more
// the more urgent the request is.
func urgencyFactor(p Priority) float64 {
	switch p {
	case PriorityEmergency:
		return 1.0
	case PriorityUrgent:
		return 0.8
	default:
		return 0.6
	}
}

const minutesBeforeNoon = 12 * 60

// SuggestionRequest bundles one slot-search call. The appointment snapshot is
// read-only for the duration of the call and never retained.
type SuggestionRequest struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	Priority     Priority
	Constraints  SchedulingConstraints
	WorkingHours WorkingHours
	Specialty    *SpecialtySettings
	Appointments []Appointment

	// Now anchors the search horizon; the zero value means time.Now().
	Now time.Time
	// HorizonDays optionally narrows the search below MaxAdvanceDays.
	HorizonDays int
	// TopK caps the number of returned suggestions; 0 means 1.
	TopK int
}

// SuggestionRecord is one ranked slot proposal. A non-empty Conflicts list
// means the proposal is imperfect and the warnings describe why.
type SuggestionRecord struct {
	PatientID  uuid.UUID
	DoctorID   uuid.UUID
	Date       time.Time
	Window     TimeWindow
	Priority   Priority
	Confidence float64
	Reason     string
	Conflicts  []string
}

type candidate struct {
	date      time.Time
	window    TimeWindow
	score     float64
	prefMatch bool
	loadRatio float64
}

// SuggestSlots searches the doctor's calendar for feasible slots, ranks them
// and returns the top K with confidence and rationale. A fully booked horizon
// yields an empty slice, not an error. The context is checked between per-day
// iterations so large horizons can be abandoned cooperatively.
func SuggestSlots(ctx context.Context, req SuggestionRequest) ([]SuggestionRecord, error) {
	if err := req.Constraints.Validate(); err != nil {
		return nil, err
	}
	if !ValidPriority(req.Priority) {
		return nil, &ValidationError{Field: "priority", Reason: fmt.Sprintf("unknown priority %q", req.Priority)}
	}
	if req.TopK < 0 {
		return nil, &ValidationError{Field: "topK", Reason: "must not be negative"}
	}
	if req.HorizonDays < 0 {
		return nil, &ValidationError{Field: "horizonDays", Reason: "must not be negative"}
	}

	topK := req.TopK
	if topK == 0 {
		topK = 1
	}

	horizonDays := req.Constraints.MaxAdvanceDays
	if req.HorizonDays > 0 && req.HorizonDays < horizonDays {
		horizonDays = req.HorizonDays
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	earliestStart := now.Add(time.Duration(req.Constraints.MinNoticeHours) * time.Hour)

	duration := requiredDuration(req)

	// Index the doctor's scheduled windows per day once up front.
	byDay := make(map[string][]TimeWindow)
	for _, appt := range req.Appointments {
		if appt.Status != StatusScheduled || appt.DoctorID != req.DoctorID {
			continue
		}
		if appt.validate() != nil {
			continue
		}
		key := DateOnly(appt.Date).Format("2006-01-02")
		byDay[key] = append(byDay[key], appt.Window)
	}

	horizonMinutes := float64(horizonDays+1) * minutesPerDay
	today := DateOnly(now)

	var candidates []candidate
	for offset := 0; offset <= horizonDays; offset++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		day := today.AddDate(0, 0, offset)
		booked := byDay[day.Format("2006-01-02")]

		// A day already at its patient limit gets no proposals at all,
		// otherwise every accepted suggestion would overbook it.
		if len(booked) >= req.Constraints.MaxPatientsPerDay {
			continue
		}
		loadRatio := float64(len(booked)) / float64(req.Constraints.MaxPatientsPerDay)

		for slot := range AvailableSlots(day.Weekday(), req.WorkingHours, booked, req.Constraints.BreakWindows, req.Constraints.BufferMinutes, duration) {
			start := day.Add(time.Duration(slot.Start) * time.Minute)
			if start.Before(earliestStart) {
				continue
			}

			minutesUntil := start.Sub(now).Minutes()
			proximity := 1 - minutesUntil/horizonMinutes
			if proximity < 0 {
				proximity = 0
			}

			prefMatch := matchesPreferredTime(slot, req.Specialty)
			score := weightPriority*priorityBase(req.Priority) +
				weightProximity*urgencyFactor(req.Priority)*proximity -
				weightLoad*loadRatio
			if prefMatch {
				score += weightPreference
			}

			candidates = append(candidates, candidate{
				date:      day,
				window:    slot,
				score:     score,
				prefMatch: prefMatch,
				loadRatio: loadRatio,
			})
		}
	}

	if len(candidates) == 0 {
		return []SuggestionRecord{}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].date.Equal(candidates[j].date) {
			return candidates[i].date.Before(candidates[j].date)
		}
		return candidates[i].window.Start < candidates[j].window.Start
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	records := make([]SuggestionRecord, 0, topK)
	for i, cand := range candidates[:topK] {
		records = append(records, SuggestionRecord{
			PatientID:  req.PatientID,
			DoctorID:   req.DoctorID,
			Date:       cand.date,
			Window:     cand.window,
			Priority:   req.Priority,
			Confidence: clamp01(cand.score),
			Reason:     buildReason(req.Priority, i == 0, cand),
			Conflicts:  selfCheck(cand, byDay),
		})
	}

	return records, nil
}

func requiredDuration(req SuggestionRequest) int {
	if req.Priority == PriorityEmergency {
		return req.Constraints.EmergencyDurationMinutes
	}
	if req.Specialty != nil && req.Specialty.DurationMinutes > 0 {
		return req.Specialty.DurationMinutes
	}
	return req.Constraints.DefaultDurationMinutes
}

func matchesPreferredTime(slot TimeWindow, specialty *SpecialtySettings) bool {
	if specialty == nil {
		return false
	}
	switch specialty.PreferredExaminationTime {
	case "morning":
		return slot.Start < minutesBeforeNoon
	case "afternoon":
		return slot.Start >= minutesBeforeNoon
	}
	return false
}

// selfCheck re-validates a proposal against the same snapshot the search ran
// over. It can only flag anything if the snapshot changed underneath the
// search, which the caller must treat as a stale-snapshot race.
func selfCheck(cand candidate, byDay map[string][]TimeWindow) []string {
	var warnings []string
	for _, booked := range byDay[cand.date.Format("2006-01-02")] {
		if booked == cand.window {
			warnings = append(warnings, fmt.Sprintf("proposed window %s duplicates an existing booking", cand.window))
			continue
		}
		if Overlaps(cand.window, booked) {
			warnings = append(warnings, fmt.Sprintf("proposed window %s overlaps existing booking %s", cand.window, booked))
		}
	}
	return warnings
}

func buildReason(p Priority, earliest bool, cand candidate) string {
	parts := make([]string, 0, 3)
	switch p {
	case PriorityEmergency:
		parts = append(parts, "Emergency case")
	case PriorityUrgent:
		parts = append(parts, "Urgent case")
	default:
		parts = append(parts, "Routine visit")
	}
	if earliest {
		parts = append(parts, "earliest available slot within working hours")
	} else {
		parts = append(parts, fmt.Sprintf("available slot at %s", cand.window))
	}
	if cand.prefMatch {
		parts = append(parts, "matches the preferred examination time")
	}
	if cand.loadRatio <= 0.5 {
		parts = append(parts, "light schedule that day")
	}
	return strings.Join(parts, "; ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
