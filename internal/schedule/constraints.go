package schedule

import (
	"fmt"
	"time"
)

// DayHours is the configured availability for one weekday.
type DayHours struct {
	Enabled bool       `json:"enabled"`
	Window  TimeWindow `json:"window"`
}

// WorkingHours maps weekdays to their configured availability. A missing or
// disabled day has zero availability.
type WorkingHours map[time.Weekday]DayHours

// Window returns the working window for the given weekday and whether the day
// is enabled at all.
func (wh WorkingHours) Window(day time.Weekday) (TimeWindow, bool) {
	dh, ok := wh[day]
	if !ok || !dh.Enabled {
		return TimeWindow{}, false
	}
	return dh.Window, true
}

// WithinWorkingHours reports whether the window is fully contained in the
// weekday's configured working window.
func (w TimeWindow) WithinWorkingHours(wh WorkingHours, day time.Weekday) bool {
	work, ok := wh.Window(day)
	if !ok {
		return false
	}
	return w.Start >= work.Start && w.End <= work.End
}

// SchedulingConstraints is an immutable bundle of per-doctor scheduling
// policy. Break windows apply uniformly to every working day.
type SchedulingConstraints struct {
	MaxPatientsPerDay        int          `json:"max_patients_per_day"`
	DefaultDurationMinutes   int          `json:"default_duration_minutes"`
	EmergencyDurationMinutes int          `json:"emergency_duration_minutes"`
	BreakWindows             []TimeWindow `json:"break_windows,omitempty"`
	BufferMinutes            int          `json:"buffer_minutes"`
	MinNoticeHours           int          `json:"min_notice_hours"`
	MaxAdvanceDays           int          `json:"max_advance_days"`
}

// Validate checks the constraints before any computation uses them.
func (c SchedulingConstraints) Validate() error {
	if c.MaxPatientsPerDay < 1 {
		return &ValidationError{Field: "maxPatientsPerDay", Reason: fmt.Sprintf("must be positive, got %d", c.MaxPatientsPerDay)}
	}
	if c.DefaultDurationMinutes < 1 {
		return &ValidationError{Field: "defaultDurationMinutes", Reason: fmt.Sprintf("must be positive, got %d", c.DefaultDurationMinutes)}
	}
	if c.EmergencyDurationMinutes < 1 {
		return &ValidationError{Field: "emergencyDurationMinutes", Reason: fmt.Sprintf("must be positive, got %d", c.EmergencyDurationMinutes)}
	}
	if c.BufferMinutes < 0 {
		return &ValidationError{Field: "bufferMinutes", Reason: "must not be negative"}
	}
	if c.MinNoticeHours < 0 {
		return &ValidationError{Field: "minNoticeHours", Reason: "must not be negative"}
	}
	if c.MaxAdvanceDays < 1 {
		return &ValidationError{Field: "maxAdvanceDays", Reason: fmt.Sprintf("must be at least 1, got %d", c.MaxAdvanceDays)}
	}
	for _, b := range c.BreakWindows {
		if err := b.Validate(); err != nil {
			return &ValidationError{Field: "breakWindows", Reason: err.Error()}
		}
	}
	return nil
}

// SpecialtySettings carries optional per-specialty overrides applied when
// searching for suggestions.
type SpecialtySettings struct {
	// PreferredExaminationTime is "morning", "afternoon" or empty for no
	// preference.
	PreferredExaminationTime string `json:"preferred_examination_time,omitempty"`
	// DurationMinutes overrides the default appointment duration for
	// non-emergency visits when positive.
	DurationMinutes int `json:"duration_minutes,omitempty"`
}
