package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityEmergency Priority = "emergency"
	PriorityUrgent    Priority = "urgent"
	PriorityNormal    Priority = "normal"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityEmergency, PriorityUrgent, PriorityNormal:
		return true
	}
	return false
}

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// Sane bounds for appointment dates. Records outside this range are treated
// as corrupt input and skipped during scans.
var (
	earliestSaneDate = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	latestSaneDate   = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Appointment is the read-only snapshot record the core computes over. The
// caller owns the record; the core never mutates or retains it.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time // calendar day; time-of-day lives in Window
	Window    TimeWindow
	Priority  Priority
	Status    AppointmentStatus
}

// validate classifies one record for batch scanning. Only structural problems
// are reported; status filtering happens elsewhere.
func (a Appointment) validate() error {
	if err := a.Window.Validate(); err != nil {
		return err
	}
	if a.Date.IsZero() {
		return fmt.Errorf("missing date")
	}
	if a.Date.Before(earliestSaneDate) || !a.Date.Before(latestSaneDate) {
		return fmt.Errorf("date %s outside supported range", a.Date.Format("2006-01-02"))
	}
	return nil
}
