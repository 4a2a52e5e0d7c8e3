package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medassist/scheduling/internal/schedule"
)

type DoctorStatus string

const (
	DoctorAvailable DoctorStatus = "available"
	DoctorOnLeave   DoctorStatus = "on-leave"
)

type Doctor struct {
	ID                uuid.UUID
	Name              string
	Specialty         *string
	Status            DoctorStatus
	WorkingHours      schedule.WorkingHours
	Constraints       schedule.SchedulingConstraints
	SpecialtySettings *schedule.SpecialtySettings
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Patient struct {
	ID    uuid.UUID
	Name  string
	Email *string
	// ConditionSeverity grades the patient's condition from 1 (mild) to 10
	// (critical). Severity 8 and above is treated as an urgency hint when a
	// request does not name a priority.
	ConditionSeverity int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// severityUrgentThreshold maps high-severity patients to urgent priority when
// the caller leaves priority unset.
const severityUrgentThreshold = 8

// AppointmentRecord is the stored appointment. Time-of-day is kept in
// minutes-since-midnight alongside the calendar day, matching the core's
// window model.
type AppointmentRecord struct {
	ID          uuid.UUID
	DoctorID    uuid.UUID
	PatientID   uuid.UUID
	Date        time.Time
	StartMinute int
	EndMinute   int
	Priority    schedule.Priority
	Status      schedule.AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot converts the stored record into the core's read-only form.
func (a AppointmentRecord) Snapshot() schedule.Appointment {
	return schedule.Appointment{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Window:    schedule.TimeWindow{Start: a.StartMinute, End: a.EndMinute},
		Priority:  a.Priority,
		Status:    a.Status,
	}
}

func snapshotAll(records []AppointmentRecord) []schedule.Appointment {
	out := make([]schedule.Appointment, len(records))
	for i, rec := range records {
		out[i] = rec.Snapshot()
	}
	return out
}

type EventLog struct {
	ID            int64
	EventType     string
	DoctorID      *uuid.UUID
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
