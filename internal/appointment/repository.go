package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medassist/scheduling/internal/schedule"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Snapshot loading for the conflict detector and suggestion engine.
	ListScheduledAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AppointmentRecord, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentRecord, error)

	// Creation and guarded status updates.
	CreateAppointment(ctx context.Context, rec AppointmentRecord) (*AppointmentRecord, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*AppointmentRecord, error)

	// Event logging.
	InsertEvent(ctx context.Context, ev EventLog) error
}
