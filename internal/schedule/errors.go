package schedule

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError signals malformed top-level parameters (constraints,
// horizon, topK). It fails the whole call before any computation starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidAppointment records one malformed appointment that was skipped
// during a batch scan. The rest of the batch is still processed.
type InvalidAppointment struct {
	ID     uuid.UUID
	Reason string
}

func (e InvalidAppointment) Error() string {
	return fmt.Sprintf("invalid appointment %s: %s", e.ID, e.Reason)
}
