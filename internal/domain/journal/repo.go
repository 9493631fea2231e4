package journal

import (
	"context"

	"github.com/google/uuid"
)

// Repository appends to and reads back one patient journal table. Entries
// are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// ListByPatient returns a patient's entries oldest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error)
}
