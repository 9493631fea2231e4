package journal

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyBody = errors.New("entry body is required")

// Kind selects the append-only table an entry goes to.
type Kind string

const (
	KindNote Kind = "note"
	KindLog  Kind = "log"
)

// Entry is one append-only line on a patient's notes or logs: free text and
// the name of whoever wrote it.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Body      string    `json:"body"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}
