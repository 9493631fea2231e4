package patient

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("patient not found")
	ErrInvalidStatus = errors.New("invalid patient status")
)

// Status is the stored patient status. The store keeps free-form strings, so
// values outside the known set survive a round trip unchanged.
type Status string

const (
	StatusPending   Status = "Pendente"
	StatusScheduled Status = "Agendado"
	StatusConfirmed Status = "Confirmado"
	StatusWaiting   Status = "Aguardando"
	StatusNursing   Status = "Enfermagem"
	StatusAttended  Status = "Atendido"
)

var knownStatuses = []Status{
	StatusPending, StatusScheduled, StatusConfirmed,
	StatusWaiting, StatusNursing, StatusAttended,
}

// KnownStatuses returns the closed set of statuses the front desk writes.
func KnownStatuses() []Status {
	out := make([]Status, len(knownStatuses))
	copy(out, knownStatuses)
	return out
}

func (s Status) Known() bool {
	for _, k := range knownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus accepts a known status, matching case-insensitively, and
// returns it in canonical spelling.
func ParseStatus(raw string) (Status, error) {
	raw = strings.TrimSpace(raw)
	for _, k := range knownStatuses {
		if strings.EqualFold(raw, string(k)) {
			return k, nil
		}
	}
	return "", ErrInvalidStatus
}

// Patient is the reception view of a patient: the core record plus the
// specialty and professional held in the additional-data record.
type Patient struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	CPF            string    `json:"cpf"`
	BirthDate      *string   `json:"birth_date,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Email          *string   `json:"email,omitempty"`
	Specialty      string    `json:"specialty"`
	Professional   string    `json:"professional"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Status         Status    `json:"status"`
	HealthPlan     string    `json:"health_plan"`
	AttendanceType string    `json:"attendance_type,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StatusUpdate is the single consistency-critical write of a check-in.
type StatusUpdate struct {
	Status          Status
	AttendanceType  string
	AppointmentTime string // empty leaves the stored time untouched
}

// AdditionalData is keyed by patient id and holds what the core record has
// no columns for.
type AdditionalData struct {
	PatientID        uuid.UUID `json:"patient_id"`
	HealthPlan       string    `json:"health_plan"`
	HealthPlanCard   string    `json:"health_plan_card,omitempty"`
	HealthPlanExpiry *string   `json:"health_plan_expiry,omitempty"`
	Specialty        string    `json:"specialty"`
	Professional     string    `json:"professional"`
	ReceptionDesk    string    `json:"reception_desk,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NormalizeCPF strips punctuation from a tax id, leaving digits only.
func NormalizeCPF(cpf string) string {
	return digitsOnly(cpf)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
