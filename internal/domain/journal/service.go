package journal

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// PatientLookup confirms a patient exists before an entry is written.
type PatientLookup interface {
	Exists(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	notes    Repository
	logs     Repository
	patients PatientLookup
}

func NewService(notes, logs Repository, patients PatientLookup) *Service {
	return &Service{notes: notes, logs: logs, patients: patients}
}

func (s *Service) repo(kind Kind) Repository {
	if kind == KindLog {
		return s.logs
	}
	return s.notes
}

// Append writes a free-text entry for a patient. The actor is the label of
// whoever wrote it and may be empty for system entries.
func (s *Service) Append(ctx context.Context, kind Kind, patientID uuid.UUID, body, actor string) (*Entry, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.patients != nil {
		if err := s.patients.Exists(ctx, patientID); err != nil {
			return nil, err
		}
	}
	e := &Entry{PatientID: patientID, Body: body, Actor: strings.TrimSpace(actor)}
	if err := s.repo(kind).Append(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// AddNote is Append for notes without the existence check, for callers that
// already hold the patient.
func (s *Service) AddNote(ctx context.Context, patientID uuid.UUID, body, actor string) error {
	return s.appendUnchecked(ctx, KindNote, patientID, body, actor)
}

// AddLog is AddNote for the audit log.
func (s *Service) AddLog(ctx context.Context, patientID uuid.UUID, body, actor string) error {
	return s.appendUnchecked(ctx, KindLog, patientID, body, actor)
}

func (s *Service) appendUnchecked(ctx context.Context, kind Kind, patientID uuid.UUID, body, actor string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyBody
	}
	return s.repo(kind).Append(ctx, &Entry{PatientID: patientID, Body: body, Actor: strings.TrimSpace(actor)})
}

func (s *Service) List(ctx context.Context, kind Kind, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	return s.repo(kind).ListByPatient(ctx, patientID, limit, offset)
}
