package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	patients   Repository
	additional AdditionalDataRepository
	filter     *Filter
}

func NewService(patients Repository, additional AdditionalDataRepository, filter *Filter) *Service {
	if filter == nil {
		filter = silentFilter
	}
	return &Service{patients: patients, additional: additional, filter: filter}
}

func validateStatus(s Status) error {
	if s != "" && !s.Known() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, s)
	}
	return nil
}

// Register creates a patient at the reception desk. A patient registered
// with a date and time is Agendado; otherwise the status stays empty and the
// patient displays as Pendente until check-in.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	p.CPF = NormalizeCPF(p.CPF)
	if p.CPF != "" && len(p.CPF) != 11 {
		return fmt.Errorf("cpf must have 11 digits")
	}
	if p.Status == "" && !isBlank(p.Date) && !isBlank(p.Time) {
		p.Status = StatusScheduled
	}
	if err := validateStatus(p.Status); err != nil {
		return err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	if err := s.saveScheduling(ctx, p); err != nil {
		return err
	}
	return s.reload(ctx, p)
}

// saveScheduling writes specialty and professional, which live on
// patient_additional_data, keeping whatever else is already stored there.
// Blank values leave the stored ones alone.
func (s *Service) saveScheduling(ctx context.Context, p *Patient) error {
	specialty, professional := strings.TrimSpace(p.Specialty), strings.TrimSpace(p.Professional)
	if specialty == "" && professional == "" {
		return nil
	}
	a, err := s.additional.GetByPatientID(ctx, p.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		a = &AdditionalData{PatientID: p.ID}
	case err != nil:
		return fmt.Errorf("read additional data: %w", err)
	}
	if specialty != "" {
		a.Specialty = specialty
	}
	if professional != "" {
		a.Professional = professional
	}
	if err := s.additional.Upsert(ctx, a); err != nil {
		return fmt.Errorf("save specialty and professional: %w", err)
	}
	return nil
}

// reload replaces p with the record as stored.
func (s *Service) reload(ctx context.Context, p *Patient) error {
	stored, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// Exists returns ErrNotFound when no patient has id.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) error {
	_, err := s.patients.GetByID(ctx, id)
	return err
}

func (s *Service) List(ctx context.Context, statuses []Status) ([]*Patient, error) {
	return s.patients.List(ctx, statuses)
}

// Search reads the patients with a stored status in statuses (all when
// empty) and applies the reception criteria on top.
func (s *Service) Search(ctx context.Context, statuses []Status, c Criteria) ([]*Patient, error) {
	all, err := s.patients.List(ctx, statuses)
	if err != nil {
		return nil, err
	}
	return s.filter.Apply(all, c), nil
}

// Update rewrites the core record. Stored statuses outside the known set are
// kept as they are so an edit never rewrites a legacy value; new values must
// be known.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	p.CPF = NormalizeCPF(p.CPF)
	current, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.Status != current.Status {
		if err := validateStatus(p.Status); err != nil {
			return err
		}
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	if err := s.saveScheduling(ctx, p); err != nil {
		return err
	}
	return s.reload(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) GetAdditionalData(ctx context.Context, patientID uuid.UUID) (*AdditionalData, error) {
	return s.additional.GetByPatientID(ctx, patientID)
}

func (s *Service) UpsertAdditionalData(ctx context.Context, a *AdditionalData) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if _, err := s.patients.GetByID(ctx, a.PatientID); err != nil {
		return err
	}
	return s.additional.Upsert(ctx, a)
}
