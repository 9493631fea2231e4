package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// List returns every patient, or only those whose stored status is in
	// statuses when it is non-empty. Ordered by appointment date, then name.
	List(ctx context.Context, statuses []Status) ([]*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AdditionalDataRepository interface {
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*AdditionalData, error)
	Upsert(ctx context.Context, a *AdditionalData) error
}
