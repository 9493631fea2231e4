package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/ehr/frontdesk/internal/platform/supabase"
)

type entryRepoSupabase struct {
	client *supa.Client
	table  string
}

func NewRepoSupabase(client *supa.Client, kind Kind) Repository {
	return &entryRepoSupabase{client: client, table: tableFor(kind)}
}

func (r *entryRepoSupabase) Append(ctx context.Context, e *Entry) error {
	if err := supabase.CtxErr(ctx); err != nil {
		return err
	}
	e.ID = uuid.New()
	values := map[string]interface{}{
		"id":         e.ID,
		"patient_id": e.PatientID,
		"body":       e.Body,
		"actor":      e.Actor,
	}
	data, _, err := r.client.From(r.table).Insert(values, false, "", "representation", "").Execute()
	if err != nil {
		return fmt.Errorf("insert into %s: %w", r.table, err)
	}
	var rows []Entry
	if err := supabase.Decode(data, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		e.CreatedAt = rows[0].CreatedAt
	}
	return nil
}

func (r *entryRepoSupabase) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	if err := supabase.CtxErr(ctx); err != nil {
		return nil, 0, err
	}
	data, count, err := r.client.From(r.table).
		Select("id, patient_id, body, actor, created_at", "exact", false).
		Eq("patient_id", patientID.String()).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Range(offset, offset+limit-1, "").
		Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.table, err)
	}
	var rows []*Entry
	if err := supabase.Decode(data, &rows); err != nil {
		return nil, 0, err
	}
	return rows, int(count), nil
}
