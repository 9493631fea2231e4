package journal

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/frontdesk/internal/domain/patient"
)

// -- Mock Entry Repository --

type mockEntryRepo struct {
	entries []*Entry
	err     error
}

func (m *mockEntryRepo) Append(_ context.Context, e *Entry) error {
	if m.err != nil {
		return m.err
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now().Add(time.Duration(len(m.entries)) * time.Millisecond)
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockEntryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var out []*Entry
	for _, e := range m.entries {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

type mockLookup struct{ known map[uuid.UUID]bool }

func (m mockLookup) Exists(_ context.Context, id uuid.UUID) error {
	if !m.known[id] {
		return patient.ErrNotFound
	}
	return nil
}

func newTestService(known ...uuid.UUID) (*Service, *mockEntryRepo, *mockEntryRepo) {
	notes, logs := &mockEntryRepo{}, &mockEntryRepo{}
	lookup := mockLookup{known: map[uuid.UUID]bool{}}
	for _, id := range known {
		lookup.known[id] = true
	}
	return NewService(notes, logs, lookup), notes, logs
}

func TestService_Append(t *testing.T) {
	pid := uuid.New()
	svc, notes, logs := newTestService(pid)

	e, err := svc.Append(context.Background(), KindNote, pid, "  Paciente chegou cedo ", " Maria ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID == uuid.Nil || e.Body != "Paciente chegou cedo" || e.Actor != "Maria" {
		t.Errorf("unexpected entry %+v", e)
	}
	if len(notes.entries) != 1 || len(logs.entries) != 0 {
		t.Errorf("note went to the wrong table: notes=%d logs=%d", len(notes.entries), len(logs.entries))
	}
}

func TestService_Append_EmptyBody(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)
	if _, err := svc.Append(context.Background(), KindNote, pid, "   ", "x"); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}
}

func TestService_Append_UnknownPatient(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Append(context.Background(), KindLog, uuid.New(), "x", "y"); !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_AddLogAndNote(t *testing.T) {
	svc, notes, logs := newTestService()
	pid := uuid.New()
	ctx := context.Background()

	if err := svc.AddNote(ctx, pid, "Especialidade: Cardiologia", "recepcao"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.AddLog(ctx, pid, "Check-in confirmado", "recepcao"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes.entries) != 1 || len(logs.entries) != 1 {
		t.Errorf("expected one note and one log, got %d/%d", len(notes.entries), len(logs.entries))
	}
	if err := svc.AddLog(ctx, pid, "", "recepcao"); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}
}

func TestService_List_OldestFirst(t *testing.T) {
	pid := uuid.New()
	svc, _, _ := newTestService(pid)
	ctx := context.Background()
	for _, body := range []string{"primeira", "segunda", "terceira"} {
		svc.Append(ctx, KindNote, pid, body, "x")
	}
	svc.Append(ctx, KindNote, uuid.New(), "outro paciente", "x")

	items, total, err := svc.List(ctx, KindNote, pid, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].Body != "primeira" {
		t.Errorf("unexpected page total=%d items=%v", total, items)
	}
}
