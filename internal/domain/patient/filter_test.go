package patient

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func receptionList() []*Patient {
	return []*Patient{
		{ID: uuid.New(), Name: "Ana Souza", CPF: "12345678909", Specialty: "Cardiologia", Professional: "Dr. Lima", Date: "2024-01-10", Time: "09:00", Status: StatusConfirmed},
		{ID: uuid.New(), Name: "Bia Santos", CPF: "98765432100", Specialty: "Dermatologia", Professional: "Dra. Reis", Date: "2024-01-12", Time: "10:00", Status: StatusWaiting},
		{ID: uuid.New(), Name: "Carlos Ana", CPF: "11122233344", Specialty: "", Date: "2024-01-15", Time: "11:00", Status: StatusConfirmed},
		{ID: uuid.New(), Name: "Davi Rocha", CPF: "55566677788", Specialty: "Cardiologia", Professional: "Dr. Lima", Date: "2024-02-01", Time: "08:00", Status: StatusAttended},
	}
}

func names(ps []*Patient) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestFilterPatients_EmptyCriteriaReturnsInput(t *testing.T) {
	in := receptionList()
	out := FilterPatients(in, Criteria{})
	if len(out) != len(in) {
		t.Fatalf("expected %d patients, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("order changed at %d", i)
		}
	}
}

func TestFilterPatients_IdempotentAndOrderPreserving(t *testing.T) {
	in := receptionList()
	c := Criteria{Search: "a", Status: "todos", StartDate: date("2024-01-01"), EndDate: date("2024-01-31")}

	once := FilterPatients(in, c)
	twice := FilterPatients(once, c)
	if strings.Join(names(once), ",") != strings.Join(names(twice), ",") {
		t.Errorf("filter not idempotent: %v vs %v", names(once), names(twice))
	}

	pos := map[*Patient]int{}
	for i, p := range in {
		pos[p] = i
	}
	for i := 1; i < len(once); i++ {
		if pos[once[i-1]] > pos[once[i]] {
			t.Errorf("relative order not preserved: %v", names(once))
		}
	}
}

func TestFilterPatients_SearchAndStatus(t *testing.T) {
	out := FilterPatients(receptionList(), Criteria{Search: "ana", Status: "Confirmado"})
	// Carlos Ana has no specialty so displays Pendente and is excluded.
	if got := names(out); len(got) != 1 || got[0] != "Ana Souza" {
		t.Errorf("expected [Ana Souza], got %v", got)
	}
}

func TestFilterPatients_StatusUsesDisplayStatus(t *testing.T) {
	out := FilterPatients(receptionList(), Criteria{Status: "Pendente"})
	if got := names(out); len(got) != 1 || got[0] != "Carlos Ana" {
		t.Errorf("expected [Carlos Ana], got %v", got)
	}
}

func TestFilterPatients_StatusWildcards(t *testing.T) {
	for _, s := range []string{"", "all", "ALL", "todos"} {
		if out := FilterPatients(receptionList(), Criteria{Status: s}); len(out) != 4 {
			t.Errorf("status %q: expected 4 patients, got %d", s, len(out))
		}
	}
}

func TestFilterPatients_SearchByCPF(t *testing.T) {
	tests := []struct {
		search string
		want   string
	}{
		{"987654", "Bia Santos"},
		{"987.654.321-00", "Bia Santos"},
		{"  123.456  ", "Ana Souza"},
	}
	for _, tt := range tests {
		out := FilterPatients(receptionList(), Criteria{Search: tt.search})
		if got := names(out); len(got) != 1 || got[0] != tt.want {
			t.Errorf("search %q: expected [%s], got %v", tt.search, tt.want, got)
		}
	}
}

func TestFilterPatients_SpecialtyAndProfessional(t *testing.T) {
	out := FilterPatients(receptionList(), Criteria{Specialty: "Cardiologia", Professional: "Dr. Lima"})
	if got := names(out); len(got) != 2 || got[0] != "Ana Souza" || got[1] != "Davi Rocha" {
		t.Errorf("unexpected result %v", got)
	}
	if out := FilterPatients(receptionList(), Criteria{Specialty: "Ortopedia"}); len(out) != 0 {
		t.Errorf("expected no match, got %v", names(out))
	}
}

func TestFilterPatients_DateRangeInclusive(t *testing.T) {
	out := FilterPatients(receptionList(), Criteria{StartDate: date("2024-01-12"), EndDate: date("2024-01-15")})
	if got := names(out); len(got) != 2 || got[0] != "Bia Santos" || got[1] != "Carlos Ana" {
		t.Errorf("unexpected result %v", got)
	}
}

func TestFilterPatients_OneSidedBounds(t *testing.T) {
	if out := FilterPatients(receptionList(), Criteria{StartDate: date("2024-01-13")}); len(out) != 2 {
		t.Errorf("start only: expected 2, got %v", names(out))
	}
	if out := FilterPatients(receptionList(), Criteria{EndDate: date("2024-01-10")}); len(out) != 1 {
		t.Errorf("end only: expected 1, got %v", names(out))
	}
}

func TestFilterPatients_UndatedAndUnparseableAreKept(t *testing.T) {
	in := []*Patient{
		{ID: uuid.New(), Name: "Sem Data"},
		{ID: uuid.New(), Name: "Data Ruim", Date: "not-a-date"},
		{ID: uuid.New(), Name: "Fora", Date: "2024-02-01"},
		{ID: uuid.New(), Name: "Dentro", Date: "15/01/2024"},
	}
	out := FilterPatients(in, Criteria{StartDate: date("2024-01-01"), EndDate: date("2024-01-31")})
	got := strings.Join(names(out), ",")
	if got != "Sem Data,Data Ruim,Dentro" {
		t.Errorf("unexpected result %q", got)
	}
}

type countingObserver struct{ n int }

func (o *countingObserver) ObserveDateParseFailure() { o.n++ }

func TestFilter_WarnsOnUnparseableDate(t *testing.T) {
	var buf bytes.Buffer
	obs := &countingObserver{}
	f := NewFilter(zerolog.New(&buf), obs)

	in := []*Patient{{ID: uuid.New(), Name: "Data Ruim", Date: "amanhã"}}
	if out := f.Apply(in, Criteria{StartDate: date("2024-01-01")}); len(out) != 1 {
		t.Fatalf("expected patient kept, got %d", len(out))
	}
	if obs.n != 1 {
		t.Errorf("expected 1 parse failure, got %d", obs.n)
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) || !strings.Contains(buf.String(), "amanhã") {
		t.Errorf("expected a warning naming the date, got %s", buf.String())
	}
}

func TestFilter_NoWarningWithoutDateRange(t *testing.T) {
	var buf bytes.Buffer
	obs := &countingObserver{}
	f := NewFilter(zerolog.New(&buf), obs)

	f.Apply([]*Patient{{ID: uuid.New(), Name: "Data Ruim", Date: "amanhã"}}, Criteria{})
	if obs.n != 0 || buf.Len() != 0 {
		t.Errorf("date must not be parsed without a range")
	}
}

func TestFilterPatients_SkipsNil(t *testing.T) {
	out := FilterPatients([]*Patient{nil, {Name: "Ana"}}, Criteria{})
	if len(out) != 1 {
		t.Errorf("expected nil entry dropped, got %d", len(out))
	}
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-01-15", "2024-01-15T10:00:00Z", "2024-01-15 10:00:00", "15/01/2024"} {
		d, ok := ParseDate(s)
		if !ok || !d.Equal(*date("2024-01-15")) {
			t.Errorf("ParseDate(%q) = %v, %v", s, d, ok)
		}
	}
	if _, ok := ParseDate("2024-13-45"); ok {
		t.Error("expected failure for an invalid date")
	}
}

func TestFilterPatients_PendingIncludesIncompleteRecords(t *testing.T) {
	in := []*Patient{
		{ID: uuid.New(), Name: "Ana", CPF: "111", Specialty: "Cardiologia", Date: "2024-01-10", Time: "09:00", Status: StatusAttended},
		{ID: uuid.New(), Name: "Bia", CPF: "222", Status: StatusConfirmed},
	}
	out := FilterPatients(in, Criteria{Status: string(StatusPending)})
	if got := names(out); len(got) != 1 || got[0] != "Bia" {
		t.Errorf("expected [Bia], got %v", got)
	}

	out = FilterPatients(in, Criteria{Search: "111"})
	if got := names(out); len(got) != 1 || got[0] != "Ana" {
		t.Errorf("expected [Ana], got %v", got)
	}
}

func TestFilterPatients_StatusIgnoresCaseAndSpaces(t *testing.T) {
	in := []*Patient{
		{ID: uuid.New(), Name: "Ana", CPF: "111", Specialty: "1", Date: "2024-01-10", Time: "09:00", Status: StatusAttended},
		{ID: uuid.New(), Name: "Bia", CPF: "222"},
	}
	for _, status := range []string{"Pendente", "pendente", "Pendente ", " PENDENTE"} {
		got := names(FilterPatients(in, Criteria{Status: status}))
		if len(got) != 1 || got[0] != "Bia" {
			t.Errorf("status %q: expected [Bia], got %v", status, got)
		}
	}
	if got := names(FilterPatients(in, Criteria{Status: " atendido"})); len(got) != 1 || got[0] != "Ana" {
		t.Errorf("expected [Ana], got %v", got)
	}
}
