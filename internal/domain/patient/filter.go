package patient

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Criteria are independent predicates combined with AND. Zero values match
// everything.
type Criteria struct {
	Search       string
	Status       string
	Specialty    string
	Professional string
	StartDate    *time.Time
	EndDate      *time.Time
}

// HasDateRange reports whether either date bound is set.
func (c Criteria) HasDateRange() bool {
	return c.StartDate != nil || c.EndDate != nil
}

// statusWildcards are status filter values the reception UI sends for "any".
var statusWildcards = map[string]bool{"": true, "all": true, "todos": true}

// Layouts tried, in order, when reading a stored appointment date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// ParseDate reads a stored appointment date in any of the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dayOf(t), true
		}
	}
	return time.Time{}, false
}

// ParseFailureObserver is told about every date the filter could not parse.
type ParseFailureObserver interface {
	ObserveDateParseFailure()
}

// Filter applies reception Criteria to a patient list.
type Filter struct {
	logger   zerolog.Logger
	observer ParseFailureObserver
}

func NewFilter(logger zerolog.Logger, observer ParseFailureObserver) *Filter {
	return &Filter{logger: logger, observer: observer}
}

var silentFilter = NewFilter(zerolog.Nop(), nil)

// FilterPatients is Filter.Apply without logging.
func FilterPatients(patients []*Patient, c Criteria) []*Patient {
	return silentFilter.Apply(patients, c)
}

// Apply returns the patients matching every criterion, in input order.
func (f *Filter) Apply(patients []*Patient, c Criteria) []*Patient {
	search := strings.TrimSpace(c.Search)
	status := strings.TrimSpace(c.Status)
	out := make([]*Patient, 0, len(patients))
	for _, p := range patients {
		if p == nil {
			continue
		}
		if !matchesText(p, search) {
			continue
		}
		if !matchesStatus(p, status) {
			continue
		}
		if c.Specialty != "" && p.Specialty != c.Specialty {
			continue
		}
		if c.Professional != "" && p.Professional != c.Professional {
			continue
		}
		if c.HasDateRange() && !f.matchesDate(p, c.StartDate, c.EndDate) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// matchesStatus compares against the display status, ignoring case and
// surrounding spaces.
func matchesStatus(p *Patient, status string) bool {
	if statusWildcards[strings.ToLower(status)] {
		return true
	}
	return strings.EqualFold(status, string(DisplayStatus(p)))
}

func matchesText(p *Patient, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
		return true
	}
	if strings.Contains(p.CPF, search) {
		return true
	}
	// "123.456" should find a cpf stored as bare digits and vice versa, but
	// only when the search is a tax id and not a name fragment.
	if looksLikeCPF(search) {
		return strings.Contains(digitsOnly(p.CPF), digitsOnly(search))
	}
	return false
}

func looksLikeCPF(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return false
		}
	}
	return digits > 0
}

// matchesDate is permissive: a patient without a date, or with one that
// cannot be parsed, is never excluded by the range.
func (f *Filter) matchesDate(p *Patient, start, end *time.Time) bool {
	if isBlank(p.Date) {
		return true
	}
	d, ok := ParseDate(p.Date)
	if !ok {
		f.logger.Warn().
			Str("patient_id", p.ID.String()).
			Str("date", p.Date).
			Msg("unparseable appointment date, keeping patient in date filter")
		if f.observer != nil {
			f.observer.ObserveDateParseFailure()
		}
		return true
	}
	if start != nil && d.Before(dayOf(*start)) {
		return false
	}
	if end != nil && d.After(dayOf(*end)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
