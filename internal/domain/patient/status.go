package patient

import "strings"

// StyleClass is the presentation token a UI maps to a badge colour.
type StyleClass string

const (
	StyleWaiting    StyleClass = "waiting"
	StyleInProgress StyleClass = "in_progress"
	StyleCritical   StyleClass = "critical"
	StyleCompleted  StyleClass = "completed"
)

// DisplayStatus derives what reception shows for a patient. Without a
// specialty, date and time the patient is still Pendente whatever the stored
// status says; otherwise the stored value passes through untouched.
func DisplayStatus(p *Patient) Status {
	if p == nil || isBlank(p.Specialty) || isBlank(p.Date) || isBlank(p.Time) {
		return StatusPending
	}
	return p.Status
}

// StyleFor maps a display status to its style token. Unknown values fall
// back to waiting.
func StyleFor(s Status) StyleClass {
	switch s {
	case StatusPending:
		return StyleWaiting
	case StatusConfirmed:
		return StyleInProgress
	case StatusWaiting:
		return StyleCritical
	case StatusAttended:
		return StyleCompleted
	default:
		return StyleWaiting
	}
}

// View is a patient as the reception list renders it.
type View struct {
	*Patient
	DisplayStatus Status     `json:"display_status"`
	StyleClass    StyleClass `json:"style_class"`
}

func NewView(p *Patient) View {
	ds := DisplayStatus(p)
	return View{Patient: p, DisplayStatus: ds, StyleClass: StyleFor(ds)}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
