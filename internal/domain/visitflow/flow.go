package visitflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ehr/frontdesk/internal/domain/patient"
)

var (
	ErrUnknownStage   = errors.New("unknown visit stage")
	ErrStageNotActive = errors.New("stage is not active")
	ErrExamsOrdered   = errors.New("exams were ordered")
	ErrInvalidFlow    = errors.New("invalid visit flow")
)

type Stage string

const (
	StageReception Stage = "reception"
	StageDoctor    Stage = "doctor"
	StageExams     Stage = "exams"
	StageReturn    Stage = "return"
	StageCheckout  Stage = "checkout"
)

// stages is the fixed visit order.
var stages = [...]Stage{StageReception, StageDoctor, StageExams, StageReturn, StageCheckout}

// Stages returns the visit stages in order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages[:])
	return out
}

func indexOf(s Stage) (int, bool) {
	for i, st := range stages {
		if st == s {
			return i, true
		}
	}
	return -1, false
}

type StageStatus string

const (
	NotStarted StageStatus = "not_started"
	Waiting    StageStatus = "waiting"
	InProgress StageStatus = "in_progress"
	Completed  StageStatus = "completed"
)

func (s StageStatus) valid() bool {
	switch s {
	case NotStarted, Waiting, InProgress, Completed:
		return true
	}
	return false
}

func (s StageStatus) active() bool {
	return s == Waiting || s == InProgress
}

// FinishedMarker is the visit status set when checkout completes.
const FinishedMarker = patient.StatusAttended

// Flow is the progress of one visit through the stages. It lives only as
// long as the caller holds it; nothing here is stored.
type Flow struct {
	status      [len(stages)]StageStatus
	visitStatus patient.Status
}

// NewFlow returns the state of a patient who has just checked in: reception
// done, doctor in progress.
func NewFlow() *Flow {
	f := &Flow{}
	for i := range f.status {
		f.status[i] = NotStarted
	}
	f.status[0] = Completed
	f.status[1] = InProgress
	return f
}

// Status returns a stage's status, or "" for an unknown stage.
func (f *Flow) Status(s Stage) StageStatus {
	i, ok := indexOf(s)
	if !ok {
		return ""
	}
	return f.status[i]
}

func (f *Flow) VisitStatus() patient.Status { return f.visitStatus }

// Finished reports whether checkout has completed.
func (f *Flow) Finished() bool {
	return f.status[len(stages)-1] == Completed
}

// Active returns the stage currently waiting or in progress.
func (f *Flow) Active() (Stage, bool) {
	for i, st := range f.status {
		if st.active() {
			return stages[i], true
		}
	}
	return "", false
}

// Advance completes stage and starts the next one. Completing checkout
// finishes the visit. Advancing a completed stage changes nothing.
func (f *Flow) Advance(stage Stage) error {
	i, ok := indexOf(stage)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	switch f.status[i] {
	case Completed:
		return nil
	case NotStarted:
		return fmt.Errorf("%w: %s", ErrStageNotActive, stage)
	}

	f.status[i] = Completed
	if i+1 < len(stages) {
		f.status[i+1] = InProgress
	} else {
		f.visitStatus = FinishedMarker
	}
	return nil
}

// SkipExams sends a patient with no exams ordered straight from the doctor
// to checkout.
func (f *Flow) SkipExams(exams []string) error {
	if len(exams) > 0 {
		return fmt.Errorf("%w: %d pending", ErrExamsOrdered, len(exams))
	}
	if !f.Status(StageDoctor).active() {
		return fmt.Errorf("%w: %s", ErrStageNotActive, StageDoctor)
	}
	f.status[1] = Completed
	f.status[2] = NotStarted
	f.status[3] = NotStarted
	f.status[4] = InProgress
	return nil
}

// validate checks that reception is completed, at most one stage is active, everything after it
// has not started and everything before it is completed. Without an active
// stage every stage must be completed. Exams and return may stay not started
// once checkout has begun, which is what SkipExams leaves behind.
func (f *Flow) validate() error {
	active := -1
	for i, st := range f.status {
		if !st.valid() {
			return fmt.Errorf("%w: stage %s has status %q", ErrInvalidFlow, stages[i], st)
		}
		if st.active() {
			if active >= 0 {
				return fmt.Errorf("%w: both %s and %s are active", ErrInvalidFlow, stages[active], stages[i])
			}
			active = i
		}
	}

	// Reception completes at check-in, before any flow exists.
	if f.status[0] != Completed {
		return fmt.Errorf("%w: %s is %s", ErrInvalidFlow, stages[0], f.status[0])
	}

	last := len(stages) - 1
	skipped := f.status[1] == Completed && f.status[2] == NotStarted &&
		f.status[3] == NotStarted && f.status[last] != NotStarted

	for i, st := range f.status {
		if skipped && (i == 2 || i == 3) {
			continue
		}
		switch {
		case active < 0 && st != Completed:
			return fmt.Errorf("%w: no active stage but %s is %s", ErrInvalidFlow, stages[i], st)
		case active >= 0 && i < active && st != Completed:
			return fmt.Errorf("%w: %s is before the active stage but %s", ErrInvalidFlow, stages[i], st)
		case active >= 0 && i > active && st != NotStarted:
			return fmt.Errorf("%w: %s is after the active stage but %s", ErrInvalidFlow, stages[i], st)
		}
	}

	if f.Finished() != (f.visitStatus == FinishedMarker) || (f.visitStatus != "" && f.visitStatus != FinishedMarker) {
		return fmt.Errorf("%w: visit status %q with checkout %s", ErrInvalidFlow, f.visitStatus, f.status[last])
	}
	return nil
}

type flowJSON struct {
	Stages      map[Stage]StageStatus `json:"stages"`
	ActiveStage Stage                 `json:"active_stage,omitempty"`
	VisitStatus patient.Status        `json:"visit_status,omitempty"`
}

func (f *Flow) MarshalJSON() ([]byte, error) {
	out := flowJSON{Stages: make(map[Stage]StageStatus, len(stages)), VisitStatus: f.visitStatus}
	for i, st := range f.status {
		out.Stages[stages[i]] = st
	}
	out.ActiveStage, _ = f.Active()
	return json.Marshal(out)
}

// UnmarshalJSON accepts a flow a client got back earlier. Every stage must
// be present and the whole state must be reachable.
func (f *Flow) UnmarshalJSON(data []byte) error {
	var in flowJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var next Flow
	for s := range in.Stages {
		if _, ok := indexOf(s); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, s)
		}
	}
	for i, s := range stages {
		st, ok := in.Stages[s]
		if !ok {
			return fmt.Errorf("%w: missing stage %s", ErrInvalidFlow, s)
		}
		next.status[i] = st
	}
	next.visitStatus = in.VisitStatus
	if err := next.validate(); err != nil {
		return err
	}
	*f = next
	return nil
}
