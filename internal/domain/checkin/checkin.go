package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/frontdesk/internal/domain/patient"
	"github.com/ehr/frontdesk/internal/platform/events"
)

// ErrPrimaryWrite wraps a failed status update. It is the only check-in
// failure a caller ever sees.
var ErrPrimaryWrite = errors.New("check-in status update failed")

// Advisory steps, as they appear in logs and metrics.
const (
	StepAdditionalData = "additional_data"
	StepSchedulingNote = "scheduling_note"
	StepObservations   = "observations_note"
	StepAuditLog       = "audit_log"
	StepEvent          = "event"
)

// EventConfirmed is the event type published after a confirmed check-in.
const EventConfirmed = "checkin.confirmed"

// Data is what reception fills in when confirming a patient's arrival.
type Data struct {
	AttendanceType   string         `json:"attendance_type"`
	Professional     string         `json:"professional"`
	Specialty        string         `json:"specialty"`
	HealthPlan       string         `json:"health_plan"`
	HealthPlanCard   string         `json:"health_plan_card"`
	HealthPlanExpiry *string        `json:"health_plan_expiry,omitempty"`
	Observations     string         `json:"observations"`
	AppointmentTime  string         `json:"appointment_time"`
	TargetStatus     patient.Status `json:"target_status"`
	ReceptionDesk    string         `json:"reception_desk"`
	// Actor labels the notes and log entry. Filled from the caller's token.
	Actor string `json:"-"`
}

// StatusWriter performs the consistency-critical write.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, upd patient.StatusUpdate) (*patient.Patient, error)
}

type AdditionalDataWriter interface {
	Upsert(ctx context.Context, a *patient.AdditionalData) error
}

// Journal appends free-text notes and audit-log lines for a patient.
type Journal interface {
	AddNote(ctx context.Context, patientID uuid.UUID, body, actor string) error
	AddLog(ctx context.Context, patientID uuid.UUID, body, actor string) error
}

// Observer counts outcomes. *metrics.Metrics implements it.
type Observer interface {
	ObserveCheckIn(result string)
	ObserveAdvisoryFailure(step string)
}

// Event is the payload published on the check-in topic.
type Event struct {
	Type           string         `json:"type"`
	PatientID      uuid.UUID      `json:"patient_id"`
	Status         patient.Status `json:"status"`
	AttendanceType string         `json:"attendance_type,omitempty"`
	Specialty      string         `json:"specialty,omitempty"`
	Professional   string         `json:"professional,omitempty"`
	Actor          string         `json:"actor,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

type Service struct {
	status     StatusWriter
	additional AdditionalDataWriter
	journal    Journal
	publisher  events.Publisher
	observer   Observer
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(status StatusWriter, additional AdditionalDataWriter, journal Journal,
	publisher events.Publisher, observer Observer, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		status:     status,
		additional: additional,
		journal:    journal,
		publisher:  publisher,
		observer:   observer,
		logger:     logger,
		now:        time.Now,
	}
}

// Confirm records a patient's arrival. Only the status update is
// authoritative: if it fails the check-in fails, whatever else succeeded.
// Every other write is advisory and a failure there is logged and counted
// but never returned. Steps run in order and each commits on its own.
func (s *Service) Confirm(ctx context.Context, patientID uuid.UUID, d Data) (*patient.Patient, error) {
	target := d.TargetStatus
	if target == "" {
		target = patient.StatusNursing
	}
	if !target.Known() {
		return nil, fmt.Errorf("%w: %s", patient.ErrInvalidStatus, target)
	}

	log := s.logger.With().Str("patient_id", patientID.String()).Logger()

	s.advisory(log, StepAdditionalData, s.additional.Upsert(ctx, &patient.AdditionalData{
		PatientID:        patientID,
		HealthPlan:       d.HealthPlan,
		HealthPlanCard:   d.HealthPlanCard,
		HealthPlanExpiry: d.HealthPlanExpiry,
		Specialty:        d.Specialty,
		Professional:     d.Professional,
		ReceptionDesk:    d.ReceptionDesk,
	}))

	updated, err := s.status.UpdateStatus(ctx, patientID, patient.StatusUpdate{
		Status:          target,
		AttendanceType:  d.AttendanceType,
		AppointmentTime: d.AppointmentTime,
	})
	if err != nil {
		s.observeResult("failed")
		log.Error().Err(err).Str("target_status", target.String()).Msg("check-in status update failed")
		return nil, fmt.Errorf("%w: %w", ErrPrimaryWrite, err)
	}

	if note := schedulingNote(d); note != "" {
		s.advisory(log, StepSchedulingNote, s.journal.AddNote(ctx, patientID, note, d.Actor))
	}
	if obs := strings.TrimSpace(d.Observations); obs != "" {
		s.advisory(log, StepObservations, s.journal.AddNote(ctx, patientID, "Observações: "+obs, d.Actor))
	}
	s.advisory(log, StepAuditLog, s.journal.AddLog(ctx, patientID, auditLine(updated, target, d), d.Actor))

	s.advisory(log, StepEvent, s.publisher.Publish(ctx, patientID.String(), Event{
		Type:           EventConfirmed,
		PatientID:      patientID,
		Status:         target,
		AttendanceType: d.AttendanceType,
		Specialty:      d.Specialty,
		Professional:   d.Professional,
		Actor:          d.Actor,
		OccurredAt:     s.now().UTC(),
	}))

	s.observeResult("confirmed")
	log.Info().Str("status", target.String()).Msg("check-in confirmed")

	// The status update returns the row as stored; the specialty and
	// professional just written may not be visible through it yet.
	if updated.Specialty == "" {
		updated.Specialty = d.Specialty
	}
	if updated.Professional == "" {
		updated.Professional = d.Professional
	}
	return updated, nil
}

func (s *Service) advisory(log zerolog.Logger, step string, err error) {
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("step", step).Msg("advisory check-in write failed")
	if s.observer != nil {
		s.observer.ObserveAdvisoryFailure(step)
	}
}

func (s *Service) observeResult(result string) {
	if s.observer != nil {
		s.observer.ObserveCheckIn(result)
	}
}

// schedulingNote is the note body carrying specialty and professional, or
// "" when neither was given.
func schedulingNote(d Data) string {
	var parts []string
	if sp := strings.TrimSpace(d.Specialty); sp != "" {
		parts = append(parts, "Especialidade: "+sp)
	}
	if pr := strings.TrimSpace(d.Professional); pr != "" {
		parts = append(parts, "Profissional: "+pr)
	}
	return strings.Join(parts, " | ")
}

func auditLine(p *patient.Patient, target patient.Status, d Data) string {
	line := fmt.Sprintf("Check-in confirmado para %s: status %s", p.Name, target)
	if d.AttendanceType != "" {
		line += ", atendimento " + d.AttendanceType
	}
	return line
}
