package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/ehr/frontdesk/internal/platform/supabase"
)

const (
	tablePatients       = "patients"
	tableAdditionalData = "patient_additional_data"

	patientColumns = `id, name, cpf, birth_date, phone, email, appointment_date, appointment_time,
		status, health_plan, attendance_type, created_at, updated_at,
		patient_additional_data(specialty, professional)`
)

type patientRow struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	CPF             *string         `json:"cpf"`
	BirthDate       *string         `json:"birth_date"`
	Phone           *string         `json:"phone"`
	Email           *string         `json:"email"`
	AppointmentDate *string         `json:"appointment_date"`
	AppointmentTime *string         `json:"appointment_time"`
	Status          *string         `json:"status"`
	HealthPlan      *string         `json:"health_plan"`
	AttendanceType  *string         `json:"attendance_type"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Additional      json.RawMessage `json:"patient_additional_data,omitempty"`
}

type embeddedAdditional struct {
	Specialty    *string `json:"specialty"`
	Professional *string `json:"professional"`
}

func (r patientRow) toPatient() (*Patient, error) {
	p := &Patient{
		ID:             r.ID,
		Name:           r.Name,
		CPF:            deref(r.CPF),
		BirthDate:      r.BirthDate,
		Phone:          r.Phone,
		Email:          r.Email,
		Date:           deref(r.AppointmentDate),
		Time:           deref(r.AppointmentTime),
		Status:         Status(deref(r.Status)),
		HealthPlan:     deref(r.HealthPlan),
		AttendanceType: deref(r.AttendanceType),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	extra, err := decodeEmbedded(r.Additional)
	if err != nil {
		return nil, err
	}
	if extra != nil {
		p.Specialty = deref(extra.Specialty)
		p.Professional = deref(extra.Professional)
	}
	return p, nil
}

// decodeEmbedded accepts the embedded resource as an object, a one-element
// array, or null; PostgREST picks the shape from the detected cardinality.
func decodeEmbedded(raw json.RawMessage) (*embeddedAdditional, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []embeddedAdditional
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode additional data: %w", err)
		}
		if len(list) == 0 {
			return nil, nil
		}
		return &list[0], nil
	}
	var one embeddedAdditional
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("decode additional data: %w", err)
	}
	return &one, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// =========== Patient Repository ===========

type patientRepoSupabase struct{ client *supa.Client }

func NewRepoSupabase(client *supa.Client) Repository {
	return &patientRepoSupabase{client: client}
}

func (r *patientRepoSupabase) decodeOne(data []byte) (*Patient, error) {
	var rows []patientRow
	if err := supabase.Decode(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toPatient()
}

func (r *patientRepoSupabase) Create(ctx context.Context, p *Patient) error {
	if err := supabase.CtxErr(ctx); err != nil {
		return err
	}
	p.ID = uuid.New()
	values := map[string]interface{}{
		"id":               p.ID,
		"name":             p.Name,
		"cpf":              p.CPF,
		"birth_date":       p.BirthDate,
		"phone":            p.Phone,
		"email":            p.Email,
		"appointment_date": nullable(p.Date),
		"appointment_time": nullable(p.Time),
		"status":           nullable(string(p.Status)),
		"health_plan":      nullable(p.HealthPlan),
		"attendance_type":  nullable(p.AttendanceType),
	}
	data, _, err := r.client.From(tablePatients).Insert(values, false, "", "representation", "").Execute()
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	created, err := r.decodeOne(data)
	if err != nil {
		return err
	}
	p.CreatedAt, p.UpdatedAt = created.CreatedAt, created.UpdatedAt
	return nil
}

func (r *patientRepoSupabase) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	if err := supabase.CtxErr(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tablePatients).
		Select(patientColumns, "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return r.decodeOne(data)
}

func (r *patientRepoSupabase) List(ctx context.Context, statuses []Status) ([]*Patient, error) {
	if err := supabase.CtxErr(ctx); err != nil {
		return nil, err
	}
	query := r.client.From(tablePatients).Select(patientColumns, "", false)
	if len(statuses) > 0 {
		raw := make([]string, len(statuses))
		for i, s := range statuses {
			raw[i] = string(s)
		}
		query = query.In("status", raw)
	}
	query = query.
		Order("appointment_date", &postgrest.OrderOpts{Ascending: true}).
		Order("appointment_time", &postgrest.OrderOpts{Ascending: true}).
		Order("name", &postgrest.OrderOpts{Ascending: true})

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	var rows []patientRow
	if err := supabase.Decode(data, &rows); err != nil {
		return nil, err
	}
	items := make([]*Patient, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPatient()
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (r *patientRepoSupabase) Update(ctx context.Context, p *Patient) error {
	if err := supabase.CtxErr(ctx); err != nil {
		return err
	}
	values := map[string]interface{}{
		"name":             p.Name,
		"cpf":              p.CPF,
		"birth_date":       p.BirthDate,
		"phone":            p.Phone,
		"email":            p.Email,
		"appointment_date": nullable(p.Date),
		"appointment_time": nullable(p.Time),
		"status":           nullable(string(p.Status)),
		"health_plan":      nullable(p.HealthPlan),
		"attendance_type":  nullable(p.AttendanceType),
		"updated_at":       time.Now().UTC(),
	}
	data, _, err := r.client.From(tablePatients).
		Update(values, "representation", "").
		Eq("id", p.ID.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	_, err = r.decodeOne(data)
	return err
}

func (r *patientRepoSupabase) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*Patient, error) {
	if err := supabase.CtxErr(ctx); err != nil {
		return nil, err
	}
	values := map[string]interface{}{
		"status":          string(upd.Status),
		"attendance_type": nullable(upd.AttendanceType),
		"updated_at":      time.Now().UTC(),
	}
	if upd.AppointmentTime != "" {
		values["appointment_time"] = upd.AppointmentTime
	}
	data, _, err := r.client.From(tablePatients).
		Update(values, "representation", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("update patient status: %w", err)
	}
	if _, err := r.decodeOne(data); err != nil {
		return nil, err
	}
	// Re-read so the embedded specialty/professional come back too.
	return r.GetByID(ctx, id)
}

func (r *patientRepoSupabase) Delete(ctx context.Context, id uuid.UUID) error {
	if err := supabase.CtxErr(ctx); err != nil {
		return err
	}
	data, _, err := r.client.From(tablePatients).
		Delete("representation", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	var rows []patientRow
	if err := supabase.Decode(data, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Additional Data Repository ===========

type additionalRepoSupabase struct{ client *supa.Client }

func NewAdditionalDataRepoSupabase(client *supa.Client) AdditionalDataRepository {
	return &additionalRepoSupabase{client: client}
}

type additionalRow struct {
	PatientID        uuid.UUID `json:"patient_id"`
	HealthPlan       *string   `json:"health_plan"`
	HealthPlanCard   *string   `json:"health_plan_card"`
	HealthPlanExpiry *string   `json:"health_plan_expiry"`
	Specialty        *string   `json:"specialty"`
	Professional     *string   `json:"professional"`
	ReceptionDesk    *string   `json:"reception_desk"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (r additionalRow) toAdditionalData() *AdditionalData {
	return &AdditionalData{
		PatientID:        r.PatientID,
		HealthPlan:       deref(r.HealthPlan),
		HealthPlanCard:   deref(r.HealthPlanCard),
		HealthPlanExpiry: r.HealthPlanExpiry,
		Specialty:        deref(r.Specialty),
		Professional:     deref(r.Professional),
		ReceptionDesk:    deref(r.ReceptionDesk),
		UpdatedAt:        r.UpdatedAt,
	}
}

func (r *additionalRepoSupabase) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*AdditionalData, error) {
	if err := supabase.CtxErr(ctx); err != nil {
		return nil, err
	}
	data, _, err := r.client.From(tableAdditionalData).
		Select("*", "", false).
		Eq("patient_id", patientID.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("get additional data: %w", err)
	}
	var rows []additionalRow
	if err := supabase.Decode(data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toAdditionalData(), nil
}

func (r *additionalRepoSupabase) Upsert(ctx context.Context, a *AdditionalData) error {
	if err := supabase.CtxErr(ctx); err != nil {
		return err
	}
	values := map[string]interface{}{
		"patient_id":         a.PatientID,
		"health_plan":        nullable(a.HealthPlan),
		"health_plan_card":   nullable(a.HealthPlanCard),
		"health_plan_expiry": a.HealthPlanExpiry,
		"specialty":          nullable(a.Specialty),
		"professional":       nullable(a.Professional),
		"reception_desk":     nullable(a.ReceptionDesk),
		"updated_at":         time.Now().UTC(),
	}
	data, _, err := r.client.From(tableAdditionalData).
		Upsert(values, "patient_id", "representation", "").
		Execute()
	if err != nil {
		return fmt.Errorf("upsert additional data: %w", err)
	}
	var rows []additionalRow
	if err := supabase.Decode(data, &rows); err != nil {
		return err
	}
	if len(rows) > 0 {
		a.UpdatedAt = rows[0].UpdatedAt
	}
	return nil
}
