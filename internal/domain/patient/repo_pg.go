package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/frontdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// Specialty and professional live on patient_additional_data.
const patientSelect = `SELECT p.id, p.name, p.cpf, p.birth_date, p.phone, p.email,
	COALESCE(a.specialty, ''), COALESCE(a.professional, ''),
	COALESCE(p.appointment_date, ''), COALESCE(p.appointment_time, ''),
	COALESCE(p.status, ''), COALESCE(p.health_plan, ''), COALESCE(p.attendance_type, ''),
	p.created_at, p.updated_at
	FROM patients p
	LEFT JOIN patient_additional_data a ON a.patient_id = p.id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.CPF, &p.BirthDate, &p.Phone, &p.Email,
		&p.Specialty, &p.Professional, &p.Date, &p.Time,
		&status, &p.HealthPlan, &p.AttendanceType, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, name, cpf, birth_date, phone, email,
			appointment_date, appointment_time, status, health_plan, attendance_type)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),NULLIF($8,''),NULLIF($9,''),NULLIF($10,''),NULLIF($11,''))
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.CPF, p.BirthDate, p.Phone, p.Email,
		p.Date, p.Time, string(p.Status), p.HealthPlan, p.AttendanceType,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, patientSelect+` WHERE p.id = $1`, id))
}

func (r *patientRepoPG) List(ctx context.Context, statuses []Status) ([]*Patient, error) {
	query := patientSelect
	var args []interface{}
	if len(statuses) > 0 {
		raw := make([]string, len(statuses))
		for i, s := range statuses {
			raw[i] = string(s)
		}
		query += ` WHERE p.status = ANY($1)`
		args = append(args, raw)
	}
	query += ` ORDER BY p.appointment_date NULLS LAST, p.appointment_time NULLS LAST, p.name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, cpf=$3, birth_date=$4, phone=$5, email=$6,
			appointment_date=NULLIF($7,''), appointment_time=NULLIF($8,''), status=NULLIF($9,''),
			health_plan=NULLIF($10,''), attendance_type=NULLIF($11,''), updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.CPF, p.BirthDate, p.Phone, p.Email,
		p.Date, p.Time, string(p.Status), p.HealthPlan, p.AttendanceType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*Patient, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET status=$2, attendance_type=NULLIF($3,''),
			appointment_time=COALESCE(NULLIF($4,''), appointment_time), updated_at=NOW()
		WHERE id = $1`,
		id, string(upd.Status), upd.AttendanceType, upd.AppointmentTime)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// =========== Additional Data Repository ===========

type additionalRepoPG struct{ pool *pgxpool.Pool }

func NewAdditionalDataRepoPG(pool *pgxpool.Pool) AdditionalDataRepository {
	return &additionalRepoPG{pool: pool}
}

func (r *additionalRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *additionalRepoPG) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*AdditionalData, error) {
	var a AdditionalData
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT patient_id, COALESCE(health_plan,''), COALESCE(health_plan_card,''), health_plan_expiry,
			COALESCE(specialty,''), COALESCE(professional,''), COALESCE(reception_desk,''), updated_at
		FROM patient_additional_data WHERE patient_id = $1`, patientID,
	).Scan(&a.PatientID, &a.HealthPlan, &a.HealthPlanCard, &a.HealthPlanExpiry,
		&a.Specialty, &a.Professional, &a.ReceptionDesk, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *additionalRepoPG) Upsert(ctx context.Context, a *AdditionalData) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_additional_data (patient_id, health_plan, health_plan_card, health_plan_expiry,
			specialty, professional, reception_desk)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''))
		ON CONFLICT (patient_id) DO UPDATE SET
			health_plan = EXCLUDED.health_plan,
			health_plan_card = EXCLUDED.health_plan_card,
			health_plan_expiry = EXCLUDED.health_plan_expiry,
			specialty = EXCLUDED.specialty,
			professional = EXCLUDED.professional,
			reception_desk = EXCLUDED.reception_desk,
			updated_at = NOW()
		RETURNING updated_at`,
		a.PatientID, a.HealthPlan, a.HealthPlanCard, a.HealthPlanExpiry,
		a.Specialty, a.Professional, a.ReceptionDesk,
	).Scan(&a.UpdatedAt)
}
