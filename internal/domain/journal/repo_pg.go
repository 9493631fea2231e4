package journal

import (
	"context"
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

func tableFor(kind Kind) string {
	if kind == KindLog {
		return "patient_logs"
	}
	return "patient_notes"
}

type entryRepoPG struct {
	pool  *pgxpool.Pool
	table string
}

func NewRepoPG(pool *pgxpool.Pool, kind Kind) Repository {
	return &entryRepoPG{pool: pool, table: tableFor(kind)}
}

func (r *entryRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *entryRepoPG) Append(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	query := fmt.Sprintf(`INSERT INTO %s (id, patient_id, body, actor)
		VALUES ($1, $2, $3, $4) RETURNING created_at`, r.table)
	if err := r.conn(ctx).QueryRow(ctx, query, e.ID, e.PatientID, e.Body, e.Actor).Scan(&e.CreatedAt); err != nil {
		return fmt.Errorf("insert into %s: %w", r.table, err)
	}
	return nil
}

func (r *entryRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE patient_id = $1`, r.table)
	if err := r.conn(ctx).QueryRow(ctx, countQuery, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.table, err)
	}

	query := fmt.Sprintf(`SELECT id, patient_id, body, actor, created_at FROM %s
		WHERE patient_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`, r.table)
	rows, err := r.conn(ctx).Query(ctx, query, patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.table, err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Body, &e.Actor, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
