package form

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinforms/clinforms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Definition Repository ===========

type definitionRepoPG struct{ pool *pgxpool.Pool }

func NewDefinitionRepoPG(pool *pgxpool.Pool) DefinitionRepository {
	return &definitionRepoPG{pool: pool}
}

func (r *definitionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const definitionCols = `id, code, name, description, category, is_standard, created_by, created_at, updated_at`

func (r *definitionRepoPG) scanDefinition(row pgx.Row) (*Definition, error) {
	var d Definition
	err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Description, &d.Category, &d.IsStandard,
		&d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *definitionRepoPG) Create(ctx context.Context, d *Definition) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_definition (id, code, name, description, category, is_standard, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.Code, d.Name, d.Description, d.Category, d.IsStandard, d.CreatedBy)
	return err
}

func (r *definitionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Definition, error) {
	return r.scanDefinition(r.conn(ctx).QueryRow(ctx, `SELECT `+definitionCols+` FROM form_definition WHERE id = $1`, id))
}

func (r *definitionRepoPG) GetByCode(ctx context.Context, code string) (*Definition, error) {
	return r.scanDefinition(r.conn(ctx).QueryRow(ctx, `SELECT `+definitionCols+` FROM form_definition WHERE code = $1`, code))
}

func (r *definitionRepoPG) Update(ctx context.Context, d *Definition) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE form_definition SET name=$2, description=$3, category=$4, is_standard=$5, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Description, d.Category, d.IsStandard)
	return err
}

func (r *definitionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM form_definition WHERE id = $1`, id)
	return err
}

func (r *definitionRepoPG) List(ctx context.Context, category string, limit, offset int) ([]*Definition, int, error) {
	where, args := ``, []interface{}{}
	if category != "" {
		where = ` WHERE category = $1`
		args = append(args, category)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM form_definition`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+definitionCols+` FROM form_definition%s ORDER BY name LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Definition
	for rows.Next() {
		d, err := r.scanDefinition(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Version Repository ===========

type versionRepoPG struct{ pool *pgxpool.Pool }

func NewVersionRepoPG(pool *pgxpool.Pool) VersionRepository {
	return &versionRepoPG{pool: pool}
}

func (r *versionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const versionCols = `id, definition_id, version_number, status, structure, published_at, created_at, updated_at`

func (r *versionRepoPG) scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	err := row.Scan(&v.ID, &v.DefinitionID, &v.VersionNumber, &v.Status, &v.Structure,
		&v.PublishedAt, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *versionRepoPG) Create(ctx context.Context, v *Version) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_version (id, definition_id, version_number, status, structure)
		VALUES ($1,$2,$3,$4,$5)`,
		v.ID, v.DefinitionID, v.VersionNumber, v.Status, v.Structure)
	return err
}

func (r *versionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Version, error) {
	return r.scanVersion(r.conn(ctx).QueryRow(ctx, `SELECT `+versionCols+` FROM form_version WHERE id = $1`, id))
}

func (r *versionRepoPG) Update(ctx context.Context, v *Version) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE form_version SET status=$2, structure=$3, published_at=$4, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.Status, v.Structure, v.PublishedAt)
	return err
}

func (r *versionRepoPG) ListByDefinition(ctx context.Context, definitionID uuid.UUID) ([]*Version, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+versionCols+` FROM form_version WHERE definition_id = $1 ORDER BY version_number DESC`, definitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Version
	for rows.Next() {
		v, err := r.scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *versionRepoPG) GetPublished(ctx context.Context, definitionID uuid.UUID) (*Version, error) {
	return r.scanVersion(r.conn(ctx).QueryRow(ctx,
		`SELECT `+versionCols+` FROM form_version WHERE definition_id = $1 AND status = 'published'`, definitionID))
}

func (r *versionRepoPG) MaxVersionNumber(ctx context.Context, definitionID uuid.UUID) (int, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM form_version WHERE definition_id = $1`, definitionID).Scan(&max)
	return max, err
}
