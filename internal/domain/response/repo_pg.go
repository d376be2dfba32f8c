package response

import (
	"context"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const responseCols = `id, version_id, patient_id, encounter_id, status, authored_by, completed_at, created_at, updated_at`

func (r *repoPG) scanResponse(row pgx.Row) (*FormResponse, error) {
	var fr FormResponse
	err := row.Scan(&fr.ID, &fr.VersionID, &fr.PatientID, &fr.EncounterID, &fr.Status,
		&fr.AuthoredBy, &fr.CompletedAt, &fr.CreatedAt, &fr.UpdatedAt)
	return &fr, err
}

func (r *repoPG) Create(ctx context.Context, fr *FormResponse) error {
	fr.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO form_response (id, version_id, patient_id, encounter_id, status, authored_by)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		fr.ID, fr.VersionID, fr.PatientID, fr.EncounterID, fr.Status, fr.AuthoredBy)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*FormResponse, error) {
	fr, err := r.scanResponse(r.conn(ctx).QueryRow(ctx, `SELECT `+responseCols+` FROM form_response WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	fr.Answers, err = r.loadAnswers(ctx, id)
	return fr, err
}

func (r *repoPG) loadAnswers(ctx context.Context, responseID uuid.UUID) ([]Answer, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, response_id, question_id, repeat_index, matrix_row_id, matrix_col_id, option_id, value
		FROM response_answer WHERE response_id = $1 ORDER BY question_id, repeat_index`, responseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &a.RepeatIndex,
			&a.MatrixRowID, &a.MatrixColID, &a.OptionID, &a.Value); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, fr *FormResponse) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE form_response SET status=$2, completed_at=$3, updated_at=NOW()
		WHERE id = $1`,
		fr.ID, fr.Status, fr.CompletedAt)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM form_response WHERE id = $1`, id)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FormResponse, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM form_response WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+responseCols+` FROM form_response WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*FormResponse
	for rows.Next() {
		fr, err := r.scanResponse(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, fr)
	}
	return items, total, rows.Err()
}

// ReplaceAnswers swaps the answer set in one transaction so a failed
// save never leaves a half-written draft.
func (r *repoPG) ReplaceAnswers(ctx context.Context, responseID uuid.UUID, answers []Answer) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		conn := r.conn(ctx)
		if _, err := conn.Exec(ctx, `DELETE FROM response_answer WHERE response_id = $1`, responseID); err != nil {
			return err
		}
		for i := range answers {
			a := &answers[i]
			a.ID = uuid.New()
			a.ResponseID = responseID
			if _, err := conn.Exec(ctx, `
				INSERT INTO response_answer (id, response_id, question_id, repeat_index, matrix_row_id, matrix_col_id, option_id, value)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				a.ID, a.ResponseID, a.QuestionID, a.RepeatIndex, a.MatrixRowID, a.MatrixColID, a.OptionID, a.Value); err != nil {
				return err
			}
		}
		if _, err := conn.Exec(ctx, `UPDATE form_response SET updated_at=NOW() WHERE id = $1`, responseID); err != nil {
			return err
		}
		return nil
	})
}
