package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/mark"
)

const markColumns = "id, student_id, subject_id, marks, exam_type, exam_date, idempotency_key, created_at"

type markRepository struct {
	db *sqlx.DB
}

var _ mark.Repository = (*markRepository)(nil)

func NewMarkRepository(db *sqlx.DB) *markRepository {
	return &markRepository{db: db}
}

// CreateMark relies on the unique idempotency_key column: a replayed key inserts nothing and the
// first mark is read back instead. NULL keys never conflict.
func (repo *markRepository) CreateMark(ctx context.Context, m mark.Mark) (mark.Mark, bool, error) {
	id, err := insertReturningID(
		ctx, repo.db,
		`INSERT INTO marks (student_id, subject_id, marks, exam_type, exam_date, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`,
		m.StudentID, m.SubjectID, m.Value, m.ExamType, m.ExamDate, m.IdempotencyKey, m.CreatedAt,
	)
	switch {
	case err == nil:
		m.ID = id
		return m, true, nil
	case err == sql.ErrNoRows && m.IdempotencyKey.Valid:
		existing, err := repo.getByKey(ctx, m.IdempotencyKey.String)
		if err != nil {
			return mark.Mark{}, false, errors.Wrap(err, "fetching idempotent mark")
		}
		return existing, false, nil
	case isForeignKeyViolation(err):
		return mark.Mark{}, false, core.NewNotFoundError("student or subject")
	default:
		return mark.Mark{}, false, err
	}
}

func (repo *markRepository) getByKey(ctx context.Context, key string) (mark.Mark, error) {
	var m mark.Mark
	q := repo.db.Rebind("SELECT " + markColumns + " FROM marks WHERE idempotency_key = ?")
	err := repo.db.GetContext(ctx, &m, q, key)
	return m, trapNoRowsErr(err, mark.ErrNotFound)
}

func (repo *markRepository) GetMark(ctx context.Context, id int) (mark.Mark, error) {
	var m mark.Mark
	q := repo.db.Rebind("SELECT " + markColumns + " FROM marks WHERE id = ?")
	err := repo.db.GetContext(ctx, &m, q, id)
	return m, trapNoRowsErr(err, mark.ErrNotFound)
}

func (repo *markRepository) UpdateMark(ctx context.Context, m mark.Mark) (mark.Mark, error) {
	q := repo.db.Rebind("UPDATE marks SET marks = ?, exam_type = ?, exam_date = ? WHERE id = ?")
	res, err := repo.db.ExecContext(ctx, q, m.Value, m.ExamType, m.ExamDate, m.ID)
	if err != nil {
		return mark.Mark{}, err
	}
	if err = affected(res, mark.ErrNotFound); err != nil {
		return mark.Mark{}, err
	}
	return m, nil
}

func (repo *markRepository) DeleteMark(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM marks WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting mark")
	}
	return affected(res, mark.ErrNotFound)
}

func (repo *markRepository) QueryMarks(ctx context.Context, filter mark.QueryFilter) ([]mark.Listing, error) {
	q := `SELECT m.id, m.student_id, m.subject_id, m.marks, m.exam_type, m.exam_date, m.created_at,
			st.student_number, st.first_name, st.last_name, s.subject_code, s.subject_name
		FROM marks m
		JOIN students st ON st.id = m.student_id
		JOIN subjects s ON s.id = m.subject_id`
	var args []interface{}
	if filter.StudentID > 0 {
		q += " WHERE m.student_id = ?"
		args = append(args, filter.StudentID)
	}
	q += " ORDER BY m.exam_date DESC, m.id DESC"

	listings := make([]mark.Listing, 0)
	if err := repo.db.SelectContext(ctx, &listings, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return listings, nil
}
