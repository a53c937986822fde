package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core/analytics"
)

type analyticsRepository struct {
	db *sqlx.DB
}

var _ analytics.Repository = (*analyticsRepository)(nil)

func NewAnalyticsRepository(db *sqlx.DB) *analyticsRepository {
	return &analyticsRepository{db: db}
}

func (repo *analyticsRepository) Totals(ctx context.Context) (analytics.Totals, error) {
	var t analytics.Totals
	err := repo.db.GetContext(ctx, &t, `SELECT
		(SELECT COUNT(*) FROM students) AS students,
		(SELECT COUNT(*) FROM subjects) AS subjects,
		(SELECT COUNT(*) FROM enrollments) AS enrollments`)
	return t, errors.Wrap(err, "counting totals")
}

func (repo *analyticsRepository) MarkFacts(ctx context.Context) ([]analytics.Fact, error) {
	facts := make([]analytics.Fact, 0)
	err := repo.db.SelectContext(ctx, &facts, `SELECT m.id AS mark_id, m.marks, m.subject_id,
			s.subject_code, s.subject_name,
			st.id AS student_id, st.student_number, st.first_name, st.last_name, st.grade_level
		FROM marks m
		JOIN students st ON st.id = m.student_id
		JOIN subjects s ON s.id = m.subject_id
		ORDER BY m.id`)
	if err != nil {
		return nil, errors.Wrap(err, "loading mark facts")
	}
	return facts, nil
}

func (repo *analyticsRepository) Students(ctx context.Context) ([]analytics.StudentRef, error) {
	refs := make([]analytics.StudentRef, 0)
	err := repo.db.SelectContext(ctx, &refs, `SELECT id AS student_id, student_number, first_name, last_name, grade_level
		FROM students ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}
	return refs, nil
}
