package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core/activity"
)

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateEntry(ctx context.Context, e activity.Entry) (activity.Entry, error) {
	id, err := insertReturningID(
		ctx, repo.db,
		"INSERT INTO activity_log (teacher_id, description, created_at) VALUES (?, ?, ?) RETURNING id",
		e.TeacherID, e.Description, e.CreatedAt,
	)
	if err != nil {
		return activity.Entry{}, err
	}
	e.ID = id
	return e, nil
}

func (repo *activityRepository) RecentEntries(ctx context.Context, limit int) ([]activity.Entry, error) {
	entries := make([]activity.Entry, 0, limit)
	q := repo.db.Rebind(`SELECT id, teacher_id, description, created_at
		FROM activity_log ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := repo.db.SelectContext(ctx, &entries, q, limit); err != nil {
		return nil, errors.Wrap(err, "listing activity")
	}
	return entries, nil
}
