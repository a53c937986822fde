package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
)

const teacherColumns = "id, username, full_name, email, password_hash, created_at, updated_at"

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil)

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CheckUniqueness(ctx context.Context, username, email string, excludeID int) error {
	var taken []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	q := repo.db.Rebind("SELECT username, email FROM teachers WHERE (username = ? OR email = ?) AND id <> ?")
	if err := repo.db.SelectContext(ctx, &taken, q, username, email, excludeID); err != nil {
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	for _, t := range taken {
		if t.Username == username {
			return teacher.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return teacher.ErrEmailExists
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	id, err := insertReturningID(
		ctx, repo.db,
		`INSERT INTO teachers (username, full_name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		t.Username, t.Name, t.Email, t.PasswordHash, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return teacher.Teacher{}, core.NewValidationError(teacher.ErrUsernameExists)
		}
		return teacher.Teacher{}, err
	}
	t.ID = id
	return t, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, filter teacher.GetFilter) (teacher.Teacher, error) {
	var (
		t   teacher.Teacher
		err error
	)
	switch {
	case filter.ID > 0:
		q := repo.db.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE id = ?")
		err = repo.db.GetContext(ctx, &t, q, filter.ID)
	case filter.UsernameOrEmail != "":
		q := repo.db.Rebind("SELECT " + teacherColumns + " FROM teachers WHERE username = ? OR email = ? ORDER BY id LIMIT 1")
		err = repo.db.GetContext(ctx, &t, q, filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return t, trapNoRowsErr(err, teacher.ErrNotFound)
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := repo.db.Rebind(`UPDATE teachers
		SET username = ?, full_name = ?, email = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, t.Username, t.Name, t.Email, t.PasswordHash, t.UpdatedAt, t.ID)
	if err != nil {
		return teacher.Teacher{}, err
	}
	if err = affected(res, teacher.ErrNotFound); err != nil {
		return teacher.Teacher{}, err
	}
	return t, nil
}
