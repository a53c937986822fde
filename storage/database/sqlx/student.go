package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/student"
)

const studentColumns = `id, student_number, first_name, last_name, email, phone, address,
	date_of_birth, grade_level, created_at`

var studentOrderings = map[string]string{
	"id":             "id",
	"student_number": "student_number",
	"first_name":     "first_name",
	"last_name":      "last_name",
	"grade_level":    "grade_level",
	"created_at":     "created_at",
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CheckNumberUniqueness(ctx context.Context, number string, excludeID int) error {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM students WHERE student_number = ? AND id <> ?")
	if err := repo.db.GetContext(ctx, &n, q, number, excludeID); err != nil {
		return errors.Wrap(err, "checking student number uniqueness")
	}
	if n > 0 {
		return student.ErrNumberExists
	}
	return nil
}

func numberTaken() error {
	return core.NewValidationError(
		student.ErrNumberExists,
		core.FieldError{Field: "student_number", Error: student.ErrNumberExists.Error()},
	)
}

func insertStudent(ctx context.Context, ext sqlx.ExtContext, s student.Student) (student.Student, error) {
	id, err := insertReturningID(
		ctx, ext,
		`INSERT INTO students (student_number, first_name, last_name, email, phone, address,
			date_of_birth, grade_level, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		s.StudentNumber, s.FirstName, s.LastName, s.Email, s.Phone, s.Address,
		s.DateOfBirth, s.GradeLevel, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, numberTaken()
		}
		return student.Student{}, err
	}
	s.ID = id
	return s, nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	return insertStudent(ctx, repo.db, s)
}

func (repo *studentRepository) CreateStudents(ctx context.Context, students []student.Student) ([]student.Student, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]student.Student, 0, len(students))
	for _, s := range students {
		s, err = insertStudent(ctx, tx, s)
		if err != nil {
			return nil, err
		}
		created = append(created, s)
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing transaction")
	}
	return created, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id int) (student.Student, error) {
	var s student.Student
	q := repo.db.Rebind("SELECT " + studentColumns + " FROM students WHERE id = ?")
	err := repo.db.GetContext(ctx, &s, q, id)
	return s, trapNoRowsErr(err, student.ErrNotFound)
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		where = append(where, `(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?
			OR LOWER(student_number) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	if filter.GradeLevel > 0 {
		where = append(where, "grade_level = ?")
		args = append(args, filter.GradeLevel)
	}

	q := "SELECT " + studentColumns + " FROM students"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderByClause(ordering, studentOrderings, "first_name ASC, last_name ASC") + ", id ASC"

	students := make([]student.Student, 0)
	if err := repo.db.SelectContext(ctx, &students, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := repo.db.Rebind(`UPDATE students
		SET student_number = ?, first_name = ?, last_name = ?, email = ?, phone = ?, address = ?,
			date_of_birth = ?, grade_level = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(
		ctx, q,
		s.StudentNumber, s.FirstName, s.LastName, s.Email, s.Phone, s.Address,
		s.DateOfBirth, s.GradeLevel, s.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, numberTaken()
		}
		return student.Student{}, err
	}
	if err = affected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM students WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return affected(res, student.ErrNotFound)
}

func (repo *studentRepository) EnrolledSubjectNames(ctx context.Context, id int) ([]string, error) {
	names := make([]string, 0)
	q := repo.db.Rebind(`SELECT s.subject_name
		FROM enrollments e JOIN subjects s ON s.id = e.subject_id
		WHERE e.student_id = ?
		ORDER BY s.subject_name, s.id`)
	if err := repo.db.SelectContext(ctx, &names, q, id); err != nil {
		return nil, errors.Wrap(err, "listing enrolled subject names")
	}
	return names, nil
}
