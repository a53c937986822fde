package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/subject"
)

const subjectColumns = "s.id, s.subject_code, s.subject_name, s.description, s.credits, s.created_at"

var subjectOrderings = map[string]string{
	"id":           "s.id",
	"subject_code": "s.subject_code",
	"subject_name": "s.subject_name",
	"credits":      "s.credits",
	"created_at":   "s.created_at",
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) *subjectRepository {
	return &subjectRepository{db: db}
}

func codeTaken() error {
	return core.NewValidationError(
		subject.ErrCodeExists,
		core.FieldError{Field: "subject_code", Error: subject.ErrCodeExists.Error()},
	)
}

func (repo *subjectRepository) CheckCodeUniqueness(ctx context.Context, code string, excludeID int) error {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM subjects WHERE subject_code = ? AND id <> ?")
	if err := repo.db.GetContext(ctx, &n, q, code, excludeID); err != nil {
		return errors.Wrap(err, "checking subject code uniqueness")
	}
	if n > 0 {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	id, err := insertReturningID(
		ctx, repo.db,
		`INSERT INTO subjects (subject_code, subject_name, description, credits, created_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`,
		s.Code, s.Name, s.Description, s.Credits, s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, codeTaken()
		}
		return subject.Subject{}, err
	}
	s.ID = id
	return s, nil
}

func (repo *subjectRepository) GetSubject(ctx context.Context, id int) (subject.Subject, error) {
	var s subject.Subject
	q := repo.db.Rebind("SELECT " + subjectColumns + " FROM subjects s WHERE s.id = ?")
	err := repo.db.GetContext(ctx, &s, q, id)
	return s, trapNoRowsErr(err, subject.ErrNotFound)
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]subject.Subject, error) {
	q := "SELECT " + subjectColumns + `,
		(SELECT COUNT(*) FROM enrollments e WHERE e.subject_id = s.id) AS enrolled_count
		FROM subjects s
		ORDER BY ` + core.OrderByClause(ordering, subjectOrderings, "s.subject_name ASC") + ", s.id ASC"

	subjects := make([]subject.Subject, 0)
	if err := repo.db.SelectContext(ctx, &subjects, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	q := repo.db.Rebind(`UPDATE subjects
		SET subject_code = ?, subject_name = ?, description = ?, credits = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, s.Code, s.Name, s.Description, s.Credits, s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return subject.Subject{}, codeTaken()
		}
		return subject.Subject{}, err
	}
	if err = affected(res, subject.ErrNotFound); err != nil {
		return subject.Subject{}, err
	}
	return s, nil
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM subjects WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return affected(res, subject.ErrNotFound)
}

func (repo *subjectRepository) CreateEnrollment(ctx context.Context, e subject.Enrollment) (subject.Enrollment, error) {
	id, err := insertReturningID(
		ctx, repo.db,
		"INSERT INTO enrollments (student_id, subject_id, enrolled_at) VALUES (?, ?, ?) RETURNING id",
		e.StudentID, e.SubjectID, e.EnrolledAt,
	)
	switch {
	case err == nil:
	case isUniqueViolation(err):
		return subject.Enrollment{}, subject.ErrAlreadyEnrolled
	case isForeignKeyViolation(err):
		// the student or subject vanished since the service looked them up
		return subject.Enrollment{}, student.ErrNotFound
	default:
		return subject.Enrollment{}, err
	}
	e.ID = id
	return e, nil
}

func (repo *subjectRepository) DeleteEnrollment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind("DELETE FROM enrollments WHERE id = ?"), id)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return affected(res, subject.ErrEnrollmentNotFound)
}

func (repo *subjectRepository) Roster(ctx context.Context, subjectID int) ([]subject.RosterEntry, error) {
	roster := make([]subject.RosterEntry, 0)
	q := repo.db.Rebind(`SELECT e.id AS enrollment_id, st.id AS student_id, st.student_number,
			st.first_name, st.last_name, st.grade_level, e.enrolled_at
		FROM enrollments e JOIN students st ON st.id = e.student_id
		WHERE e.subject_id = ?
		ORDER BY st.last_name, st.first_name, st.id`)
	if err := repo.db.SelectContext(ctx, &roster, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "listing roster")
	}
	return roster, nil
}

func (repo *subjectRepository) StudentSubjects(ctx context.Context, studentID int) ([]subject.EnrolledSubject, error) {
	subjects := make([]subject.EnrolledSubject, 0)
	q := repo.db.Rebind(`SELECT e.id AS enrollment_id, s.id AS subject_id, s.subject_code, s.subject_name,
			s.credits, e.enrolled_at
		FROM enrollments e JOIN subjects s ON s.id = e.subject_id
		WHERE e.student_id = ?
		ORDER BY s.subject_name, s.id`)
	if err := repo.db.SelectContext(ctx, &subjects, q, studentID); err != nil {
		return nil, errors.Wrap(err, "listing student subjects")
	}
	return subjects, nil
}
