package subject

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/student"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("subject")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment")
	ErrCodeExists         = errors.New("subject code already exists")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this subject")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists when another subject (not excludeID) holds the code.
		CheckCodeUniqueness(ctx context.Context, code string, excludeID int) error
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		// QuerySubjects lists subjects by name with their enrolled student count.
		QuerySubjects(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		// DeleteSubject removes the subject with its enrollments and marks.
		DeleteSubject(ctx context.Context, id int) error

		// CreateEnrollment returns ErrAlreadyEnrolled for an existing (student, subject) pair.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id int) error
		Roster(ctx context.Context, subjectID int) ([]RosterEntry, error)
		StudentSubjects(ctx context.Context, studentID int) ([]EnrolledSubject, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id int) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
		activity activity.Recorder
		cache    core.Cache
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	students StudentGetter,
	recorder activity.Recorder,
	cache core.Cache,
	logger core.Logger,
) *Service {
	return &Service{repo: repo, students: students, activity: recorder, cache: cache, logger: logger}
}

func (svc *Service) checkUniqueness(ctx context.Context, code string, excludeID ...int) error {
	var excl int
	if len(excludeID) > 0 {
		excl = excludeID[0]
	}
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excl); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "subject_code", Error: err.Error()})
		}
		return err
	}
	return nil
}

// purge drops cached analytics after a write. A failure is logged and never fails the write.
func (svc *Service) purge(ctx context.Context) {
	if err := svc.cache.Purge(ctx); err != nil {
		svc.logger.Warn("analytics cache purge failed", errors.Wrap(err, "purging cache"))
	}
}

func (svc *Service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Subject{}, err
	}
	s := ns.toSubject()
	s.CreatedAt = time.Now().UTC()
	s, err := svc.repo.CreateSubject(ctx, s)
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	svc.purge(ctx)
	return s, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Subject, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Subject{}, err
	}
	return svc.repo.GetSubject(ctx, id)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Subject, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubjects(ctx, ordering)
}

func (svc *Service) Update(ctx context.Context, orig Subject, us UpdateSubject) (Subject, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Subject{}, err
	}
	s := NewSubject(us).toSubject()
	s.ID = orig.ID
	s.CreatedAt = orig.CreatedAt
	s, err := svc.repo.UpdateSubject(ctx, s)
	if err != nil {
		return Subject{}, err
	}
	svc.purge(ctx)
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return err
	}
	if err := svc.repo.DeleteSubject(ctx, id); err != nil {
		return err
	}
	svc.purge(ctx)
	return nil
}

// Enroll adds a subject to a student's roster and records it in the activity trail.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Enrollment{}, err
	}
	stud, err := svc.students.GetStudent(ctx, ne.StudentID)
	if err != nil {
		return Enrollment{}, err
	}
	subj, err := svc.repo.GetSubject(ctx, ne.SubjectID)
	if err != nil {
		return Enrollment{}, err
	}

	e, err := svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:  stud.ID,
		SubjectID:  subj.ID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		if err == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(err)
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	svc.purge(ctx)
	svc.activity.Record(ctx, fmt.Sprintf("%s enrolled in %s", stud.FullName(), subj.Name))
	return e, nil
}

func (svc *Service) Unenroll(ctx context.Context, enrollmentID int) error {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return err
	}
	if err := svc.repo.DeleteEnrollment(ctx, enrollmentID); err != nil {
		return err
	}
	svc.purge(ctx)
	return nil
}

// Roster lists the students enrolled in a subject, by name.
func (svc *Service) Roster(ctx context.Context, subjectID int) ([]RosterEntry, error) {
	if _, err := svc.Get(ctx, subjectID); err != nil {
		return nil, err
	}
	return svc.repo.Roster(ctx, subjectID)
}

// StudentSubjects lists the subjects a student is enrolled in, by name.
func (svc *Service) StudentSubjects(ctx context.Context, studentID int) ([]EnrolledSubject, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	if _, err := svc.students.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.StudentSubjects(ctx, studentID)
}
