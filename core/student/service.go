package student

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("student")
	ErrNumberExists = errors.New("student number already exists")
)

type (
	Repository interface {
		// CheckNumberUniqueness returns ErrNumberExists when another student (not excludeID) holds the number.
		CheckNumberUniqueness(ctx context.Context, number string, excludeID int) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// CreateStudents inserts all students or none.
		CreateStudents(ctx context.Context, students []Student) ([]Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// DeleteStudent removes the student with its enrollments and marks.
		DeleteStudent(ctx context.Context, id int) error
		EnrolledSubjectNames(ctx context.Context, id int) ([]string, error)
	}

	Service struct {
		repo   Repository
		cache  core.Cache
		logger core.Logger
	}
)

func NewService(repo Repository, cache core.Cache, logger core.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

func (svc *Service) checkUniqueness(ctx context.Context, number string, excludeID ...int) error {
	var excl int
	if len(excludeID) > 0 {
		excl = excludeID[0]
	}
	if err := svc.repo.CheckNumberUniqueness(ctx, number, excl); err != nil {
		if err == ErrNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "student_number", Error: err.Error()})
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

// Create stores a validated NewStudent.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Student{}, err
	}
	s := ns.toStudent()
	s.CreatedAt = time.Now().UTC()
	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	svc.purge(ctx)
	return s, nil
}

// Import validates every row first, then inserts them all in one go.
// Row numbers in the returned validation error are 1-based data rows.
func (svc *Service) Import(ctx context.Context, validate *validator.Validate, rows []NewStudent) ([]Student, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}

	var fldErrs []core.FieldError
	seen := make(map[string]int, len(rows))
	students := make([]Student, 0, len(rows))
	now := time.Now().UTC()
	for i := range rows {
		ns := rows[i]
		field := fmt.Sprintf("row %d", i+1)
		if err := ns.Validate(ctx, validate, svc); err != nil {
			switch vErr := errors.Cause(err).(type) {
			case validator.ValidationErrors:
				for _, fe := range vErr {
					fldErrs = append(fldErrs, core.FieldError{Field: field, Error: fe.Field() + ": " + fe.Tag()})
				}
				continue
			case *core.ValidationError:
				for _, fe := range vErr.Fields {
					fldErrs = append(fldErrs, core.FieldError{Field: field, Error: fe.Error})
				}
				continue
			default:
				return nil, err
			}
		}
		if prev, dup := seen[ns.StudentNumber]; dup {
			fldErrs = append(fldErrs, core.FieldError{
				Field: field,
				Error: fmt.Sprintf("student number duplicates row %d", prev),
			})
			continue
		}
		seen[ns.StudentNumber] = i + 1

		s := ns.toStudent()
		s.CreatedAt = now
		students = append(students, s)
	}
	if len(fldErrs) > 0 {
		return nil, core.NewValidationError(errors.New("import rejected"), fldErrs...)
	}
	if len(students) == 0 {
		return []Student{}, nil
	}

	created, err := svc.repo.CreateStudents(ctx, students)
	if err != nil {
		return nil, errors.Wrap(err, "importing students")
	}
	svc.purge(ctx)
	return created, nil
}

func (svc *Service) Get(ctx context.Context, id int) (Student, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Student{}, err
	}
	return svc.repo.GetStudent(ctx, id)
}

// GetDetail returns the student with their enrolled subject names.
func (svc *Service) GetDetail(ctx context.Context, id int) (Detail, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	names, err := svc.repo.EnrolledSubjectNames(ctx, id)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing enrolled subjects")
	}
	return Detail{Student: s, Subjects: names}, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Student{}, err
	}
	s := NewStudent(us).toStudent()
	s.ID = orig.ID
	s.CreatedAt = orig.CreatedAt
	s, err := svc.repo.UpdateStudent(ctx, s)
	if err != nil {
		return Student{}, err
	}
	svc.purge(ctx)
	return s, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return err
	}
	if err := svc.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	svc.purge(ctx)
	return nil
}
