package mark

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/grade"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/subject"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("mark")
	ErrKeyReused      = errors.New("idempotency key already used for a different mark")
	errKeyReusedField = core.FieldError{Field: "idempotency_key", Error: ErrKeyReused.Error()}
)

type (
	Repository interface {
		// CreateMark inserts m. When m carries an idempotency key that was already used, the existing
		// mark is returned with created=false and nothing is written.
		CreateMark(ctx context.Context, m Mark) (saved Mark, created bool, err error)
		GetMark(ctx context.Context, id int) (Mark, error)
		UpdateMark(ctx context.Context, m Mark) (Mark, error)
		DeleteMark(ctx context.Context, id int) error
		// QueryMarks lists marks newest first, optionally for one student.
		QueryMarks(ctx context.Context, filter QueryFilter) ([]Listing, error)
	}

	StudentGetter interface {
		GetStudent(ctx context.Context, id int) (student.Student, error)
	}

	SubjectGetter interface {
		GetSubject(ctx context.Context, id int) (subject.Subject, error)
	}

	Service struct {
		repo     Repository
		students StudentGetter
		subjects SubjectGetter
		activity activity.Recorder
		cache    core.Cache
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	students StudentGetter,
	subjects SubjectGetter,
	recorder activity.Recorder,
	cache core.Cache,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		students: students,
		subjects: subjects,
		activity: recorder,
		cache:    cache,
		logger:   logger,
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// names resolves display names for the activity trail; lookups that fail yield "".
func (svc *Service) names(ctx context.Context, m Mark) (studentName, subjectName string) {
	if s, err := svc.students.GetStudent(ctx, m.StudentID); err == nil {
		studentName = s.FullName()
	}
	if s, err := svc.subjects.GetSubject(ctx, m.SubjectID); err == nil {
		subjectName = s.Name
	}
	return studentName, subjectName
}

// afterWrite runs the side effects of a successful write: cache purge then activity append.
// Neither can fail the write.
func (svc *Service) afterWrite(ctx context.Context, description string) {
	if err := svc.cache.Purge(ctx); err != nil {
		svc.logger.Warn("analytics cache purge failed", errors.Wrap(err, "purging cache"))
	}
	svc.activity.Record(ctx, description)
}

// Create records a validated NewMark. Replaying an idempotency key returns the first mark with created=false.
func (svc *Service) Create(ctx context.Context, nm NewMark) (Mark, bool, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Mark{}, false, err
	}
	stud, err := svc.students.GetStudent(ctx, nm.StudentID)
	if err != nil {
		return Mark{}, false, err
	}
	subj, err := svc.subjects.GetSubject(ctx, nm.SubjectID)
	if err != nil {
		return Mark{}, false, err
	}

	m := Mark{
		StudentID:      stud.ID,
		SubjectID:      subj.ID,
		Value:          *nm.Value,
		ExamType:       nm.ExamType,
		ExamDate:       nm.ExamDate,
		IdempotencyKey: null.NewString(nm.IdempotencyKey, nm.IdempotencyKey != ""),
		CreatedAt:      time.Now().UTC(),
	}
	saved, created, err := svc.repo.CreateMark(ctx, m)
	if err != nil {
		return Mark{}, false, errors.Wrap(err, "creating mark")
	}
	if !created {
		if !samePayload(saved, m) {
			return Mark{}, false, core.NewValidationError(ErrKeyReused, errKeyReusedField)
		}
		return saved, false, nil
	}

	svc.afterWrite(ctx, fmt.Sprintf("Marks added for %s in %s (%s marks)", stud.FullName(), subj.Name, formatValue(saved.Value)))
	return saved, true, nil
}

func samePayload(a, b Mark) bool {
	return a.StudentID == b.StudentID &&
		a.SubjectID == b.SubjectID &&
		a.Value == b.Value &&
		a.ExamType == b.ExamType &&
		a.ExamDate.String() == b.ExamDate.String()
}

func (svc *Service) Get(ctx context.Context, id int) (Mark, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return Mark{}, err
	}
	return svc.repo.GetMark(ctx, id)
}

// Update changes the value, exam type and exam date of a mark.
func (svc *Service) Update(ctx context.Context, id int, um UpdateMark) (Mark, error) {
	m, err := svc.Get(ctx, id)
	if err != nil {
		return Mark{}, err
	}
	m.Value = *um.Value
	m.ExamType = um.ExamType
	m.ExamDate = um.ExamDate

	m, err = svc.repo.UpdateMark(ctx, m)
	if err != nil {
		return Mark{}, err
	}

	studentName, subjectName := svc.names(ctx, m)
	svc.afterWrite(ctx, fmt.Sprintf("Marks updated for %s in %s (%s marks)", studentName, subjectName, formatValue(m.Value)))
	return m, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	m, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteMark(ctx, id); err != nil {
		return err
	}

	studentName, subjectName := svc.names(ctx, m)
	svc.afterWrite(ctx, fmt.Sprintf("Marks deleted for %s in %s (%s marks)", studentName, subjectName, formatValue(m.Value)))
	return nil
}

// List returns marks newest first with their letter grades, optionally for one student.
func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Listing, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	listings, err := svc.repo.QueryMarks(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	for i := range listings {
		listings[i].LetterGrade = grade.Classify(listings[i].Value)
	}
	return listings, nil
}

// ListByStudent is List restricted to one student.
func (svc *Service) ListByStudent(ctx context.Context, studentID int) ([]Listing, error) {
	return svc.List(ctx, QueryFilter{StudentID: studentID})
}
