package mark

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/grade"
)

// Mark is one recorded exam score. Its (student, subject) pair never changes after creation.
type Mark struct {
	ID             int         `json:"id" db:"id"`
	StudentID      int         `json:"student_id" db:"student_id"`
	SubjectID      int         `json:"subject_id" db:"subject_id"`
	Value          float64     `json:"marks" db:"marks"`
	ExamType       string      `json:"exam_type" db:"exam_type"`
	ExamDate       core.Date   `json:"exam_date" db:"exam_date"`
	IdempotencyKey null.String `json:"-" db:"idempotency_key"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"` // UTC
}

func (m Mark) Grade() grade.Letter {
	return grade.Classify(m.Value)
}

// Listing is a Mark joined with its student and subject, as shown in mark tables.
type Listing struct {
	Mark
	StudentNumber string       `json:"student_number" db:"student_number"`
	FirstName     string       `json:"first_name" db:"first_name"`
	LastName      string       `json:"last_name" db:"last_name"`
	SubjectCode   string       `json:"subject_code" db:"subject_code"`
	SubjectName   string       `json:"subject_name" db:"subject_name"`
	LetterGrade   grade.Letter `json:"grade" db:"-"`
}

// NewMark contains information needed to record a Mark.
type NewMark struct {
	StudentID      int       `json:"student_id" validate:"required,gt=0"`
	SubjectID      int       `json:"subject_id" validate:"required,gt=0"`
	Value          *float64  `json:"marks" validate:"required,gte=0,lte=100"`
	ExamType       string    `json:"exam_type" validate:"required,notblank,max=50"`
	ExamDate       core.Date `json:"exam_date" validate:"required"`
	IdempotencyKey string    `json:"idempotency_key" validate:"omitempty,uuid"`
}

func (nm *NewMark) Validate(validate *validator.Validate) error {
	nm.ExamType = core.CleanString(nm.ExamType)
	nm.IdempotencyKey = core.CleanString(nm.IdempotencyKey, true /* lower */)
	return validate.Struct(nm)
}

// UpdateMark holds the only editable fields of a Mark.
type UpdateMark struct {
	Value    *float64  `json:"marks" validate:"required,gte=0,lte=100"`
	ExamType string    `json:"exam_type" validate:"required,notblank,max=50"`
	ExamDate core.Date `json:"exam_date" validate:"required"`
}

func (um *UpdateMark) Validate(validate *validator.Validate) error {
	um.ExamType = core.CleanString(um.ExamType)
	return validate.Struct(um)
}

type QueryFilter struct {
	StudentID int `query:"student_id"`
}
