package subject

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/thusykanna/school-management-system-v1/core"
)

type Subject struct {
	ID            int         `json:"id" db:"id"`
	Code          string      `json:"subject_code" db:"subject_code"`
	Name          string      `json:"subject_name" db:"subject_name"`
	Description   null.String `json:"description" db:"description"`
	Credits       int         `json:"credits" db:"credits"`
	EnrolledCount int         `json:"enrolled_count" db:"enrolled_count"` // only filled by Query
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`         // UTC
}

type Enrollment struct {
	ID         int       `json:"id" db:"id"`
	StudentID  int       `json:"student_id" db:"student_id"`
	SubjectID  int       `json:"subject_id" db:"subject_id"`
	EnrolledAt time.Time `json:"enrolled_at" db:"enrolled_at"` // UTC
}

// RosterEntry is an enrolled student as listed on a subject's roster.
type RosterEntry struct {
	EnrollmentID  int       `json:"enrollment_id" db:"enrollment_id"`
	StudentID     int       `json:"student_id" db:"student_id"`
	StudentNumber string    `json:"student_number" db:"student_number"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	GradeLevel    int       `json:"grade_level" db:"grade_level"`
	EnrolledAt    time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// EnrolledSubject is a subject as listed for one student.
type EnrolledSubject struct {
	EnrollmentID int       `json:"enrollment_id" db:"enrollment_id"`
	SubjectID    int       `json:"subject_id" db:"subject_id"`
	Code         string    `json:"subject_code" db:"subject_code"`
	Name         string    `json:"subject_name" db:"subject_name"`
	Credits      int       `json:"credits" db:"credits"`
	EnrolledAt   time.Time `json:"enrolled_at" db:"enrolled_at"`
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Code        string `json:"subject_code" validate:"required,notblank,max=20,alphanum_"`
	Name        string `json:"subject_name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Credits     int    `json:"credits" validate:"gte=0,lte=60"`
}

func (ns *NewSubject) clean() {
	ns.Code = strings.ToUpper(core.CleanString(ns.Code))
	ns.Name = core.CleanString(ns.Name)
	ns.Description = core.CleanString(ns.Description)
}

func (ns *NewSubject) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.Code)
}

func (ns NewSubject) toSubject() Subject {
	return Subject{
		Code:        ns.Code,
		Name:        ns.Name,
		Description: null.NewString(ns.Description, ns.Description != ""),
		Credits:     ns.Credits,
	}
}

// UpdateSubject replaces every editable field of a Subject.
type UpdateSubject NewSubject

func (us *UpdateSubject) Validate(ctx context.Context, validate *validator.Validate, svc *Service, orig Subject) error {
	ns := (*NewSubject)(us)
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.Code, orig.ID)
}

type NewEnrollment struct {
	StudentID int `json:"student_id" validate:"required,gt=0"`
	SubjectID int `json:"subject_id" validate:"required,gt=0"`
}

func (ne NewEnrollment) Validate(validate *validator.Validate) error {
	return validate.Struct(ne)
}
