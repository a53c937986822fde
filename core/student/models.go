package student

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/thusykanna/school-management-system-v1/core"
)

type Student struct {
	ID            int         `json:"id" db:"id"`
	StudentNumber string      `json:"student_number" db:"student_number"`
	FirstName     string      `json:"first_name" db:"first_name"`
	LastName      string      `json:"last_name" db:"last_name"`
	Email         null.String `json:"email" db:"email"`
	Phone         null.String `json:"phone" db:"phone"`
	Address       null.String `json:"address" db:"address"`
	DateOfBirth   *core.Date  `json:"date_of_birth" db:"date_of_birth"`
	GradeLevel    int         `json:"grade_level" db:"grade_level"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"` // UTC
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Detail is a student with the names of the subjects they are enrolled in.
type Detail struct {
	Student
	Subjects []string `json:"subjects"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	StudentNumber string     `json:"student_number" validate:"required,notblank,max=20"`
	FirstName     string     `json:"first_name" validate:"required,notblank,max=50"`
	LastName      string     `json:"last_name" validate:"required,notblank,max=50"`
	Email         string     `json:"email" validate:"omitempty,email,max=100"`
	Phone         string     `json:"phone" validate:"omitempty,max=20"`
	Address       string     `json:"address" validate:"omitempty,max=255"`
	DateOfBirth   *core.Date `json:"date_of_birth"`
	GradeLevel    int        `json:"grade_level" validate:"required,gte=1,lte=13"`
}

func (ns *NewStudent) clean() {
	ns.StudentNumber = core.CleanString(ns.StudentNumber)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
}

func (ns *NewStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.StudentNumber)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Every field is replaced, like the creation form.
type UpdateStudent NewStudent

func (us *UpdateStudent) Validate(ctx context.Context, validate *validator.Validate, svc *Service, orig Student) error {
	ns := (*NewStudent)(us)
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, ns.StudentNumber, orig.ID)
}

type QueryFilter struct {
	Search     string `query:"search"`
	GradeLevel int    `query:"grade_level"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func (ns NewStudent) toStudent() Student {
	return Student{
		StudentNumber: ns.StudentNumber,
		FirstName:     ns.FirstName,
		LastName:      ns.LastName,
		Email:         null.NewString(ns.Email, ns.Email != ""),
		Phone:         null.NewString(ns.Phone, ns.Phone != ""),
		Address:       null.NewString(ns.Address, ns.Address != ""),
		DateOfBirth:   ns.DateOfBirth,
		GradeLevel:    ns.GradeLevel,
	}
}
