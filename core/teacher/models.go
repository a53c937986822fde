package teacher

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/thusykanna/school-management-system-v1/core"
)

type Teacher struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(pwd))
}

// Identity is what gets attached to a request once the teacher is authenticated.
func (t Teacher) Identity() core.Identity {
	return core.Identity{TeacherID: t.ID, Username: t.Username, Name: t.Name, Email: t.Email}
}

// NewTeacher contains information needed to sign a teacher up.
type NewTeacher struct {
	Username        string `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Name            string `json:"full_name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=100"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nt *NewTeacher) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Email = core.CleanString(nt.Email, true /* lower */)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nt.Username, nt.Email)
}

// GetFilter selects a single teacher; the first non-zero field wins.
type GetFilter struct {
	ID              int
	UsernameOrEmail string
}
