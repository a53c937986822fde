package teacher

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("teacher")
	ErrUsernameExists     = errors.New("username already exists")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another teacher (not excludeID) holds them.
		CheckUniqueness(ctx context.Context, username, email string, excludeID int) error
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, filter GetFilter) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, excludeID ...int) error {
	var excl int
	if len(excludeID) > 0 {
		excl = excludeID[0]
	}
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excl); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Signup creates a teacher account. `nt` must have been validated.
func (svc *Service) Signup(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	t := Teacher{
		Username:  nt.Username,
		Name:      nt.Name,
		Email:     nt.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	t, err := svc.repo.CreateTeacher(ctx, t)
	return t, errors.Wrap(err, "creating teacher")
}

// Authenticate checks credentials; unknown usernames and wrong passwords fail the same way.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (Teacher, error) {
	t, err := svc.repo.GetTeacher(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	if err != nil {
		if err == ErrNotFound {
			return Teacher{}, ErrInvalidCredentials
		}
		return Teacher{}, errors.Wrap(err, "finding teacher by username or email")
	}
	if err = t.CheckPassword(pwd); err != nil {
		return Teacher{}, ErrInvalidCredentials
	}
	return t, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Me returns the teacher behind the request identity.
func (svc *Service) Me(ctx context.Context) (Teacher, error) {
	id, err := core.RequireIdentity(ctx)
	if err != nil {
		return Teacher{}, err
	}
	t, err := svc.GetByID(ctx, id.TeacherID)
	if err == ErrNotFound {
		return Teacher{}, core.ErrUnauthorized
	}
	return t, err
}

// SetPassword replaces a teacher's password (admin tooling; no policy beyond non-empty).
func (svc *Service) SetPassword(ctx context.Context, t Teacher, pwd string) (Teacher, error) {
	if err := t.SetPassword(pwd); err != nil {
		return Teacher{}, errors.Wrap(err, "hashing password")
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}
