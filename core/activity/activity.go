// Package activity keeps the audit trail shown on the dashboard feed.
package activity

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/thusykanna/school-management-system-v1/core"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Entry struct {
	ID          int       `json:"id" db:"id"`
	TeacherID   null.Int  `json:"teacher_id" db:"teacher_id"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry) (Entry, error)
		RecentEntries(ctx context.Context, limit int) ([]Entry, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record appends an entry at most once. It never fails the caller: a write that already
// succeeded stays successful even if its log line is lost, and the loss is reported to the logger.
func (svc *Service) Record(ctx context.Context, description string) {
	e := Entry{Description: description, CreatedAt: time.Now().UTC()}
	id, ok := core.IdentityFromContext(ctx)
	if ok {
		e.TeacherID = null.IntFrom(id.TeacherID)
	}
	if _, err := svc.repo.CreateEntry(ctx, e); err != nil {
		svc.logger.Error("activity log append failed", errors.Wrap(err, "recording activity"), id)
	}
}

// Recent returns the newest entries first.
func (svc *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if _, err := core.RequireIdentity(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return svc.repo.RecentEntries(ctx, limit)
}

// Recorder is what writers need to append to the trail.
type Recorder interface {
	Record(ctx context.Context, description string)
}

var _ Recorder = (*Service)(nil)
