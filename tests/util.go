package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/mark"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/subject"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
	"github.com/thusykanna/school-management-system-v1/storage/database"
)

// NewConfig returns a config pointing at a fresh sqlite file under t.TempDir().
func NewConfig(t *testing.T) *core.Config {
	return &core.Config{
		Debug:     false,
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Alama",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			SessionCookie:             "alama_session",
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Name:   filepath.Join(t.TempDir(), "alama.db"),
		},
		Redis: core.RedisConfig{TTL: time.Minute},
	}
}

// PrepareDB opens and migrates the database described by conf. The connection is closed on cleanup.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	database.SilenceMigrations()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// AuthContext returns a context carrying tch's identity.
func AuthContext(tch teacher.Teacher) context.Context {
	return core.ContextWithIdentity(context.Background(), tch.Identity())
}

func CreateTeacher(t *testing.T, repo teacher.Repository, name, uname, email, pwd string) teacher.Teacher {
	now := time.Now().UTC()
	tch := teacher.Teacher{
		Name:      name,
		Username:  uname,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tch.SetPassword(pwd); err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	tch, err := repo.CreateTeacher(context.Background(), tch)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tch
}

func CreateStudent(t *testing.T, repo student.Repository, number, first, last string, gradeLevel int) student.Student {
	s, err := repo.CreateStudent(context.Background(), student.Student{
		StudentNumber: number,
		FirstName:     first,
		LastName:      last,
		GradeLevel:    gradeLevel,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateSubject(t *testing.T, repo subject.Repository, code, name string) subject.Subject {
	s, err := repo.CreateSubject(context.Background(), subject.Subject{
		Code:      code,
		Name:      name,
		Credits:   3,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return s
}

func Enroll(t *testing.T, repo subject.Repository, studentID, subjectID int) subject.Enrollment {
	e, err := repo.CreateEnrollment(context.Background(), subject.Enrollment{
		StudentID:  studentID,
		SubjectID:  subjectID,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

func CreateMark(t *testing.T, repo mark.Repository, studentID, subjectID int, value float64) mark.Mark {
	m, _, err := repo.CreateMark(context.Background(), mark.Mark{
		StudentID: studentID,
		SubjectID: subjectID,
		Value:     value,
		ExamType:  "Final",
		ExamDate:  core.NewDate(2024, time.March, 15),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateMark() failed: %v", err)
	}
	return m
}
