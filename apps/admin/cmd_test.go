package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
	cachesvc "github.com/thusykanna/school-management-system-v1/services/cache"
	logsvc "github.com/thusykanna/school-management-system-v1/services/logger"
	"github.com/thusykanna/school-management-system-v1/services/spreadsheet"
	sqlxrepos "github.com/thusykanna/school-management-system-v1/storage/database/sqlx"
	"github.com/thusykanna/school-management-system-v1/tests"
)

var (
	teacherRepo teacher.Repository
	studentRepo student.Repository
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	teacherRepo = sqlxrepos.NewTeacherRepository(db)
	studentRepo = sqlxrepos.NewStudentRepository(db)

	// start CLI
	return newCommandLine(db, conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf), cachesvc.Noop{})
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, before func(tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		if before != nil {
			before(tt)
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
	}
	runCLITests(t, cli, tests, nil)
}

func Test_commandLine_migrateForReal(t *testing.T) {
	cli := setup(t)

	// PrepareDB already migrated up; going down then up again must work on the embedded files.
	require.NoError(t, cli.run([]string{"admin", "migrate", "down"}))
	require.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
	require.NoError(t, cli.run([]string{"admin", "migrate", "status"}))
}

func Test_commandLine_addTeacher(t *testing.T) {
	cli := setup(t)
	testutil.CreateTeacher(t, teacherRepo, "Jane Doe", "jdoe", "jane@school.test", "Str0ng!pass")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "missing flags", args: []string{"addteacher", "-username", "mmajor"}, wantErr: errHelp},
		{
			name:    "no password",
			args:    []string{"addteacher", "-username", "mmajor", "-name", "Mary Major", "-email", "mary@school.test"},
			wantErr: errHelp,
		},
		{
			name:       "username taken",
			args:       []string{"addteacher", "-username", "JDoe", "-name", "Mary Major", "-email", "mary@school.test"},
			extra:      extra{pwd: "Str0ng!pass"},
			wantErrStr: "username: username already exists",
		},
		{
			name:       "password too short",
			args:       []string{"addteacher", "-username", "mmajor", "-name", "Mary Major", "-email", "mary@school.test"},
			extra:      extra{pwd: "abc"},
			wantErrStr: "password: password must be at least 6 characters in length",
		},
		{
			name:  "success",
			args:  []string{"addteacher", "-username", "mmajor", "-name", "Mary Major", "-email", "mary@school.test"},
			extra: extra{pwd: "Str0ng!pass"},
		},
	}
	runCLITests(t, cli, tests, func(tt cliTest) {
		readPasswordFunc = func(int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}
	})

	tch, err := teacherRepo.GetTeacher(context.Background(), teacher.GetFilter{UsernameOrEmail: "mmajor"})
	require.NoError(t, err)
	assert.Equal(t, "Mary Major", tch.Name)
	assert.NoError(t, tch.CheckPassword("Str0ng!pass"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	tch := testutil.CreateTeacher(t, teacherRepo, "Jane Doe", "jdoe", "jane@school.test", "Str0ng!pass")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "teacher not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: teacher.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", tch.Username}, extra: extra{pwd: "n3w-pass"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", tch.Email}, extra: extra{pwd: "n3wer-pass"}},
	}
	runCLITests(t, cli, tests, func(tt cliTest) {
		readPasswordFunc = func(int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}
	})

	refreshed, err := teacherRepo.GetTeacher(context.Background(), teacher.GetFilter{ID: tch.ID})
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshed.PasswordHash, tch.PasswordHash))
	assert.NoError(t, refreshed.CheckPassword("n3wer-pass"))
}

func writeRoster(t *testing.T, rows ...[]interface{}) string {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func Test_commandLine_importAndExport(t *testing.T) {
	cli := setup(t)
	tch := testutil.CreateTeacher(t, teacherRepo, "Jane Doe", "jdoe", "jane@school.test", "Str0ng!pass")

	header := []interface{}{"student_number", "first_name", "last_name", "grade_level"}
	good := writeRoster(t, header, []interface{}{"S001", "Ann", "Smith", 10}, []interface{}{"S002", "Bob", "Adams", 11})
	bad := writeRoster(t, header, []interface{}{"S003", "Cy", "Dunn", "ten"})
	out := filepath.Join(t.TempDir(), "report.xlsx")

	tests := []cliTest{
		{name: "import: missing flags", args: []string{"importstudents", "-file", good}, wantErr: errHelp},
		{name: "import: unknown teacher", args: []string{"importstudents", "-file", good, "-teacher", "ghost"}, wantErr: teacher.ErrNotFound},
		{name: "import: bad row", args: []string{"importstudents", "-file", bad, "-teacher", tch.Username}, wantErrStr: "row 1: grade_level: not a whole number"},
		{name: "import", args: []string{"importstudents", "-file", good, "-teacher", tch.Username}},
		{name: "export: missing flags", args: []string{"exportreport", "-teacher", tch.Username}, wantErr: errHelp},
		{name: "export", args: []string{"exportreport", "-out", out, "-teacher", tch.Email}},
	}
	runCLITests(t, cli, tests, nil)

	students, err := studentRepo.QueryStudents(testutil.AuthContext(tch), student.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue(spreadsheet.SheetOverview, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2", v) // total_students
}
