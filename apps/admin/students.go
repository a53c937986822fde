package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/services/spreadsheet"
)

// actAs returns a context carrying the identity of the teacher named by uname.
func (cli *commandLine) actAs(uname string) (context.Context, error) {
	ctx := context.Background()
	t, err := cli.svc.teachers.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return nil, err
	}
	return core.ContextWithIdentity(ctx, t.Identity()), nil
}

// describe flattens validation errors into one readable error.
func describe(err error, cli *commandLine) error {
	var lines []string
	switch vErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, fe := range vErr {
			lines = append(lines, fe.Field()+": "+fe.Translate(cli.translator))
		}
	case *core.ValidationError:
		for _, fe := range vErr.Fields {
			lines = append(lines, fe.Field+": "+fe.Error)
		}
	default:
		return err
	}
	if len(lines) == 0 {
		return err
	}
	sort.Strings(lines)
	return errors.New(strings.Join(lines, "\n"))
}

func (cli *commandLine) importStudents(path, uname string) error {
	ctx, err := cli.actAs(uname)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := spreadsheet.ReadStudents(f)
	if err != nil {
		return describe(err, cli)
	}
	created, err := cli.svc.students.Import(ctx, cli.validate, rows)
	if err != nil {
		return describe(err, cli)
	}
	fmt.Printf("%d students imported\n", len(created))
	return nil
}

func (cli *commandLine) exportReport(path, uname string) (err error) {
	ctx, err := cli.actAs(uname)
	if err != nil {
		return err
	}
	report, err := cli.svc.analytics.Report(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()
	if err = spreadsheet.WriteReport(f, report); err != nil {
		return err
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}
