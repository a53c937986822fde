package main

import (
	"context"
	"fmt"

	"github.com/thusykanna/school-management-system-v1/core/teacher"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	t, err := cli.svc.teachers.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if _, err = cli.svc.teachers.SetPassword(ctx, t, pwd); err != nil {
		return err
	}
	fmt.Printf("Password updated for %s\n", t.Username)
	return nil
}

// addTeacher signs a teacher up with the same rules as the API.
func (cli *commandLine) addTeacher(uname, name, email, pwd string) error {
	ctx := context.Background()
	nt := teacher.NewTeacher{
		Username:        uname,
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nt.Validate(ctx, cli.validate, cli.svc.teachers); err != nil {
		return describe(err, cli)
	}
	t, err := cli.svc.teachers.Signup(ctx, nt)
	if err != nil {
		return err
	}
	fmt.Printf("Teacher %s created (id %d)\n", t.Username, t.ID)
	return nil
}
