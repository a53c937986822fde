package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	conf       *core.Config
	svc        services
	validate   *validator.Validate
	translator ut.Translator
}

func newCommandLine(db *sqlx.DB, conf *core.Config, logger core.Logger, cache core.Cache) *commandLine {
	cli := &commandLine{db: db, conf: conf}
	cli.svc = newServices(cli, logger, cache)
	cli.validate, cli.translator = core.NewValidator()
	teacher.InitValidators(cli.validate, cli.translator)
	return cli
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	fmt.Println("  addteacher -username USERNAME -name NAME -email EMAIL - create a teacher account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset a teacher's password")
	fmt.Println("  importstudents -file FILE.xlsx -teacher USERNAME|EMAIL - import a student roster")
	fmt.Println("  exportreport -out FILE.xlsx -teacher USERNAME|EMAIL - export the analytics workbook")
}

// promptPassword reads a password without echoing it.
func promptPassword(label string) (string, error) {
	fmt.Print(label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addTeacherCmd := flag.NewFlagSet("addteacher", flag.ContinueOnError)
	addTeacherUname := addTeacherCmd.String("username", "", "The teacher's username.")
	addTeacherName := addTeacherCmd.String("name", "", "The teacher's full name.")
	addTeacherEmail := addTeacherCmd.String("email", "", "The teacher's email. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The teacher's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "The .xlsx roster to import.")
	importTeacher := importCmd.String("teacher", "", "Username or email of the teacher the import is recorded for.")

	exportCmd := flag.NewFlagSet("exportreport", flag.ContinueOnError)
	exportOut := exportCmd.String("out", "", "Where to write the .xlsx workbook.")
	exportTeacher := exportCmd.String("teacher", "", "Username or email of the teacher the export is run for.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addteacher":
		if err := addTeacherCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addTeacherUname == "" || *addTeacherName == "" || *addTeacherEmail == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			addTeacherCmd.Usage()
			return errHelp
		}
		return cli.addTeacher(*addTeacherUname, *addTeacherName, *addTeacherEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" || *importTeacher == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile, *importTeacher)

	case "exportreport":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportOut == "" || *exportTeacher == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportReport(*exportOut, *exportTeacher)

	default:
		cli.printUsage()
		return errHelp
	}
}
