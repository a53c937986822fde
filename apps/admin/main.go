package main

import (
	"context"
	"log"
	"os"

	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
	cachesvc "github.com/thusykanna/school-management-system-v1/services/cache"
	logsvc "github.com/thusykanna/school-management-system-v1/services/logger"
	"github.com/thusykanna/school-management-system-v1/storage/database"
	sqlxrepos "github.com/thusykanna/school-management-system-v1/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	database.SetMigrationLogger(logger)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.PingContext(context.Background()))

	// start CLI
	cli := newCommandLine(db, conf, logsvc.NewRollbarLogger(logger, conf), cachesvc.New(conf))
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

// services wires the core services the commands need on top of db.
type services struct {
	teachers  *teacher.Service
	students  *student.Service
	analytics *analytics.Service
}

func newServices(cli *commandLine, logger core.Logger, cache core.Cache) services {
	studentRepo := sqlxrepos.NewStudentRepository(cli.db)
	markRepo := sqlxrepos.NewMarkRepository(cli.db)
	feed := activity.NewService(sqlxrepos.NewActivityRepository(cli.db), logger)
	return services{
		teachers: teacher.NewService(sqlxrepos.NewTeacherRepository(cli.db)),
		students: student.NewService(studentRepo, cache, logger),
		analytics: analytics.NewService(
			sqlxrepos.NewAnalyticsRepository(cli.db), studentRepo, markRepo, feed, cache, cli.conf.Redis.TTL, logger,
		),
	}
}
