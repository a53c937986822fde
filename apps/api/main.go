package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/thusykanna/school-management-system-v1/apps/api/echo"
	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/core/mark"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/subject"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
	cachesvc "github.com/thusykanna/school-management-system-v1/services/cache"
	logsvc "github.com/thusykanna/school-management-system-v1/services/logger"
	"github.com/thusykanna/school-management-system-v1/storage/database"
	sqlxrepos "github.com/thusykanna/school-management-system-v1/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbStdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	dbLogger := logsvc.NewRollbarLogger(dbStdLogger, conf)
	database.SetMigrationLogger(dbStdLogger)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up cache
	cache := cachesvc.New(conf)
	if rc, ok := cache.(*cachesvc.RedisCache); ok {
		if err = rc.Ping(context.Background()); err != nil {
			logger.Warn(fmt.Sprintf("analytics cache unavailable: %v", err), err)
		}
		defer func() { _ = rc.Close() }()
	}

	// set up repos & services
	teacherRepo := sqlxrepos.NewTeacherRepository(db)
	studentRepo := sqlxrepos.NewStudentRepository(db)
	subjectRepo := sqlxrepos.NewSubjectRepository(db)
	markRepo := sqlxrepos.NewMarkRepository(db)

	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(db), logger)
	teacherSvc := teacher.NewService(teacherRepo)
	studentSvc := student.NewService(studentRepo, cache, logger)
	subjectSvc := subject.NewService(subjectRepo, studentRepo, activitySvc, cache, logger)
	markSvc := mark.NewService(markRepo, studentRepo, subjectRepo, activitySvc, cache, logger)
	analyticsSvc := analytics.NewService(
		sqlxrepos.NewAnalyticsRepository(db), studentRepo, markRepo, activitySvc, cache, conf.Redis.TTL, logger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	teacher.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			TeacherSvc:   teacherSvc,
			StudentSvc:   studentSvc,
			SubjectSvc:   subjectSvc,
			MarkSvc:      markSvc,
			ActivitySvc:  activitySvc,
			AnalyticsSvc: analyticsSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db, "up"); err != nil {
		return nil, err
	}
	return db, nil
}
