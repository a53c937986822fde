package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	. "github.com/thusykanna/school-management-system-v1/apps/api/echo"
	"github.com/thusykanna/school-management-system-v1/core"
	"github.com/thusykanna/school-management-system-v1/core/activity"
	"github.com/thusykanna/school-management-system-v1/core/analytics"
	"github.com/thusykanna/school-management-system-v1/core/mark"
	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/core/subject"
	"github.com/thusykanna/school-management-system-v1/core/teacher"
	"github.com/thusykanna/school-management-system-v1/services/cache"
	"github.com/thusykanna/school-management-system-v1/services/logger"
	"github.com/thusykanna/school-management-system-v1/storage/database/sqlx"
	"github.com/thusykanna/school-management-system-v1/tests"
)

var errUnauthorized = []byte(`{"success":false,"kind":"unauthorized","message":"Unauthorized"}`)

// testEnv is a server backed by a fresh sqlite database, with direct repository access for fixtures.
type testEnv struct {
	conf        *core.Config
	app         Server
	teacherRepo teacher.Repository
	studentRepo student.Repository
	subjectRepo subject.Repository
	markRepo    mark.Repository
}

func setup(t *testing.T) *testEnv {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	cache := cachesvc.New(conf)

	teacherRepo := sqlxrepos.NewTeacherRepository(db)
	studentRepo := sqlxrepos.NewStudentRepository(db)
	subjectRepo := sqlxrepos.NewSubjectRepository(db)
	markRepo := sqlxrepos.NewMarkRepository(db)

	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(db), logger)
	validate, translator := core.NewValidator()
	teacher.InitValidators(validate, translator)

	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		TeacherSvc:  teacher.NewService(teacherRepo),
		StudentSvc:  student.NewService(studentRepo, cache, logger),
		SubjectSvc:  subject.NewService(subjectRepo, studentRepo, activitySvc, cache, logger),
		MarkSvc:     mark.NewService(markRepo, studentRepo, subjectRepo, activitySvc, cache, logger),
		ActivitySvc: activitySvc,
		AnalyticsSvc: analytics.NewService(
			sqlxrepos.NewAnalyticsRepository(db), studentRepo, markRepo, activitySvc, cache, conf.Redis.TTL, logger,
		),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	return &testEnv{
		conf:        conf,
		app:         app,
		teacherRepo: teacherRepo,
		studentRepo: studentRepo,
		subjectRepo: subjectRepo,
		markRepo:    markRepo,
	}
}

// teacher creates a teacher and returns it with a valid token.
func (env *testEnv) teacher(t *testing.T) (teacher.Teacher, string) {
	tch := testutil.CreateTeacher(t, env.teacherRepo, "Jane Doe", "jdoe", "jane@school.test", "Str0ng!pass")
	return tch, getToken(t, env.conf, tch)
}

func (env *testEnv) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	env.app.ServeHTTP(rec, req)
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, tch teacher.Teacher) string {
	token, err := GenerateToken(conf, GetTeacherClaims(conf, tch))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

// decode unmarshals a response body into a generic map.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var data map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode(): %v; body %s", err, rec.Body.String())
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
