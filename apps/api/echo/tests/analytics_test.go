package tests

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thusykanna/school-management-system-v1/services/spreadsheet"
	"github.com/thusykanna/school-management-system-v1/tests"
)

// seedMarks: Ann (grade 10) has Mathematics 80 and Science 70, Bob (grade 11) has Mathematics 35.
func seedMarks(t *testing.T, env *testEnv) (annID, bobID int) {
	ann := testutil.CreateStudent(t, env.studentRepo, "S001", "Ann", "Smith", 10)
	bob := testutil.CreateStudent(t, env.studentRepo, "S002", "Bob", "Adams", 11)
	math := testutil.CreateSubject(t, env.subjectRepo, "MATH101", "Mathematics")
	sci := testutil.CreateSubject(t, env.subjectRepo, "SCI101", "Science")
	testutil.Enroll(t, env.subjectRepo, ann.ID, math.ID)
	testutil.CreateMark(t, env.markRepo, ann.ID, math.ID, 80)
	testutil.CreateMark(t, env.markRepo, ann.ID, sci.ID, 70)
	testutil.CreateMark(t, env.markRepo, bob.ID, math.ID, 35)
	return ann.ID, bob.ID
}

func getJSON(t *testing.T, env *testEnv, token, path string) map[string]interface{} {
	req, rec := newAuthRequest(http.MethodGet, path, token)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)
	require.Equal(t, true, data["success"])
	return data
}

func Test_analyticsApi_empty(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)

	tests := []httpTest{
		{name: "unauthenticated", method: http.MethodGet, path: "/v1/analytics/overall", wantCode: http.StatusUnauthorized, wantData: errUnauthorized},
		{
			name:     "overall",
			method:   http.MethodGet,
			path:     "/v1/analytics/overall",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"stats":{"total_students":0,"total_subjects":0,"total_marks":0,"overall_average":null,"a_grade_students":0}}`),
		},
		{
			name:     "rankings",
			method:   http.MethodGet,
			path:     "/v1/analytics/rankings",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"rankings":[]}`),
		},
		{
			name:     "distribution",
			method:   http.MethodGet,
			path:     "/v1/analytics/distribution",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"distribution":{"A":0,"B":0,"S":0,"F":0,"total":0}}`),
		},
		{
			name:     "insights",
			method:   http.MethodGet,
			path:     "/v1/analytics/insights",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`{"success":true,"insights":[]}`),
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("dashboard", func(t *testing.T) {
		stats := getJSON(t, env, token, "/v1/dashboard")["stats"].(map[string]interface{})
		assert.Equal(t, "N/A", stats["average_grade"])
		assert.Equal(t, float64(0), stats["total_students"])
	})
}

func Test_analyticsApi_stats(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	annID, _ := seedMarks(t, env)

	t.Run("overall", func(t *testing.T) {
		stats := getJSON(t, env, token, "/v1/analytics/overall")["stats"].(map[string]interface{})
		assert.Equal(t, float64(2), stats["total_students"])
		assert.Equal(t, float64(2), stats["total_subjects"])
		assert.Equal(t, float64(3), stats["total_marks"])
		assert.InDelta(t, 61.667, stats["overall_average"], 0.001)
		assert.Equal(t, float64(1), stats["a_grade_students"])
	})

	t.Run("rankings", func(t *testing.T) {
		rankings := getJSON(t, env, token, "/v1/analytics/rankings")["rankings"].([]interface{})
		require.Len(t, rankings, 2)
		first, second := rankings[0].(map[string]interface{}), rankings[1].(map[string]interface{})
		assert.Equal(t, "S001", first["student_number"])
		assert.Equal(t, float64(1), first["rank"])
		assert.Equal(t, float64(75), first["average_marks"])
		assert.Equal(t, "A", first["overall_grade"])
		assert.Equal(t, "S002", second["student_number"])
		assert.Equal(t, "F", second["overall_grade"])
	})

	t.Run("subjects", func(t *testing.T) {
		analysis := getJSON(t, env, token, "/v1/analytics/subjects")["analysis"].([]interface{})
		require.Len(t, analysis, 2)
		sci, math := analysis[0].(map[string]interface{}), analysis[1].(map[string]interface{})
		assert.Equal(t, "SCI101", sci["subject_code"])
		assert.Equal(t, float64(70), sci["average_marks"])
		assert.Equal(t, "MATH101", math["subject_code"])
		assert.Equal(t, 57.5, math["average_marks"])
		assert.Equal(t, float64(50), math["pass_rate"])
		assert.Equal(t, float64(1), math["a_grades"])
	})

	t.Run("distribution", func(t *testing.T) {
		dist := getJSON(t, env, token, "/v1/analytics/distribution")["distribution"]
		assert.Equal(t, map[string]interface{}{
			"A": float64(1), "B": float64(1), "S": float64(0), "F": float64(1), "total": float64(3),
		}, dist)
	})

	t.Run("classes", func(t *testing.T) {
		perf := getJSON(t, env, token, "/v1/analytics/classes")["performance"].([]interface{})
		require.Len(t, perf, 2)
		tenth := perf[0].(map[string]interface{})
		assert.Equal(t, float64(10), tenth["grade_level"])
		assert.Equal(t, float64(75), tenth["class_average"])
		assert.Equal(t, "Ann Smith", tenth["top_student"])
	})

	t.Run("insights", func(t *testing.T) {
		insights := getJSON(t, env, token, "/v1/analytics/insights")["insights"]
		assert.Equal(t, []interface{}{
			"Highest performing subject: Science with average of 70.0",
			"Subject needing attention: Mathematics with average of 57.5",
			"Overall school pass rate: 66.7%",
			"Top performing grade level: Grade 10 with class average of 75.0",
		}, insights)
	})

	t.Run("dashboard", func(t *testing.T) {
		stats := getJSON(t, env, token, "/v1/dashboard")["stats"].(map[string]interface{})
		assert.Equal(t, float64(2), stats["total_students"])
		assert.Equal(t, float64(1), stats["total_enrollments"])
		assert.Equal(t, "B", stats["average_grade"])
	})

	t.Run("dashboard with bad limit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/dashboard?limit=ten", token)
		env.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("student report", func(t *testing.T) {
		data := getJSON(t, env, token, fmt.Sprintf("/v1/students/%d/report", annID))
		assert.Len(t, data["grades"], 2)
		stats := data["stats"].(map[string]interface{})
		assert.Equal(t, float64(2), stats["total_subjects"])
		assert.Equal(t, float64(75), stats["average_marks"])
		assert.Equal(t, "A", stats["overall_grade"])
		assert.Equal(t, float64(80), stats["highest_mark"])
		assert.Equal(t, float64(70), stats["lowest_mark"])

		req, rec := newAuthRequest(http.MethodGet, "/v1/students/999/report", token)
		env.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("stats follow writes", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"student_id":%d,"subject_id":1,"marks":40,"exam_type":"Retake","exam_date":"2024-06-01"}`, annID))
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, body)
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		stats := getJSON(t, env, token, "/v1/analytics/overall")["stats"].(map[string]interface{})
		assert.Equal(t, float64(4), stats["total_marks"])
		assert.Equal(t, float64(0), stats["a_grade_students"])
	})
}

func Test_analyticsApi_export(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	seedMarks(t, env)

	req, rec := newAuthRequest(http.MethodGet, "/v1/analytics/export", token)
	env.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=\"analytics-")
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.Equal(t, []string{
		spreadsheet.SheetOverview,
		spreadsheet.SheetRankings,
		spreadsheet.SheetSubjects,
		spreadsheet.SheetDistribution,
		spreadsheet.SheetClasses,
		spreadsheet.SheetInsights,
	}, f.GetSheetList())

	rows, err := f.GetRows(spreadsheet.SheetRankings)
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 students
}
