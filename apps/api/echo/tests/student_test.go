package tests

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thusykanna/school-management-system-v1/core/student"
	"github.com/thusykanna/school-management-system-v1/tests"
)

func Test_studentApi_crud(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	ann := testutil.CreateStudent(t, env.studentRepo, "S001", "Ann", "Smith", 10)
	bob := testutil.CreateStudent(t, env.studentRepo, "S002", "Bob", "Adams", 11)
	math := testutil.CreateSubject(t, env.subjectRepo, "MATH101", "Mathematics")
	testutil.Enroll(t, env.subjectRepo, ann.ID, math.ID)

	notFound := []byte(`{"success":false,"kind":"not_found","message":"student not found"}`)
	tests := []httpTest{
		{name: "list unauthenticated", method: http.MethodGet, path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: errUnauthorized},
		{name: "get unknown", method: http.MethodGet, path: "/v1/students/999", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "get malformed id", method: http.MethodGet, path: "/v1/students/abc", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "delete unknown", method: http.MethodDelete, path: "/v1/students/999", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name:     "duplicate number",
			method:   http.MethodPost,
			path:     "/v1/students",
			body:     marchallObj(t, student.NewStudent{StudentNumber: " S001 ", FirstName: "Cy", LastName: "Dunn", GradeLevel: 9}),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"success": false,
				"kind": "validation",
				"message": "student number already exists",
				"fields": {"student_number": "student number already exists"}
			}`),
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("list", func(t *testing.T) {
		cases := []struct {
			query string
			want  []string
		}{
			{"", []string{"S001", "S002"}},
			{"?ordering=last_name", []string{"S002", "S001"}},
			{"?search=adams", []string{"S002"}},
			{"?grade_level=10", []string{"S001"}},
		}
		for _, c := range cases {
			req, rec := newAuthRequest(http.MethodGet, "/v1/students"+c.query, token)
			env.serve(req, rec)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var got []string
			for _, s := range decode(t, rec)["students"].([]interface{}) {
				got = append(got, s.(map[string]interface{})["student_number"].(string))
			}
			assert.Equal(t, c.want, got, c.query)
		}
	})

	t.Run("invalid create", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, []byte(`{"student_number":"S003","first_name":"  ","last_name":"Dunn","grade_level":20}`))
		env.serve(req, rec)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		data := decode(t, rec)
		assert.Equal(t, "validation", data["kind"])
		fields := data["fields"].(map[string]interface{})
		assert.Contains(t, fields, "first_name")
		assert.Contains(t, fields, "grade_level")
	})

	t.Run("create, update and delete", func(t *testing.T) {
		body := []byte(`{"student_number":"S003","first_name":"Cy","last_name":"Dunn","email":"CY@school.test","date_of_birth":"2010-05-04","grade_level":9}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := decode(t, rec)
		assert.Equal(t, "Student created successfully", data["message"])
		created := data["student"].(map[string]interface{})
		assert.Equal(t, "cy@school.test", created["email"])
		assert.Equal(t, "2010-05-04", created["date_of_birth"])
		assert.Nil(t, created["phone"])
		path := fmt.Sprintf("/v1/students/%v", created["id"])

		// keeping its own number is fine
		body = []byte(`{"student_number":"S003","first_name":"Cyrus","last_name":"Dunn","grade_level":10}`)
		req, rec = newAuthRequest(http.MethodPut, path, token, body)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode(t, rec)["student"].(map[string]interface{})
		assert.Equal(t, "Cyrus", updated["first_name"])
		assert.Equal(t, float64(10), updated["grade_level"])
		assert.Nil(t, updated["email"])

		// taking another student's number is not
		body = []byte(`{"student_number":"S002","first_name":"Cyrus","last_name":"Dunn","grade_level":10}`)
		req, rec = newAuthRequest(http.MethodPut, path, token, body)
		env.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newAuthRequest(http.MethodDelete, path, token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Student deleted successfully", decode(t, rec)["message"])

		req, rec = newAuthRequest(http.MethodGet, path, token)
		env.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("detail lists enrolled subjects", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/students/%d", ann.ID), token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		data := decode(t, rec)
		assert.Equal(t, "S001", data["student"].(map[string]interface{})["student_number"])
		assert.Equal(t, []interface{}{"Mathematics"}, data["subjects"])

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/students/%d/subjects", ann.ID), token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		subjects := decode(t, rec)["subjects"].([]interface{})
		require.Len(t, subjects, 1)

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/students/%d/subjects", bob.ID), token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode(t, rec)["subjects"])
	})
}

func newWorkbook(t *testing.T, rows ...[]interface{}) []byte {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func newUploadRequest(t *testing.T, path, token string, file []byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if file != nil {
		part, err := w.CreateFormFile("file", "roster.xlsx")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_studentApi_import(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	testutil.CreateStudent(t, env.studentRepo, "S001", "Ann", "Smith", 10)
	header := []interface{}{"Student Number", "First Name", "Last Name", "Grade Level", "Date of Birth"}

	t.Run("missing file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/students/import", token, nil)
		env.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode(t, rec)["fields"], "file")
	})

	t.Run("rejects the whole sheet", func(t *testing.T) {
		file := newWorkbook(t,
			header,
			[]interface{}{"S010", "Cy", "Dunn", 9, "2010-05-04"},
			[]interface{}{"S001", "Di", "Eve", 9},
			[]interface{}{"S010", "Ed", "Fox", 9},
		)
		req, rec := newUploadRequest(t, "/v1/students/import", token, file)
		env.serve(req, rec)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		data := decode(t, rec)
		assert.Equal(t, "import rejected", data["message"])
		assert.Equal(t, map[string]interface{}{
			"row 2": "student number already exists",
			"row 3": "student number duplicates row 1",
		}, data["fields"])

		req, rec = newAuthRequest(http.MethodGet, "/v1/students", token)
		env.serve(req, rec)
		assert.Len(t, decode(t, rec)["students"], 1)
	})

	t.Run("success", func(t *testing.T) {
		file := newWorkbook(t,
			header,
			[]interface{}{"S010", "Cy", "Dunn", 9, "2010-05-04"},
			[]interface{}{},
			[]interface{}{"S011", "Di", "Eve", 12},
		)
		req, rec := newUploadRequest(t, "/v1/students/import", token, file)
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := decode(t, rec)
		assert.Equal(t, float64(2), data["imported"])
		students := data["students"].([]interface{})
		require.Len(t, students, 2)
		assert.Equal(t, "2010-05-04", students[0].(map[string]interface{})["date_of_birth"])
	})

	t.Run("template", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/import/template", token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "students.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows("Students")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "student_number", rows[0][0])
	})
}
