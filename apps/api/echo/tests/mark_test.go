package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thusykanna/school-management-system-v1/tests"
)

func Test_markApi_create(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	ann := testutil.CreateStudent(t, env.studentRepo, "S001", "Ann", "Smith", 10)
	math := testutil.CreateSubject(t, env.subjectRepo, "MATH101", "Mathematics")

	body := func(studentID, subjectID int, marks string) []byte {
		return []byte(fmt.Sprintf(
			`{"student_id":%d,"subject_id":%d,"marks":%s,"exam_type":"Final","exam_date":"2024-03-15"}`,
			studentID, subjectID, marks,
		))
	}

	tests := []httpTest{
		{name: "unauthenticated", method: http.MethodPost, path: "/v1/marks", body: body(ann.ID, math.ID, "85"), wantCode: http.StatusUnauthorized, wantData: errUnauthorized},
		{
			name:     "unknown student",
			method:   http.MethodPost,
			path:     "/v1/marks",
			body:     body(999, math.ID, "85"),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"success":false,"kind":"not_found","message":"student not found"}`),
		},
		{
			name:     "unknown subject",
			method:   http.MethodPost,
			path:     "/v1/marks",
			body:     body(ann.ID, 999, "85"),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: []byte(`{"success":false,"kind":"not_found","message":"subject not found"}`),
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("out of range", func(t *testing.T) {
		for _, v := range []string{"-1", "100.5"} {
			req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, body(ann.ID, math.ID, v))
			env.serve(req, rec)
			require.Equal(t, http.StatusBadRequest, rec.Code, v)
			assert.Contains(t, decode(t, rec)["fields"], "marks", v)
		}
	})

	t.Run("missing marks", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, []byte(`{"student_id":1,"subject_id":1,"exam_type":"Final","exam_date":"2024-03-15"}`))
		env.serve(req, rec)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "this field is required", decode(t, rec)["fields"].(map[string]interface{})["marks"])
	})

	t.Run("bounds are accepted", func(t *testing.T) {
		for _, v := range []string{"0", "100"} {
			req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, body(ann.ID, math.ID, v))
			env.serve(req, rec)
			assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		}
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, body(ann.ID, math.ID, "85.5"))
		env.serve(req, rec)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		data := decode(t, rec)
		assert.Equal(t, "Marks saved successfully", data["message"])
		assert.Equal(t, true, data["created"])
		m := data["mark"].(map[string]interface{})
		assert.Equal(t, 85.5, m["marks"])
		assert.Equal(t, "2024-03-15", m["exam_date"])
		assert.NotContains(t, m, "idempotency_key")

		req, rec = newAuthRequest(http.MethodGet, "/v1/activity?limit=1", token)
		env.serve(req, rec)
		entries := decode(t, rec)["activity"].([]interface{})
		require.Len(t, entries, 1)
		assert.Equal(t, "Marks added for Ann Smith in Mathematics (85.5 marks)", entries[0].(map[string]interface{})["description"])
	})
}

func Test_markApi_idempotency(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	ann := testutil.CreateStudent(t, env.studentRepo, "S001", "Ann", "Smith", 10)
	math := testutil.CreateSubject(t, env.subjectRepo, "MATH101", "Mathematics")

	const key = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	payload := func(marks int) []byte {
		return []byte(fmt.Sprintf(
			`{"student_id":%d,"subject_id":%d,"marks":%d,"exam_type":"Final","exam_date":"2024-03-15"}`,
			ann.ID, math.ID, marks,
		))
	}
	post := func(headerKey string, data []byte) (int, map[string]interface{}) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, data)
		if headerKey != "" {
			req.Header.Set("Idempotency-Key", headerKey)
		}
		env.serve(req, rec)
		return rec.Code, decode(t, rec)
	}

	code, first := post(strings.ToUpper(key), payload(70))
	require.Equal(t, http.StatusCreated, code, first)
	firstID := first["mark"].(map[string]interface{})["id"]

	t.Run("replay returns the first mark", func(t *testing.T) {
		code, data := post(key, payload(70))
		require.Equal(t, http.StatusOK, code, data)
		assert.Equal(t, false, data["created"])
		assert.Equal(t, firstID, data["mark"].(map[string]interface{})["id"])
	})

	t.Run("body key is the same key", func(t *testing.T) {
		withKey := []byte(strings.Replace(string(payload(70)), "{", `{"idempotency_key":"`+key+`",`, 1))
		code, data := post("", withKey)
		require.Equal(t, http.StatusOK, code, data)
		assert.Equal(t, firstID, data["mark"].(map[string]interface{})["id"])
	})

	t.Run("reused for another payload", func(t *testing.T) {
		code, data := post(key, payload(71))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "validation", data["kind"])
	})

	t.Run("malformed key", func(t *testing.T) {
		code, data := post("not-a-uuid", payload(70))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, map[string]interface{}{"idempotency_key": "must be a valid UUID"}, data["fields"])
	})

	t.Run("only one mark was written", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/marks?student_id=%d", ann.ID), token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode(t, rec)["grades"], 1)
	})
}

func Test_markApi_manage(t *testing.T) {
	env := setup(t)
	_, token := env.teacher(t)
	ann := testutil.CreateStudent(t, env.studentRepo, "S001", "Ann", "Smith", 10)
	bob := testutil.CreateStudent(t, env.studentRepo, "S002", "Bob", "Adams", 11)
	math := testutil.CreateSubject(t, env.subjectRepo, "MATH101", "Mathematics")
	annMark := testutil.CreateMark(t, env.markRepo, ann.ID, math.ID, 80)
	testutil.CreateMark(t, env.markRepo, bob.ID, math.ID, 35)

	notFound := []byte(`{"success":false,"kind":"not_found","message":"mark not found"}`)
	tests := []httpTest{
		{name: "get unknown", method: http.MethodGet, path: "/v1/marks/999", token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name:     "update unknown",
			method:   http.MethodPut,
			path:     "/v1/marks/999",
			body:     []byte(`{"marks":50,"exam_type":"Final","exam_date":"2024-03-15"}`),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{name: "delete unknown", method: http.MethodDelete, path: "/v1/marks/999", token: token, wantCode: http.StatusNotFound, wantData: notFound},
	}
	runHTTPTests(t, env, tests)

	t.Run("list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks", token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Len(t, decode(t, rec)["grades"], 2)

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/marks?student_id=%d", bob.ID), token)
		env.serve(req, rec)
		grades := decode(t, rec)["grades"].([]interface{})
		require.Len(t, grades, 1)
		g := grades[0].(map[string]interface{})
		assert.Equal(t, "F", g["grade"])
		assert.Equal(t, "MATH101", g["subject_code"])
		assert.Equal(t, "Adams", g["last_name"])
	})

	t.Run("update then delete", func(t *testing.T) {
		path := fmt.Sprintf("/v1/marks/%d", annMark.ID)
		req, rec := newAuthRequest(http.MethodPut, path, token, []byte(`{"marks":92,"exam_type":"Midterm","exam_date":"2024-04-01"}`))
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		m := decode(t, rec)["mark"].(map[string]interface{})
		assert.Equal(t, float64(92), m["marks"])
		assert.Equal(t, "Midterm", m["exam_type"])
		assert.Equal(t, float64(ann.ID), m["student_id"])

		req, rec = newAuthRequest(http.MethodGet, path, token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "A", decode(t, rec)["grade"])

		req, rec = newAuthRequest(http.MethodDelete, path, token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Marks deleted successfully", decode(t, rec)["message"])

		req, rec = newAuthRequest(http.MethodGet, path, token)
		env.serve(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("summary", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks/summary", token)
		env.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		summary := decode(t, rec)["summary"].([]interface{})
		require.Len(t, summary, 2)
		byNumber := map[string]map[string]interface{}{}
		for _, s := range summary {
			row := s.(map[string]interface{})
			byNumber[row["student_number"].(string)] = row
		}
		assert.Nil(t, byNumber["S001"]["average_marks"])
		assert.Equal(t, float64(35), byNumber["S002"]["average_marks"])
		assert.Equal(t, "F", byNumber["S002"]["overall_grade"])
	})
}
