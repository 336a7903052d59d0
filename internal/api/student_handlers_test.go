package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterStudent_API(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/students", map[string]any{
		"roll_no": "CSE-001",
		"name":    "Asha Verma",
		"branch":  "CSE",
		"year":    2,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[StudentResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, "CSE-001", envelope.Data.RollNo)
	assert.NotEmpty(t, envelope.Data.ID)
}

func TestRegisterStudent_DuplicateRollNo(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerTestStudent(t, "CSE-001")

	// Same roll number in a different case is still a duplicate.
	resp := ts.api.Post("/api/v1/students", map[string]any{
		"roll_no": "cse-001",
		"name":    "Someone Else",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "ALREADY_EXISTS", envelope.Code)
}

func TestGetStudent_CaseInsensitive(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerTestStudent(t, "CSE-001")

	resp := ts.api.Get("/api/v1/students/cse-001")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[StudentResponse](t, resp.Body.Bytes())
	assert.Equal(t, "CSE-001", envelope.Data.RollNo)
	assert.Equal(t, 0, envelope.Data.ActiveLoans)
}

func TestGetStudent_ActiveLoanCount(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)
	ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp := ts.api.Get("/api/v1/students/CSE-001")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[StudentResponse](t, resp.Body.Bytes())
	assert.Equal(t, 1, envelope.Data.ActiveLoans)
}

func TestRemoveStudent_API(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerTestStudent(t, "CSE-001")

	resp := ts.api.Delete("/api/v1/students/CSE-001")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/students/CSE-001")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRemoveStudent_WithActiveLoan(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)
	ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp := ts.api.Delete("/api/v1/students/CSE-001")
	assert.Equal(t, http.StatusConflict, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "ACTIVE_LOANS_EXIST", envelope.Code)
}

func TestListStudents_API(t *testing.T) {
	ts := setupTestServer(t)
	ts.registerTestStudent(t, "CSE-001")
	ts.registerTestStudent(t, "ECE-001")

	resp := ts.api.Get("/api/v1/students")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[ListStudentsResponse](t, resp.Body.Bytes())
	assert.Len(t, envelope.Data.Students, 2)
}
