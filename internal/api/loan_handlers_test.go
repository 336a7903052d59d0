package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueLoan_API(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)

	resp := ts.api.Post("/api/v1/loans", map[string]any{
		"book_id":         bookID,
		"student_roll_no": "CSE-001",
		"issuer_id":       issuerID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[LoanResponse](t, resp.Body.Bytes())
	assert.True(t, envelope.Success)
	assert.Equal(t, "issued", envelope.Data.Status)
	assert.Equal(t, "Asha Verma", envelope.Data.StudentName)
	assert.Equal(t, envelope.Data.IssueDate.AddDate(0, 0, 30), envelope.Data.DueDate)
	assert.False(t, envelope.Data.Overdue)

	// The copy moved from the shelf to the ledger.
	resp = ts.api.Get("/api/v1/books/" + bookID)
	book := decodeEnvelope[BookResponse](t, resp.Body.Bytes())
	assert.Equal(t, 2, book.Data.AvailableQuantity)
	assert.Equal(t, 1, book.Data.IssuedQuantity)
}

func TestIssueLoan_DuplicateHold(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)
	ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp := ts.api.Post("/api/v1/loans", map[string]any{
		"book_id":         bookID,
		"student_roll_no": "CSE-001",
		"issuer_id":       issuerID,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "DUPLICATE_LOAN", envelope.Code)
}

func TestIssueLoan_NoCopies(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 1)
	ts.registerTestStudent(t, "CSE-001")
	ts.registerTestStudent(t, "CSE-002")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)
	ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp := ts.api.Post("/api/v1/loans", map[string]any{
		"book_id":         bookID,
		"student_roll_no": "CSE-002",
		"issuer_id":       issuerID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "INSUFFICIENT_COPIES", envelope.Code)
}

func TestIssueLoan_NonLibrarian(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "guest@campus.edu", false)

	resp := ts.api.Post("/api/v1/loans", map[string]any{
		"book_id":         bookID,
		"student_roll_no": "CSE-001",
		"issuer_id":       issuerID,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "NOT_AUTHORIZED", envelope.Code)
}

func TestIssueLoan_UnknownStudent(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)

	resp := ts.api.Post("/api/v1/loans", map[string]any{
		"book_id":         bookID,
		"student_roll_no": "CSE-404",
		"issuer_id":       issuerID,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestReturnLoan_API(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)
	loanID := ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp := ts.api.Post("/api/v1/loans/"+loanID+"/return", map[string]any{
		"issuer_id": issuerID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[LoanResponse](t, resp.Body.Bytes())
	assert.Equal(t, "returned", envelope.Data.Status)
	assert.NotNil(t, envelope.Data.ReturnDate)
	assert.Equal(t, int64(0), envelope.Data.RecordedFine)

	// A settled loan cannot be returned again.
	resp = ts.api.Post("/api/v1/loans/"+loanID+"/return", map[string]any{
		"issuer_id": issuerID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	errEnvelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "LOAN_NOT_ACTIVE", errEnvelope.Code)
}

func TestRenewLoan_API(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)
	loanID := ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp := ts.api.Post("/api/v1/loans/"+loanID+"/renew", map[string]any{
		"issuer_id": issuerID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[LoanResponse](t, resp.Body.Bytes())
	assert.Equal(t, 1, envelope.Data.RenewalCount)

	// Renewal cap is one.
	resp = ts.api.Post("/api/v1/loans/"+loanID+"/renew", map[string]any{
		"issuer_id": issuerID,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	errEnvelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "RENEWAL_LIMIT_REACHED", errEnvelope.Code)
}

func TestGetLoan_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/loans/loan-ghost")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListLoans_API(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	ts.registerTestStudent(t, "CSE-002")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)

	loanID := ts.issueTestLoan(t, bookID, "CSE-001", issuerID)
	ts.issueTestLoan(t, bookID, "CSE-002", issuerID)

	resp := ts.api.Post("/api/v1/loans/"+loanID+"/return", map[string]any{
		"issuer_id": issuerID,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/loans?status=issued")
	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope[ListLoansResponse](t, resp.Body.Bytes())
	require.Len(t, envelope.Data.Loans, 1)
	assert.Equal(t, "CSE-002", envelope.Data.Loans[0].StudentRollNo)

	resp = ts.api.Get("/api/v1/loans?roll_no=cse-001")
	require.Equal(t, http.StatusOK, resp.Code)
	envelope = decodeEnvelope[ListLoansResponse](t, resp.Body.Bytes())
	require.Len(t, envelope.Data.Loans, 1)
	assert.Equal(t, "returned", envelope.Data.Loans[0].Status)

	resp = ts.api.Get("/api/v1/loans?issuer_id=" + issuerID)
	require.Equal(t, http.StatusOK, resp.Code)
	envelope = decodeEnvelope[ListLoansResponse](t, resp.Body.Bytes())
	assert.Len(t, envelope.Data.Loans, 2)

	resp = ts.api.Get("/api/v1/loans?issuer_id=isr-nobody")
	require.Equal(t, http.StatusOK, resp.Code)
	envelope = decodeEnvelope[ListLoansResponse](t, resp.Body.Bytes())
	assert.Empty(t, envelope.Data.Loans)
}

func TestListLoans_BadStatus(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/loans?status=misplaced")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	envelope := decodeEnvelope[struct{}](t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", envelope.Code)
}

func TestStudentHistory_API(t *testing.T) {
	ts := setupTestServer(t)
	bookID := ts.createTestBook(t, "Operating System Concepts", 3)
	ts.registerTestStudent(t, "CSE-001")
	issuerID := ts.registerTestIssuer(t, "desk@campus.edu", true)

	loanID := ts.issueTestLoan(t, bookID, "CSE-001", issuerID)
	resp := ts.api.Post("/api/v1/loans/"+loanID+"/return", map[string]any{
		"issuer_id": issuerID,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	ts.issueTestLoan(t, bookID, "CSE-001", issuerID)

	resp = ts.api.Get("/api/v1/students/CSE-001/loans")
	require.Equal(t, http.StatusOK, resp.Code)

	envelope := decodeEnvelope[ListLoansResponse](t, resp.Body.Bytes())
	require.Len(t, envelope.Data.Loans, 2)
	assert.Equal(t, "issued", envelope.Data.Loans[0].Status)
	assert.Equal(t, "returned", envelope.Data.Loans[1].Status)

	resp = ts.api.Get("/api/v1/students/CSE-001/loans?status=returned")
	require.Equal(t, http.StatusOK, resp.Code)
	envelope = decodeEnvelope[ListLoansResponse](t, resp.Body.Bytes())
	require.Len(t, envelope.Data.Loans, 1)
	assert.Equal(t, loanID, envelope.Data.Loans[0].ID)
}

func TestStudentHistory_UnknownStudent(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/students/CSE-404/loans")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
