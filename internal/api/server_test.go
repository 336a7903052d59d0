package api

import (
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// testEnvelope mirrors the response envelope for decoding in tests.
type testEnvelope[T any] struct {
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer creates a test server over a throwaway store and index.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dataPath := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(filepath.Join(dataPath, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: dataPath, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	rules := policy.Rules{
		LoanPeriodDays:    30,
		RenewalPeriodDays: 30,
		FineRatePerDay:    5,
		MaxRenewals:       1,
		MaxActiveLoans:    5,
	}

	v := validation.New()
	directory := service.NewDirectoryService(st, v, logger)
	ledger := service.NewLedgerService(st, directory, rules, v, logger)

	services := &Services{
		Catalog:   service.NewCatalogService(st, idx, v, logger),
		Directory: directory,
		Ledger:    ledger,
		Reporting: service.NewReportingService(st, ledger, rules),
	}

	srv := NewServer(st, idx, services, logger)
	t.Cleanup(srv.Close)

	return &testServer{
		Server: srv,
		api:    humatest.Wrap(t, srv.api),
	}
}

// decodeEnvelope unmarshals a response body into a typed envelope.
func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

// createTestBook adds a catalog book through the API and returns its ID.
func (ts *testServer) createTestBook(t *testing.T, title string, quantity int) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/books", map[string]any{
		"title":    title,
		"branch":   "CSE",
		"year":     2,
		"quantity": quantity,
	})
	require.Equal(t, http.StatusOK, resp.Code, "create book failed: %s", resp.Body.String())

	envelope := decodeEnvelope[BookResponse](t, resp.Body.Bytes())
	return envelope.Data.ID
}

// registerTestStudent enrolls a borrower through the API.
func (ts *testServer) registerTestStudent(t *testing.T, rollNo string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/students", map[string]any{
		"roll_no": rollNo,
		"name":    "Asha Verma",
		"branch":  "CSE",
		"year":    2,
	})
	require.Equal(t, http.StatusOK, resp.Code, "register student failed: %s", resp.Body.String())
}

// registerTestIssuer registers desk staff and returns the issuer ID.
func (ts *testServer) registerTestIssuer(t *testing.T, email string, librarian bool) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/issuers", map[string]any{
		"name":      "R. Iyer",
		"email":     email,
		"librarian": librarian,
	})
	require.Equal(t, http.StatusOK, resp.Code, "register issuer failed: %s", resp.Body.String())

	envelope := decodeEnvelope[IssuerResponse](t, resp.Body.Bytes())
	return envelope.Data.ID
}

// issueTestLoan lends a book through the API and returns the loan ID.
func (ts *testServer) issueTestLoan(t *testing.T, bookID, rollNo, issuerID string) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/loans", map[string]any{
		"book_id":         bookID,
		"student_roll_no": rollNo,
		"issuer_id":       issuerID,
	})
	require.Equal(t, http.StatusOK, resp.Code, "issue loan failed: %s", resp.Body.String())

	envelope := decodeEnvelope[LoanResponse](t, resp.Body.Bytes())
	return envelope.Data.ID
}
