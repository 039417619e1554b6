package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bistro/internal/core"
	"bistro/internal/insights"
	"bistro/internal/ledger"
	"bistro/internal/log"
	"bistro/internal/middleware/ratelimit"
	"bistro/internal/services"
	"bistro/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	report string
	err    error
	calls  int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ []core.Transaction) (string, error) {
	a.calls++
	return a.report, a.err
}

type testServer struct {
	*Server
	t *testing.T
}

func newTestServer(t *testing.T, analyzer insights.Analyzer, rl ratelimit.Config) *testServer {
	t.Helper()
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, storage.KeyTransactions, []byte("[]")))

	n := 0
	ids := ledger.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("tx-%d", n)
	})
	svc := services.NewLedgerService(ctx, backend, nil, ledger.NewVATEngine(ledger.DefaultVATRate), ids)
	backups := services.NewBackupService(svc.Store(), backend)

	srv := NewServer(":0", Dependencies{
		Ledger:    svc,
		Backups:   backups,
		Analyzer:  analyzer,
		Logger:    log.New(log.Config{Output: io.Discard}),
		RateLimit: rl,
	})
	srv.now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{Server: srv, t: t}
}

func (ts *testServer) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) doJSON(method, target, body string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return ts.do(method, target, r, "application/json")
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

const lunchJSON = `{"date":"2024-03-01","description":"Lunch","amount":115,"type":"INCOME","category":"Food Sales","paymentMethod":"Cash"}`

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	rr := ts.doJSON(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))

	rr = ts.doJSON(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "ready", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "disabled", checks["insights"])
	assert.Equal(t, "ok", checks["backend"])
}

func TestTransactionsCRUD(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	rr := ts.doJSON(http.MethodPost, "/api/transactions", lunchJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "/api/transactions/tx-1", rr.Header().Get("Location"))
	assert.Equal(t, "tx-1", decodeBody(t, rr)["id"])

	rr = ts.doJSON(http.MethodGet, "/api/transactions/tx-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Lunch", decodeBody(t, rr)["description"])

	rr = ts.doJSON(http.MethodGet, "/api/transactions?type=expense", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(0), decodeBody(t, rr)["count"])

	rr = ts.doJSON(http.MethodGet, "/api/transactions?type=INCOME&sub=cash", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])

	updated := strings.Replace(lunchJSON, `"amount":115`, `"amount":230`, 1)
	rr = ts.doJSON(http.MethodPut, "/api/transactions/tx-1", updated)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got, _ := ts.ledger.Get("tx-1")
	assert.Equal(t, "230.00", got.Amount.StringFixed(2))

	rr = ts.doJSON(http.MethodPut, "/api/transactions/nope", updated)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.doJSON(http.MethodDelete, "/api/transactions/tx-1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = ts.doJSON(http.MethodDelete, "/api/transactions/tx-1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"date":`, http.StatusBadRequest},
		{"bad date", strings.Replace(lunchJSON, "2024-03-01", "yesterday", 1), http.StatusBadRequest},
		{"negative amount", strings.Replace(lunchJSON, `"amount":115`, `"amount":-5`, 1), http.StatusUnprocessableEntity},
		{"empty description", strings.Replace(lunchJSON, `"Lunch"`, `"  "`, 1), http.StatusUnprocessableEntity},
		{"unknown type", strings.Replace(lunchJSON, `"INCOME"`, `"REFUND"`, 1), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.doJSON(http.MethodPost, "/api/transactions", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody(t, rr)["error"])
		})
	}
	assert.Equal(t, uint64(0), ts.ledger.Revision())

	rr := ts.doJSON(http.MethodGet, "/api/transactions?sub=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClearTransactions(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})
	require.Equal(t, http.StatusCreated, ts.doJSON(http.MethodPost, "/api/transactions", lunchJSON).Code)

	rr := ts.doJSON(http.MethodPost, "/api/transactions/clear", `{"type":"INCOME","passcode":"000000","confirmed":true}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// The passcode must match exactly, surrounding spaces included.
	rr = ts.doJSON(http.MethodPost, "/api/transactions/clear", `{"type":"INCOME","passcode":" 790922 ","confirmed":true}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.doJSON(http.MethodPost, "/api/transactions/clear", `{"type":"INCOME","passcode":"790922"}`)
	assert.Equal(t, http.StatusPreconditionRequired, rr.Code)

	rr = ts.doJSON(http.MethodPost, "/api/transactions/clear", `{"passcode":"790922","confirmed":true}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, ts.ledger.Transactions(ledger.Filter{}), 1)

	rr = ts.doJSON(http.MethodPost, "/api/transactions/clear", `{"type":"income","passcode":"790922","confirmed":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["deleted"])
	assert.Empty(t, ts.ledger.Transactions(ledger.Filter{}))
}

func TestImportAndExport(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	csv := "Date,Category,Description,Payment Method,Amount\n" +
		"01/03/2024,Rent,March rent,Bank Transfer,2500\n" +
		"02/03/2024,Rent,Broken,Bank Transfer,abc\n"
	rr := ts.do(http.MethodPost, "/api/import?type=EXPENSE", strings.NewReader(csv), "text/csv")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, float64(1), body["imported"])
	assert.Equal(t, float64(1), body["skipped"])
	assert.Len(t, body["errors"], 1)

	rr = ts.do(http.MethodPost, "/api/import", strings.NewReader("   "), "text/csv")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/api/import", strings.NewReader("Date,Type\n"), "text/csv")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.doJSON(http.MethodGet, "/api/export?type=EXPENSE", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="expenses_all_report_2024-03-15.csv"`, rr.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Date,Category,Description,Payment Method,Amount"))
	assert.Contains(t, rr.Body.String(), "March rent")

	rr = ts.doJSON(http.MethodGet, "/api/template?type=INCOME", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "income_import_template_2024-03-15.csv")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "Date,Total Sales,Cash"))
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(uploadField, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportMultipart(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	body, ct := multipartBody(t, "income.csv",
		"Date,Total Sales,Cash,Card,Cheque / EFT,Charge,Covers,Tips\n01/03/2024,1000,400,600,0,0,30,50\n")
	rr := ts.do(http.MethodPost, "/api/import?type=INCOME", body, ct)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "daily_sheet", decodeBody(t, rr)["format"])

	rr = ts.doJSON(http.MethodGet, "/api/daily", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decodeBody(t, rr)["count"])
}

func TestVATAndReports(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})
	require.Equal(t, http.StatusCreated, ts.doJSON(http.MethodPost, "/api/transactions", lunchJSON).Code)
	require.Equal(t, http.StatusOK,
		ts.doJSON(http.MethodPut, "/api/profile", `{"name":"Chez Nous","email":"a@b.c"}`).Code)

	rr := ts.doJSON(http.MethodGet, "/api/vat", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "2024-03", body["period"])
	assert.Equal(t, true, body["payable"])

	rr = ts.doJSON(http.MethodGet, "/api/vat?period=all", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ALL", decodeBody(t, rr)["period"])

	rr = ts.doJSON(http.MethodGet, "/api/vat?period=March", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.doJSON(http.MethodGet, "/api/vat/export?period=2024-03", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "VAT_Return_2024-03_Chez_Nous.csv")

	for i := 0; i < 2; i++ {
		rr = ts.doJSON(http.MethodGet, "/api/reports", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Equal(t, 1, ts.reportsCache.Size())
	assert.Contains(t, decodeBody(t, rr), "summary")
}

func TestProfileEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	rr := ts.doJSON(http.MethodPut, "/api/profile", `{"name":"Chez Nous","owner":"Sam"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.doJSON(http.MethodGet, "/api/profile", "")
	assert.Equal(t, "Sam", decodeBody(t, rr)["owner"])

	rr = ts.doJSON(http.MethodGet, "/api/profile/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Chez_Nous_profile.csv")
	exported := rr.Body.String()

	require.Equal(t, http.StatusOK, ts.doJSON(http.MethodPut, "/api/profile", `{"name":"Other"}`).Code)
	rr = ts.do(http.MethodPost, "/api/profile/import", strings.NewReader(exported), "text/csv")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Chez Nous", ts.ledger.Profile().Name)

	rr = ts.doJSON(http.MethodGet, "/api/profile/template", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), profileTemplateFilename)
}

func TestBackupEndpoints(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{})

	rr := ts.doJSON(http.MethodPost, "/api/backup/restore-auto", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	require.Equal(t, http.StatusCreated, ts.doJSON(http.MethodPost, "/api/transactions", lunchJSON).Code)
	rr = ts.doJSON(http.MethodGet, "/api/backup/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "Bistro_Backup_")
	backup := rr.Body.String()

	rev := ts.ledger.Revision()
	rr = ts.do(http.MethodPost, "/api/backup/restore", strings.NewReader(`{"transactions":"nope"}`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, rev, ts.ledger.Revision())

	require.Equal(t, http.StatusNoContent, ts.doJSON(http.MethodDelete, "/api/transactions/tx-1", "").Code)
	rr = ts.do(http.MethodPost, "/api/backup/restore", strings.NewReader(backup), "application/json")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, float64(1), decodeBody(t, rr)["transactions"])

	require.Equal(t, http.StatusOK, ts.doJSON(http.MethodPost, "/api/backup/snapshot", "").Code)
	rr = ts.doJSON(http.MethodPost, "/api/backup/restore-auto", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = ts.doJSON(http.MethodGet, "/api/backup/history?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody(t, rr)["backups"], 1)

	rr = ts.doJSON(http.MethodGet, "/api/backup/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInsights(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, nil, ratelimit.Config{})
		rr := ts.doJSON(http.MethodPost, "/api/insights", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("report", func(t *testing.T) {
		a := &stubAnalyzer{report: "## Summary"}
		ts := newTestServer(t, a, ratelimit.Config{})
		rr := ts.doJSON(http.MethodPost, "/api/insights", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "## Summary", decodeBody(t, rr)["report"])
		assert.Equal(t, 1, a.calls)
	})

	t.Run("upstream failure", func(t *testing.T) {
		a := &stubAnalyzer{err: fmt.Errorf("%w: timeout", insights.ErrAnalysisFailed)}
		ts := newTestServer(t, a, ratelimit.Config{})
		rr := ts.doJSON(http.MethodPost, "/api/insights", "")
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		ts := newTestServer(t, &stubAnalyzer{err: insights.ErrMissingAPIKey}, ratelimit.Config{})
		rr := ts.doJSON(http.MethodPost, "/api/insights", "")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestRateLimitedWrites(t *testing.T) {
	ts := newTestServer(t, nil, ratelimit.Config{RequestsPerWindow: 2, Window: time.Hour})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, ts.doJSON(http.MethodPost, "/api/transactions", lunchJSON).Code)
	}
	rr := ts.doJSON(http.MethodPost, "/api/transactions", lunchJSON)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, decodeBody(t, rr)["error"])

	assert.Equal(t, http.StatusOK, ts.doJSON(http.MethodGet, "/api/transactions", "").Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(fmt.Errorf("wrap: %w", services.ErrInvalidBackup)))

	rr := httptest.NewRecorder()
	FromError(errors.New("disk on fire")).Write(rr)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "disk on fire")
}
