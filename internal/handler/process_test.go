package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avialex/api/internal/model"
	"github.com/avialex/api/internal/queue"
	"github.com/avialex/api/internal/repository"
)

func testProcessHandler(t *testing.T) (*ProcessHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewProcessHandler(repository.NewProcessRepo(db), repository.NewUserRepo(db))
	h.Publish = func(ctx context.Context, ev queue.ProcessStatusChangedEvent) error { return nil }
	return h, mock
}

func getCtx(e *echo.Echo, target string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestParseDashboardRangeExplicit(t *testing.T) {
	e := echo.New()
	c, _ := getCtx(e, "/v1/processes/dashboard?startDate=2026-01-01&endDate=2026-02-28")

	start, end, err := parseDashboardRange(c)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), end)
}

func TestParseDashboardRangeDefaultsToPreviousMonth(t *testing.T) {
	e := echo.New()
	c, _ := getCtx(e, "/v1/processes/dashboard")

	start, end, err := parseDashboardRange(c)
	require.NoError(t, err)

	now := time.Now().UTC()
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, firstOfMonth.AddDate(0, -1, 0), start)
	assert.Equal(t, firstOfMonth.Add(-time.Second), end)
}

func TestParseDashboardRangeErrors(t *testing.T) {
	e := echo.New()
	for _, target := range []string{
		"/x?startDate=2026-01-01",
		"/x?endDate=2026-01-01",
		"/x?startDate=bogus&endDate=2026-01-01",
		"/x?startDate=2026-02-01&endDate=2026-01-01",
	} {
		c, _ := getCtx(e, target)
		_, _, err := parseDashboardRange(c)
		assert.Error(t, err, target)
	}
}

func TestDashboardAssembly(t *testing.T) {
	h, mock := testProcessHandler(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM processes WHERE status IN").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(5))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM processes WHERE creation_date BETWEEN").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(12))
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT user_id\\) FROM processes").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))
	mock.ExpectQuery("SELECT YEAR\\(creation_date\\), MONTH\\(creation_date\\)").
		WillReturnRows(sqlmock.NewRows([]string{"year", "month", "won", "lost", "recovered"}).
			AddRow(2026, 1, 3, 1, 50000.0).
			AddRow(2026, 2, 1, 1, 10000.0))

	e := echo.New()
	c, rec := getCtx(e, "/v1/processes/dashboard?startDate=2026-01-01&endDate=2026-02-28")
	require.NoError(t, h.Dashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var d model.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, int64(5), d.ActiveProcesses)
	assert.Equal(t, int64(12), d.TotalProcesses)
	assert.Equal(t, int64(4), d.ActiveClients)
	assert.Equal(t, 60000.0, d.RecoveredValue)
	// 4 won of 6 decided -> 67%.
	assert.Equal(t, int64(67), d.SuccessFeePercent)
	require.Len(t, d.MonthlyStats, 2)
	assert.Equal(t, "Janeiro/2026", d.MonthlyStats[0].Month)
	assert.Equal(t, "Fevereiro/2026", d.MonthlyStats[1].Month)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportDashboardHeaders(t *testing.T) {
	h, mock := testProcessHandler(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM processes WHERE status IN").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM processes WHERE creation_date BETWEEN").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT COUNT\\(DISTINCT user_id\\) FROM processes").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery("SELECT YEAR\\(creation_date\\), MONTH\\(creation_date\\)").
		WillReturnRows(sqlmock.NewRows([]string{"year", "month", "won", "lost", "recovered"}))

	e := echo.New()
	c, rec := getCtx(e, "/v1/processes/dashboard/export?startDate=2026-01-01&endDate=2026-01-31")
	require.NoError(t, h.ExportDashboard(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "dashboard_2026-01-01_2026-01-31.csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, rec.Body.Bytes()[:3])
}

func TestUpdateStatusPublishesEvent(t *testing.T) {
	h, mock := testProcessHandler(t)

	var (
		mu        sync.Mutex
		published []queue.ProcessStatusChangedEvent
		done      = make(chan struct{})
	)
	h.Publish = func(ctx context.Context, ev queue.ProcessStatusChangedEvent) error {
		mu.Lock()
		published = append(published, ev)
		mu.Unlock()
		close(done)
		return nil
	}

	now := time.Now()
	processRow := func(status string) *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "user_id", "name", "involved_parties", "process_number",
			"status", "creation_date", "last_modified_date", "recovered_value", "won",
		}).AddRow(3, 7, "Caso X", "", 12345, status, now, now, nil, nil)
	}

	mock.ExpectQuery("SELECT .+ FROM processes WHERE id=").
		WithArgs(uint64(3)).
		WillReturnRows(processRow("IN_PROGRESS"))
	mock.ExpectExec("UPDATE processes SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(7)).
		WillReturnRows(userRow(7, "ana@example.com", "x", "CLIENT"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/processes/3/status",
		strings.NewReader(`{"status":"COMPLETED"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.UpdateStatus(c))
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("status-changed event was not published")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, published, 1)
	assert.Equal(t, uint64(3), published[0].ProcessID)
	assert.Equal(t, "ana@example.com", published[0].ClientEmail)
	assert.Equal(t, "Em Progresso", published[0].OldStatus)
	assert.Equal(t, "Finalizado", published[0].NewStatus)

	var p model.Process
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotNil(t, p.Won)
	assert.True(t, *p.Won, "completing without a won flag defaults to won")
}
