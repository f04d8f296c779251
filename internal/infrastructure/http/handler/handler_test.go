package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
)

type fakeService struct {
	RunDailyFn func(ctx context.Context) (domain.BatchResult, error)
	RunTestFn  func(ctx context.Context, req notification.TestRequest) (domain.BatchResult, error)
}

func (f *fakeService) RunDaily(ctx context.Context) (domain.BatchResult, error) {
	return f.RunDailyFn(ctx)
}

func (f *fakeService) RunTest(ctx context.Context, req notification.TestRequest) (domain.BatchResult, error) {
	return f.RunTestFn(ctx, req)
}

type fakeReports struct {
	reports map[string][]domain.RunReport
	err     error
}

func (f *fakeReports) GetRunReport(_ context.Context, day, runID string) (domain.RunReport, error) {
	for _, r := range f.reports[day] {
		if r.RunID == runID {
			return r, nil
		}
	}
	return domain.RunReport{}, fmt.Errorf("%w: run report %s/%s", domain.ErrNotFound, day, runID)
}

func (f *fakeReports) ListRunReports(_ context.Context, day string) ([]domain.RunReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.reports[day], nil
}

func newRouter(svc ReminderService, reports ReportReader) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewReminderHandler(svc, reports).Routes)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRunReminders_ReturnsSummary(t *testing.T) {
	svc := &fakeService{RunDailyFn: func(ctx context.Context) (domain.BatchResult, error) {
		return domain.BatchResult{Total: 4, Sent: 2, Skipped: 1, Failed: 1}, nil
	}}
	router := newRouter(svc, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			w := serve(t, router, method, "/api/cron/reminders", "")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"success":true,"totalAlerts":4,"emailsSent":2,"skipped":1,"failed":1}`, w.Body.String())
		})
	}
}

func TestRunReminders_NothingEligible(t *testing.T) {
	svc := &fakeService{RunDailyFn: func(ctx context.Context) (domain.BatchResult, error) {
		return domain.BatchResult{}, nil
	}}

	w := serve(t, newRouter(svc, nil), http.MethodGet, "/api/cron/reminders", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"totalAlerts":0,"emailsSent":0,"skipped":0,"failed":0}`, w.Body.String())
}

func TestRunReminders_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"run in progress", domain.ErrRunInProgress, http.StatusConflict, "RUN_IN_PROGRESS"},
		{"store unreachable", errors.New("failed to query reminder candidates: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{RunDailyFn: func(ctx context.Context) (domain.BatchResult, error) {
				return domain.BatchResult{}, tt.err
			}}

			w := serve(t, newRouter(svc, nil), http.MethodPost, "/api/cron/reminders", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestRunReminders_SurvivesClientDisconnect(t *testing.T) {
	var runErr error
	svc := &fakeService{RunDailyFn: func(ctx context.Context) (domain.BatchResult, error) {
		runErr = ctx.Err()
		return domain.BatchResult{}, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/cron/reminders", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(w, req)

	assert.NoError(t, runErr)
}

func TestRunReminders_RunIsBoundedByRunTimeout(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	svc := &fakeService{RunDailyFn: func(ctx context.Context) (domain.BatchResult, error) {
		deadline, hasDeadline = ctx.Deadline()
		return domain.BatchResult{}, nil
	}}

	r := chi.NewRouter()
	r.Route("/api", NewReminderHandler(svc, nil, WithRunTimeout(time.Minute)).Routes)
	start := time.Now()
	w := serve(t, r, http.MethodGet, "/api/cron/reminders", "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, hasDeadline)
	assert.WithinDuration(t, start.Add(time.Minute), deadline, 5*time.Second)
}

func TestRunReminders_SummaryOutlivesServerWriteTimeout(t *testing.T) {
	svc := &fakeService{RunDailyFn: func(ctx context.Context) (domain.BatchResult, error) {
		time.Sleep(300 * time.Millisecond)
		return domain.BatchResult{Total: 1, Sent: 1}, nil
	}}

	server := httptest.NewUnstartedServer(newRouter(svc, nil))
	server.Config.WriteTimeout = 50 * time.Millisecond
	server.Start()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/cron/reminders")
	require.NoError(t, err, "the summary must reach the caller after a long run")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var summary RunSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.EmailsSent)
}

func TestTestReminder(t *testing.T) {
	var got notification.TestRequest
	svc := &fakeService{RunTestFn: func(ctx context.Context, req notification.TestRequest) (domain.BatchResult, error) {
		got = req
		if !strings.Contains(req.Email, "@") {
			return domain.BatchResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidRecipient, req.Email)
		}
		return domain.BatchResult{Total: 1, Sent: 1}, nil
	}}
	router := newRouter(svc, nil)

	t.Run("sends", func(t *testing.T) {
		w := serve(t, router, http.MethodPost, "/api/cron/reminders/test", `{"email":"me@example.com","name":"Me"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true,"totalAlerts":1,"emailsSent":1,"skipped":0,"failed":0}`, w.Body.String())
		assert.Equal(t, notification.TestRequest{Email: "me@example.com", Name: "Me"}, got)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := serve(t, router, http.MethodPost, "/api/cron/reminders/test", `{"email":"not-an-email"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})

	t.Run("empty body", func(t *testing.T) {
		w := serve(t, router, http.MethodPost, "/api/cron/reminders/test", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"email"`)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := serve(t, router, http.MethodPost, "/api/cron/reminders/test", `{"email":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
	})

	t.Run("GET not allowed", func(t *testing.T) {
		w := serve(t, router, http.MethodGet, "/api/cron/reminders/test", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestReports(t *testing.T) {
	report := domain.RunReport{
		RunID:     "run-1",
		Trigger:   "daily",
		Today:     "2025-06-01",
		StartedAt: time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC),
		Result:    domain.BatchResult{Total: 1, Sent: 1},
	}
	reports := &fakeReports{reports: map[string][]domain.RunReport{"2025-06-01": {report}}}
	router := newRouter(&fakeService{}, reports)

	t.Run("list", func(t *testing.T) {
		w := serve(t, router, http.MethodGet, "/api/reports/2025-06-01", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Day     string             `json:"day"`
			Reports []domain.RunReport `json:"reports"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "2025-06-01", body.Day)
		require.Len(t, body.Reports, 1)
		assert.Equal(t, "run-1", body.Reports[0].RunID)
	})

	t.Run("get", func(t *testing.T) {
		w := serve(t, router, http.MethodGet, "/api/reports/2025-06-01/run-1", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"run_id":"run-1"`)
	})

	t.Run("unknown run", func(t *testing.T) {
		w := serve(t, router, http.MethodGet, "/api/reports/2025-06-01/run-2", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed day", func(t *testing.T) {
		w := serve(t, router, http.MethodGet, "/api/reports/yesterday", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("archive failure", func(t *testing.T) {
		failing := newRouter(&fakeService{}, &fakeReports{err: errors.New("bucket unavailable")})
		w := serve(t, failing, http.MethodGet, "/api/reports/2025-06-01", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestReports_NotMountedWithoutArchive(t *testing.T) {
	w := serve(t, newRouter(&fakeService{}, nil), http.MethodGet, "/api/reports/2025-06-01", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
