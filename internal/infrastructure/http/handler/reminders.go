package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rezkam/hsewatch/internal/application/notification"
	"github.com/rezkam/hsewatch/internal/domain"
	"github.com/rezkam/hsewatch/internal/infrastructure/http/response"
)

// RunSummary is the body returned by both trigger endpoints.
type RunSummary struct {
	Success     bool `json:"success"`
	TotalAlerts int  `json:"totalAlerts"`
	EmailsSent  int  `json:"emailsSent"`
	Skipped     int  `json:"skipped"`
	Failed      int  `json:"failed"`
}

func summarize(result domain.BatchResult) RunSummary {
	return RunSummary{
		Success:     true,
		TotalAlerts: result.Total,
		EmailsSent:  result.Sent,
		Skipped:     result.Skipped,
		Failed:      result.Failed,
	}
}

// TestReminderRequest is the body of the manual test trigger.
type TestReminderRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// writeGrace is the time left to write the summary after a run timed out.
const writeGrace = 10 * time.Second

// runContext detaches the run from the request, so a caller that disconnects
// does not abort a half-sent batch, and bounds it by the run timeout. The
// server write timeout is lifted for this response to cover the whole run.
func (h *ReminderHandler) runContext(w http.ResponseWriter, r *http.Request) (context.Context, context.CancelFunc) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(h.runTimeout + writeGrace)); err != nil {
		slog.WarnContext(r.Context(), "cannot extend write deadline, a long run may outlive the response",
			"error", err)
	}
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.runTimeout)
}

// RunReminders runs the daily batch.
func (h *ReminderHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.runContext(w, r)
	defer cancel()

	result, err := h.service.RunDaily(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRunInProgress) {
			slog.InfoContext(r.Context(), "reminder trigger rejected: run in progress")
		}
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, summarize(result))
}

// TestReminder sends one synthetic reminder to the requested address.
func (h *ReminderHandler) TestReminder(w http.ResponseWriter, r *http.Request) {
	var req TestReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			response.ValidationError(w, "email", "required field missing")
			return
		}
		response.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := h.runContext(w, r)
	defer cancel()

	result, err := h.service.RunTest(ctx, notification.TestRequest{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, summarize(result))
}
