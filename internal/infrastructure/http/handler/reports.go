package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/hsewatch/internal/infrastructure/archive"
	"github.com/rezkam/hsewatch/internal/infrastructure/http/response"
)

// ListReports returns every archived run of one reminder day.
func (h *ReminderHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if _, err := archive.ParseDay(day); err != nil {
		response.ValidationError(w, "day", "must be a date in YYYY-MM-DD format")
		return
	}

	reports, err := h.reports.ListRunReports(r.Context(), day)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, map[string]any{"day": day, "reports": reports})
}

// GetReport returns one archived run.
func (h *ReminderHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if _, err := archive.ParseDay(day); err != nil {
		response.ValidationError(w, "day", "must be a date in YYYY-MM-DD format")
		return
	}

	report, err := h.reports.GetRunReport(r.Context(), day, chi.URLParam(r, "runID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, report)
}
