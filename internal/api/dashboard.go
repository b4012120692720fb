package api

import (
	"net/http"
	"strconv"

	"github.com/punchamoorthee/tuitionledger/internal/domain"
)

func (h *Handler) DashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Dashboard(r.Context(), r.URL.Query().Get("academic_year"))
	if err != nil {
		h.fail(w, r, "dashboard_stats", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", stats)
}

func (h *Handler) DashboardStudentsHandler(w http.ResponseWriter, r *http.Request) {
	students, err := h.reports.Students(r.Context(), r.URL.Query().Get("academic_year"))
	if err != nil {
		h.fail(w, r, "dashboard_students", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", students)
}

func (h *Handler) DashboardProgramsHandler(w http.ResponseWriter, r *http.Request) {
	programs, err := h.reports.Programs(r.Context(), r.URL.Query().Get("academic_year"))
	if err != nil {
		h.fail(w, r, "dashboard_programs", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", programs)
}

func (h *Handler) DashboardTranchesHandler(w http.ResponseWriter, r *http.Request) {
	tranches, err := h.reports.Tranches(r.Context(), r.URL.Query().Get("academic_year"))
	if err != nil {
		h.fail(w, r, "dashboard_tranches", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", tranches)
}

func (h *Handler) DashboardMonthlyHandler(w http.ResponseWriter, r *http.Request) {
	var year int
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			h.fail(w, r, "dashboard_monthly", domain.ErrInvalidRequest.WithMessage("year must be a calendar year"))
			return
		}
		year = y
	}
	series, err := h.reports.Monthly(r.Context(), year)
	if err != nil {
		h.fail(w, r, "dashboard_monthly", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", series)
}
