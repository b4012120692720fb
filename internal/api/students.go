package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"github.com/punchamoorthee/tuitionledger/internal/models"
	"github.com/punchamoorthee/tuitionledger/internal/service"
	"go.uber.org/zap"
)

func (h *Handler) MyProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	st, err := h.registry.GetByID(r.Context(), p.StudentID)
	if err != nil {
		h.fail(w, r, "get_profile", err, zap.String("matricule", p.Matricule))
		return
	}
	h.respond(w, r, http.StatusOK, "ok", st)
}

func (h *Handler) MyPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	sum, err := h.reports.StudentSummary(r.Context(), p.StudentID, r.URL.Query().Get("academic_year"))
	if err != nil {
		h.fail(w, r, "get_summary", err, zap.String("matricule", p.Matricule))
		return
	}
	h.respond(w, r, http.StatusOK, "ok", sum)
}

func (h *Handler) StudentPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	matricule := mux.Vars(r)["matricule"]
	sum, err := h.reports.StudentSummaryByMatricule(r.Context(), matricule, r.URL.Query().Get("academic_year"))
	if err != nil {
		h.fail(w, r, "get_summary", err, zap.String("matricule", matricule))
		return
	}
	h.respond(w, r, http.StatusOK, "ok", sum)
}

func (h *Handler) ListStudentsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := domain.StudentFilter{
		Program:      strings.TrimSpace(q.Get("program")),
		Level:        strings.TrimSpace(q.Get("level")),
		AcademicYear: strings.TrimSpace(q.Get("academic_year")),
	}

	result, err := h.registry.List(r.Context(), f, page, limit)
	if err != nil {
		h.fail(w, r, "list_students", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", result)
}

func (h *Handler) EnrollStudentHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	var req models.EnrollStudentRequest
	if err := models.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "enroll_student", err)
		return
	}
	st, err := h.registry.Enroll(r.Context(), p, enrollmentFrom(req))
	if err != nil {
		h.fail(w, r, "enroll_student", err, zap.String("matricule", req.Matricule))
		return
	}
	w.Header().Set("Location", "/api/v1/students/"+st.Matricule)
	h.respond(w, r, http.StatusCreated, "student enrolled", st)
}

func (h *Handler) GetStudentHandler(w http.ResponseWriter, r *http.Request) {
	matricule := mux.Vars(r)["matricule"]
	st, err := h.registry.Get(r.Context(), matricule)
	if err != nil {
		h.fail(w, r, "get_student", err, zap.String("matricule", matricule))
		return
	}
	h.respond(w, r, http.StatusOK, "ok", st)
}

func (h *Handler) PatchStudentHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	matricule := mux.Vars(r)["matricule"]
	patch, err := models.DecodePatch(r.Body)
	if err != nil {
		h.fail(w, r, "update_student", err, zap.String("matricule", matricule))
		return
	}
	st, err := h.registry.Patch(r.Context(), p, matricule, patch)
	if err != nil {
		h.fail(w, r, "update_student", err, zap.String("matricule", matricule))
		return
	}
	h.respond(w, r, http.StatusOK, "student updated", st)
}

func enrollmentFrom(req models.EnrollStudentRequest) service.Enrollment {
	return service.Enrollment{
		Matricule:    req.Matricule,
		LastName:     req.LastName,
		FirstName:    req.FirstName,
		Sex:          req.Sex,
		Program:      req.Program,
		Department:   req.Department,
		Level:        req.Level,
		AcademicYear: req.AcademicYear,
		BirthYear:    req.BirthYear,
		Birthplace:   req.Birthplace,
		Credential:   req.Password,
	}
}
