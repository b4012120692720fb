package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires every endpoint onto a gorilla/mux router.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.NotFoundHandler)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.MethodNotAllowedHandler)
	r.Use(requestID, instrument)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheckHandler).Methods(http.MethodGet)

	// API routes stay on the root router: a mux subrouter loses the method
	// mismatch once a later route fails on path, turning 405 into 404.
	r.HandleFunc("/api/v1/auth/student/login", h.StudentLoginHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/auth/admin/login", h.AdminLoginHandler).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/students/me", h.student(h.MyProfileHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/students/me/payments", h.student(h.MyPaymentsHandler)).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/students", h.admin(h.ListStudentsHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/students", h.admin(h.EnrollStudentHandler)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/students/{matricule}", h.admin(h.GetStudentHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/students/{matricule}", h.admin(h.PatchStudentHandler)).Methods(http.MethodPatch)
	r.HandleFunc("/api/v1/students/{matricule}/payments", h.admin(h.StudentPaymentsHandler)).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/payments", h.student(h.SubmitPaymentHandler)).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/payments", h.admin(h.ListPaymentsHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/payments/pending", h.admin(h.PendingPaymentsHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/payments/{id:[0-9]+}", h.anyone(h.GetPaymentHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/payments/{id:[0-9]+}/decision", h.admin(h.DecidePaymentHandler)).Methods(http.MethodPost)

	r.HandleFunc("/api/v1/dashboard/stats", h.admin(h.DashboardStatsHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/dashboard/students", h.admin(h.DashboardStudentsHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/dashboard/programs", h.admin(h.DashboardProgramsHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/dashboard/tranches", h.admin(h.DashboardTranchesHandler)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/dashboard/monthly", h.admin(h.DashboardMonthlyHandler)).Methods(http.MethodGet)

	return r
}
