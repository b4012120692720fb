package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"github.com/punchamoorthee/tuitionledger/internal/models"
	"github.com/punchamoorthee/tuitionledger/internal/service"
	"go.uber.org/zap"
)

func (h *Handler) SubmitPaymentHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req models.SubmitPaymentRequest
	if err := models.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "submit_payment", err, zap.String("matricule", p.Matricule))
		return
	}

	payment, err := h.payments.Submit(r.Context(), p, submissionFrom(req))
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			paymentConflicts.WithLabelValues(domain.CodeOf(err)).Inc()
		}
		h.fail(w, r, "submit_payment", err,
			zap.String("matricule", p.Matricule),
			zap.Int("tranche", req.Tranche),
			zap.Int64("amount", req.Amount),
			zap.String("academic_year", req.AcademicYear),
		)
		return
	}

	paymentsSubmitted.WithLabelValues(strconv.Itoa(payment.Tranche)).Inc()
	w.Header().Set("Location", fmt.Sprintf("/api/v1/payments/%d", payment.ID))
	h.respond(w, r, http.StatusCreated, "payment submitted", payment)
}

func (h *Handler) DecidePaymentHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, "decide_payment", err)
		return
	}

	var req models.DecisionRequest
	if err := models.Decode(r.Body, &req); err != nil {
		h.fail(w, r, "decide_payment", err, zap.Int64("payment_id", id))
		return
	}

	payment, err := h.payments.Decide(r.Context(), p, id, req.Decision, req.Comment)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			paymentConflicts.WithLabelValues(domain.CodeOf(err)).Inc()
		}
		h.fail(w, r, "decide_payment", err,
			zap.Int64("payment_id", id),
			zap.String("decision", req.Decision),
		)
		return
	}

	paymentDecisions.WithLabelValues(string(payment.Status)).Inc()
	h.respond(w, r, http.StatusOK, "payment "+string(payment.Status), payment)
}

func (h *Handler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, "get_payment", err)
		return
	}
	payment, err := h.payments.Get(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, "get_payment", err, zap.Int64("payment_id", id))
		return
	}
	h.respond(w, r, http.StatusOK, "ok", payment)
}

func (h *Handler) PendingPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := h.payments.Pending(r.Context())
	if err != nil {
		h.fail(w, r, "list_pending", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", models.NewPaymentList(payments))
}

func (h *Handler) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	f, err := h.paymentFilter(r)
	if err != nil {
		h.fail(w, r, "list_payments", err)
		return
	}
	payments, err := h.payments.History(r.Context(), f)
	if err != nil {
		h.fail(w, r, "list_payments", err)
		return
	}
	h.respond(w, r, http.StatusOK, "ok", models.NewPaymentList(payments))
}

// paymentFilter reads status, tranche, program, academic_year, decided_by and
// the inclusive from/to dates (YYYY-MM-DD, reporting time zone).
func (h *Handler) paymentFilter(r *http.Request) (domain.PaymentFilter, error) {
	q := r.URL.Query()
	f := domain.PaymentFilter{
		Status:       domain.PaymentStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		Program:      strings.TrimSpace(q.Get("program")),
		AcademicYear: strings.TrimSpace(q.Get("academic_year")),
		DecidedBy:    strings.TrimSpace(q.Get("decided_by")),
	}
	if v := q.Get("tranche"); v != "" {
		t, err := strconv.Atoi(v)
		if err != nil {
			return f, domain.ErrInvalidTranche
		}
		f.Tranche = t
	}
	if v := q.Get("from"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			return f, domain.ErrInvalidRequest.WithMessage("from must be a YYYY-MM-DD date")
		}
		f.From = &d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, h.loc)
		if err != nil {
			return f, domain.ErrInvalidRequest.WithMessage("to must be a YYYY-MM-DD date")
		}
		end := d.AddDate(0, 0, 1)
		f.To = &end
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, domain.ErrInvalidRequest.WithMessage("from must not be after to")
	}
	return f, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrPaymentNotFound
	}
	return id, nil
}

func submissionFrom(req models.SubmitPaymentRequest) service.Submission {
	return service.Submission{
		Matricule:    req.Matricule,
		Amount:       req.Amount,
		Tranche:      req.Tranche,
		AcademicYear: req.AcademicYear,
		Labels: domain.Labels{
			Program:    req.Program,
			Faculty:    req.Faculty,
			University: req.University,
		},
	}
}
