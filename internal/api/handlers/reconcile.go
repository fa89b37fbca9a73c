package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/eshaffer321/slipcheck/internal/api/dto"
	"github.com/eshaffer321/slipcheck/internal/api/middleware"
	"github.com/eshaffer321/slipcheck/internal/application/reconcile"
	"github.com/eshaffer321/slipcheck/internal/domain/slip"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/shopspring/decimal"
)

// SlipReconciler runs one reconciliation call.
type SlipReconciler interface {
	Reconcile(ctx context.Context, q transaction.SlipQuery, opts reconcile.Options) (*reconcile.MatchResult, error)
}

// Defaults are applied when a request leaves a setting out.
type Defaults struct {
	Tolerances    transaction.Tolerances
	Limit         int
	AutoReconcile bool
	CallerID      string
}

// ReconcileHandler handles slip reconciliation requests.
type ReconcileHandler struct {
	*Base
	reconciler SlipReconciler
	defaults   Defaults
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(reconciler SlipReconciler, defaults Defaults) *ReconcileHandler {
	return &ReconcileHandler{
		Base:       &Base{},
		reconciler: reconciler,
		defaults:   defaults,
	}
}

// Reconcile handles POST /api/reconcile with typed slip fields.
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	tol, err := h.tolerances(req.ToleranceParams)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	q, err := typedQuery(req, tol)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	q.Limit = h.limit(req.Limit)

	result, err := h.reconciler.Reconcile(r.Context(), q, h.options(r, req.ToleranceParams))
	if err != nil {
		h.writeReconcileError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// ReconcileSlip handles POST /api/slips/reconcile with raw extractor fields.
func (h *ReconcileHandler) ReconcileSlip(w http.ResponseWriter, r *http.Request) {
	var req dto.SlipReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	tol, err := h.tolerances(req.ToleranceParams)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	s, err := slip.Normalize(req.Fields, tol)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	s.Query.Limit = h.limit(req.Limit)

	result, err := h.reconciler.Reconcile(r.Context(), s.Query, h.options(r, req.ToleranceParams))
	if err != nil {
		h.writeReconcileError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.SlipReconcileResponse{
		Slip:   summarize(s),
		Result: result,
	})
}

func (h *ReconcileHandler) writeReconcileError(w http.ResponseWriter, err error) {
	if errors.Is(err, transaction.ErrInvalidQuery) {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}
	h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
}

func (h *ReconcileHandler) tolerances(p dto.ToleranceParams) (transaction.Tolerances, error) {
	tol := h.defaults.Tolerances
	if p.AmountTolerance != nil {
		d, err := decimal.NewFromString(strings.TrimSpace(*p.AmountTolerance))
		if err != nil {
			return tol, errors.New("amount_tolerance must be a decimal number")
		}
		tol.Amount = d
	}
	if p.DateToleranceDays != nil {
		tol.DateDays = *p.DateToleranceDays
	}
	if p.TimeToleranceMinutes != nil {
		tol.TimeMinutes = *p.TimeToleranceMinutes
	}
	if p.MatchTimeToleranceMinutes != nil {
		tol.MatchTimeMinutes = *p.MatchTimeToleranceMinutes
	}
	return tol, nil
}

func (h *ReconcileHandler) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	return h.defaults.Limit
}

func (h *ReconcileHandler) options(r *http.Request, p dto.ToleranceParams) reconcile.Options {
	opts := reconcile.Options{
		AutoReconcile: h.defaults.AutoReconcile,
		CallerID:      h.defaults.CallerID,
		RequestID:     middleware.RequestIDFrom(r.Context()),
	}
	if p.AutoReconcile != nil {
		opts.AutoReconcile = *p.AutoReconcile
	}
	if p.CallerID != "" {
		opts.CallerID = p.CallerID
	}
	return opts
}

func typedQuery(req dto.ReconcileRequest, tol transaction.Tolerances) (transaction.SlipQuery, error) {
	if strings.TrimSpace(req.Amount) == "" {
		return transaction.SlipQuery{}, errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		return transaction.SlipQuery{}, errors.New("amount must be a decimal number")
	}
	if strings.TrimSpace(req.Date) == "" {
		return transaction.SlipQuery{}, errors.New("date is required")
	}
	date, err := transaction.ParseDate(req.Date)
	if err != nil {
		return transaction.SlipQuery{}, errors.New("date must be YYYY-MM-DD")
	}

	q := transaction.SlipQuery{
		Amount:          amount,
		TransferDate:    date,
		ReceiverAccount: strings.TrimSpace(req.ReceiverAccount),
		SenderAccount:   strings.TrimSpace(req.SenderAccount),
		SenderName:      strings.TrimSpace(req.SenderName),
		Tolerances:      tol,
	}
	if strings.TrimSpace(req.Time) != "" {
		tod, err := transaction.ParseTimeOfDay(req.Time)
		if err != nil {
			return transaction.SlipQuery{}, errors.New("time must be HH:MM or HH:MM:SS")
		}
		q.TransferTime = &tod
	}
	return q, nil
}

func summarize(s *slip.Slip) dto.SlipSummary {
	sum := dto.SlipSummary{
		Amount:          s.Query.Amount.StringFixed(2),
		Date:            s.Query.TransferDate.Format("2006-01-02"),
		ReceiverAccount: s.Query.ReceiverAccount,
		SenderAccount:   s.Query.SenderAccount,
		SenderName:      s.Query.SenderName,
		Bank:            s.Bank,
		TransactionID:   s.TransactionID,
		RecipientName:   s.RecipientName,
	}
	if s.Query.TransferTime != nil {
		sum.Time = s.Query.TransferTime.String()
	}
	return sum
}
