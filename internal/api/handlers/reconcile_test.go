package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eshaffer321/slipcheck/internal/api/dto"
	"github.com/eshaffer321/slipcheck/internal/api/handlers"
	"github.com/eshaffer321/slipcheck/internal/application/reconcile"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReconciler records the last call and answers with a fixed result.
type fakeReconciler struct {
	calls int
	query transaction.SlipQuery
	opts  reconcile.Options
	err   error
}

func (f *fakeReconciler) Reconcile(_ context.Context, q transaction.SlipQuery, opts reconcile.Options) (*reconcile.MatchResult, error) {
	f.calls++
	f.query = q
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &reconcile.MatchResult{RequestID: "r1", Status: reconcile.StatusNotFound}, nil
}

func testDefaults() handlers.Defaults {
	return handlers.Defaults{
		Tolerances: transaction.DefaultTolerances(),
		Limit:      20,
		CallerID:   "check_transfer",
	}
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestReconcileHandler_Reconcile(t *testing.T) {
	t.Run("builds the query and applies defaults", func(t *testing.T) {
		fake := &fakeReconciler{}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.Reconcile, `{"amount":"100.00","date":"2025-11-07","time":"13:07","sender_account":"123456789"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, fake.calls)
		assert.Equal(t, "100", fake.query.Amount.String())
		assert.Equal(t, "2025-11-07", fake.query.TransferDate.Format("2006-01-02"))
		require.NotNil(t, fake.query.TransferTime)
		assert.Equal(t, "13:07:00", fake.query.TransferTime.String())
		assert.Equal(t, "123456789", fake.query.SenderAccount)
		assert.Equal(t, 60, fake.query.Tolerances.TimeMinutes)
		assert.Equal(t, transaction.DefaultMatchTimeMinutes, fake.query.Tolerances.MatchTimeMinutes)
		assert.Equal(t, 20, fake.query.Limit)
		assert.False(t, fake.opts.AutoReconcile)
		assert.Equal(t, "check_transfer", fake.opts.CallerID)

		var result reconcile.MatchResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
		assert.Equal(t, reconcile.StatusNotFound, result.Status)
	})

	t.Run("request overrides defaults", func(t *testing.T) {
		fake := &fakeReconciler{}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.Reconcile, `{"amount":"75","date":"2025-11-07","amount_tolerance":"1.00",
			"time_tolerance_minutes":30,"limit":5,"auto_reconcile":true,"caller_id":"line_bot"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1", fake.query.Tolerances.Amount.String())
		assert.Equal(t, 30, fake.query.Tolerances.TimeMinutes)
		assert.Equal(t, 5, fake.query.Limit)
		assert.True(t, fake.opts.AutoReconcile)
		assert.Equal(t, "line_bot", fake.opts.CallerID)
	})

	t.Run("explicit zero match window is kept", func(t *testing.T) {
		fake := &fakeReconciler{}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.Reconcile, `{"amount":"10","date":"2025-11-07","match_time_tolerance_minutes":0}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 0, fake.query.Tolerances.MatchTimeMinutes)
	})

	t.Run("rejects bad input before reconciling", func(t *testing.T) {
		bodies := []string{
			`not json`,
			`{"date":"2025-11-07"}`,
			`{"amount":"ten","date":"2025-11-07"}`,
			`{"amount":"10"}`,
			`{"amount":"10","date":"07/11/2025"}`,
			`{"amount":"10","date":"2025-11-07","time":"noon"}`,
			`{"amount":"10","date":"2025-11-07","amount_tolerance":"x"}`,
		}
		for _, body := range bodies {
			fake := &fakeReconciler{}
			h := handlers.NewReconcileHandler(fake, testDefaults())

			rec := post(h.Reconcile, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Zero(t, fake.calls, body)
			var apiErr dto.APIError
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
			assert.NotEmpty(t, apiErr.Code)
		}
	})

	t.Run("maps invalid query to 400", func(t *testing.T) {
		fake := &fakeReconciler{err: transaction.ErrInvalidQuery}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.Reconcile, `{"amount":"10","date":"2025-11-07"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps unexpected errors to 500", func(t *testing.T) {
		fake := &fakeReconciler{err: errors.New("boom")}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.Reconcile, `{"amount":"10","date":"2025-11-07"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeInternalError, apiErr.Code)
	})
}

func TestReconcileHandler_ReconcileSlip(t *testing.T) {
	t.Run("normalises extractor fields", func(t *testing.T) {
		fake := &fakeReconciler{}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.ReconcileSlip, `{"fields":{"amount":"1,000.00 บาท","date":"7 พ.ย. 68 13:05 น.","account":"xxx-x-x6789-x","bank":"SCB Easy"}}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1000", fake.query.Amount.String())
		assert.Equal(t, "xxx-x-x6789-x", fake.query.ReceiverAccount)

		var resp dto.SlipReconcileResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "1000.00", resp.Slip.Amount)
		assert.Equal(t, "2025-11-07", resp.Slip.Date)
		assert.Equal(t, "13:05:00", resp.Slip.Time)
		assert.Equal(t, "SCB", resp.Slip.Bank)
		require.NotNil(t, resp.Result)
		assert.Equal(t, "r1", resp.Result.RequestID)
	})

	t.Run("missing amount is a validation error", func(t *testing.T) {
		fake := &fakeReconciler{}
		h := handlers.NewReconcileHandler(fake, testDefaults())

		rec := post(h.ReconcileSlip, `{"fields":{"date":"2025-11-07"}}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, fake.calls)
		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeValidation, apiErr.Code)
		assert.Contains(t, apiErr.Message, "amount")
	})
}
