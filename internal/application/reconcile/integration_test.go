package reconcile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/config"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *storage.Gateway {
	t.Helper()
	f, err := os.CreateTemp("", "test_*.db")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { _ = os.Remove(f.Name()) })

	g, err := storage.Open(context.Background(), config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         f.Name(),
		QueryTimeout: 5 * time.Second,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	_, err = g.Migrate(context.Background())
	require.NoError(t, err)
	return g
}

func seed(t *testing.T, g *storage.Gateway, recs ...transaction.Record) {
	t.Helper()
	for _, rec := range recs {
		rec.ID = nil
		_, err := g.Insert(context.Background(), rec)
		require.NoError(t, err)
	}
}

func TestIntegration_ZeroToleranceFindsNothing(t *testing.T) {
	g := openStore(t)
	seed(t, g, record(t, 0, "75.50", "13:00:00"))
	r := NewReconciler(g, quietLogger())

	res, err := r.Reconcile(context.Background(), slip(t, "75.00", "13:00:00"), Options{AutoReconcile: true})

	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Equal(t, msgNoRows, res.Message)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, res.Error)
}

func TestIntegration_ReconcileIsIdempotent(t *testing.T) {
	g := openStore(t)
	rec := record(t, 0, "100.00", "13:05:00")
	rec.TransactionID = "TX-1"
	seed(t, g, rec)
	r := NewReconciler(g, quietLogger())
	q := slip(t, "100.00", "13:07:00")

	first, err := r.Reconcile(context.Background(), q, Options{AutoReconcile: true, CallerID: "line_bot"})
	require.NoError(t, err)
	require.Equal(t, StatusMatched, first.Status)
	require.NotNil(t, first.Reconciliation)
	assert.True(t, first.Reconciliation.Reconciled)
	assert.False(t, first.Reconciliation.AlreadyReconciled)
	require.NotNil(t, first.Reconciliation.Row)
	assert.Equal(t, transaction.ReconciledMarker, first.Reconciliation.Row.ReconcileStatus)
	assert.Equal(t, "line_bot", first.Reconciliation.Row.CallerID)

	second, err := r.Reconcile(context.Background(), q, Options{AutoReconcile: true, CallerID: "someone_else"})
	require.NoError(t, err)
	assert.Equal(t, StatusMatched, second.Status)
	assert.True(t, second.Reconciliation.AlreadyReconciled)
	assert.Equal(t, transaction.ReconciledMarker, second.Reconciliation.Row.ReconcileStatus)
	assert.Equal(t, "line_bot", second.Reconciliation.Row.CallerID, "settled rows are never rewritten")
}

func TestIntegration_ConcurrentReconcileWritesOnce(t *testing.T) {
	g := openStore(t)
	seed(t, g, record(t, 0, "100.00", "13:05:00"))
	r := NewReconciler(g, quietLogger())
	q := slip(t, "100.00", "13:07:00")

	const callers = 8
	results := make([]*MatchResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Reconcile(context.Background(), q, Options{
				AutoReconcile: true,
				CallerID:      fmt.Sprintf("caller_%d", i),
			})
		}(i)
	}
	wg.Wait()

	writes := 0
	winner := ""
	for i, res := range results {
		require.NoError(t, errs[i])
		require.Equal(t, StatusMatched, res.Status)
		require.NotNil(t, res.Reconciliation)
		assert.Empty(t, res.Reconciliation.Error)
		assert.True(t, res.Reconciliation.Reconciled)
		if !res.Reconciliation.AlreadyReconciled {
			writes++
			winner = fmt.Sprintf("caller_%d", i)
		}
	}
	assert.Equal(t, 1, writes)

	after, err := r.Reconcile(context.Background(), q, Options{AutoReconcile: true, CallerID: "late"})
	require.NoError(t, err)
	assert.True(t, after.Reconciliation.AlreadyReconciled)
	assert.Equal(t, winner, after.Reconciliation.Row.CallerID)
}

func TestIntegration_DeterministicOrdering(t *testing.T) {
	g := openStore(t)
	seed(t, g,
		record(t, 0, "50.00", "13:10:00"),
		record(t, 0, "50.00", "12:50:00"),
		record(t, 0, "50.00", "13:30:00"),
	)
	r := NewReconciler(g, quietLogger())
	q := slip(t, "50.00", "13:00:00")

	first, err := r.Reconcile(context.Background(), q, Options{})
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), q, Options{})
	require.NoError(t, err)

	assert.NotEqual(t, first.RequestID, second.RequestID)
	first.RequestID, second.RequestID = "", ""
	assert.Equal(t, first, second)
	assert.Equal(t, StatusMultiple, first.Status)
	require.Len(t, first.Candidates, 3)
	// equal distance on both sides of the slip time: retrieval order breaks the tie
	assert.Equal(t, int64(2), *first.Candidates[0].ID)
	assert.Equal(t, int64(1), *first.Candidates[1].ID)
}

func TestIntegration_AmountToleranceWidensRetrieval(t *testing.T) {
	g := openStore(t)
	seed(t, g, record(t, 0, "75.50", "13:00:00"))
	r := NewReconciler(g, quietLogger())
	q := slip(t, "75.00", "13:00:00")
	q.Tolerances.Amount = decimal.RequireFromString("1.00")

	res, err := r.Reconcile(context.Background(), q, Options{})

	require.NoError(t, err)
	assert.Equal(t, StatusMatched, res.Status)
	assert.Equal(t, "0.50", *res.BestMatch.AmountDiff)
}
