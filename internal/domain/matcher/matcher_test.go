package matcher

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/eshaffer321/slipcheck/internal/domain/account"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slipDate = time.Date(2025, 11, 7, 0, 0, 0, 0, time.UTC)

func clock(t *testing.T, s string) *transaction.TimeOfDay {
	t.Helper()
	tod, err := transaction.ParseTimeOfDay(s)
	require.NoError(t, err)
	return &tod
}

// Helper to create a stored record
func makeRecord(id int64, amount string, at *transaction.TimeOfDay) transaction.Record {
	return transaction.Record{
		ID:           &id,
		Amount:       decimal.NewNullDecimal(decimal.RequireFromString(amount)),
		TransferDate: slipDate,
		TransferTime: at,
	}
}

func makeQuery(t *testing.T, amount, at string) transaction.SlipQuery {
	q := transaction.SlipQuery{
		Amount:       decimal.RequireFromString(amount),
		TransferDate: slipDate,
		TransferTime: clock(t, at),
		Tolerances:   transaction.DefaultTolerances(),
	}
	require.NoError(t, q.Validate())
	return q
}

func TestMatcher_Evaluate_AllPass(t *testing.T) {
	// Arrange
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "100.00", "13:07:00")
	q.SenderAccount = "123456789"
	rec := makeRecord(1, "100.00", clock(t, "13:05:00"))
	rec.SenderAccount = "1234X6789"

	// Act
	ev := m.Evaluate(transaction.NewCandidate(rec, q), q)

	// Assert
	assert.True(t, ev.Passed())
	assert.Empty(t, ev.Failed)
	assert.Equal(t, account.MethodPositional, ev.SenderMatch)
}

func TestMatcher_Evaluate_ReasonsAccumulate(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "75.00", "13:00:00")
	q.SenderAccount = "1111"
	rec := makeRecord(1, "75.50", clock(t, "13:30:00"))
	rec.TransferDate = slipDate.AddDate(0, 0, 1)
	rec.SenderAccount = "99992222"

	ev := m.Evaluate(transaction.NewCandidate(rec, q), q)

	assert.False(t, ev.Passed())
	assert.Equal(t, []string{
		ReasonAmountMismatch,
		ReasonDateMismatch,
		ReasonTimeOutOfRange,
		ReasonSenderAccountMismatch,
	}, ev.Failed)
}

func TestMatcher_Evaluate_ToleranceNotAppliedToAmount(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "100.00", "13:00:00")
	q.Tolerances.Amount = decimal.RequireFromString("1.00")
	rec := makeRecord(1, "100.50", clock(t, "13:00:00"))

	ev := m.Evaluate(transaction.NewCandidate(rec, q), q)

	assert.False(t, ev.AmountOK)
	assert.True(t, ev.DateOK)
}

func TestMatcher_Evaluate_MissingTimePasses(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "10", "13:00")
	rec := makeRecord(1, "10", nil)

	ev := m.Evaluate(transaction.NewCandidate(rec, q), q)

	assert.True(t, ev.TimeOK)
	assert.True(t, ev.Passed())
}

func TestMatcher_Evaluate_ZeroMatchWindow(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "100.00", "13:00:00")
	q.Tolerances.MatchTimeMinutes = 0
	require.NoError(t, q.Validate())

	late := m.Evaluate(transaction.NewCandidate(makeRecord(1, "100.00", clock(t, "13:02:00")), q), q)
	exact := m.Evaluate(transaction.NewCandidate(makeRecord(2, "100.00", clock(t, "13:00:00")), q), q)

	assert.False(t, late.TimeOK)
	assert.Equal(t, []string{ReasonTimeOutOfRange}, late.Failed)
	assert.True(t, exact.TimeOK)
	assert.True(t, exact.Passed())
}

func TestMatcher_Evaluate_UnparsableTimeFails(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "10", "13:00")
	rec := makeRecord(1, "10", nil)
	rec.Defects = []transaction.Defect{{Field: transaction.FieldTransferTime, Value: "noon"}}

	ev := m.Evaluate(transaction.NewCandidate(rec, q), q)

	assert.False(t, ev.TimeOK)
	assert.Contains(t, ev.Failed, ReasonTimeOutOfRange)
}

func TestMatcher_Evaluate_SuffixSender(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "10", "13:00")
	q.SenderAccount = "xxx-x-x1234-x"
	rec := makeRecord(1, "10", clock(t, "13:00"))
	rec.SenderAccountAlt = "000-0-01234"

	ev := m.Evaluate(transaction.NewCandidate(rec, q), q)

	assert.True(t, ev.SenderOK)
	assert.Equal(t, account.MethodSuffix, ev.SenderMatch)
}

func TestMatcher_Score(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "50.00", "13:00:00")

	tests := []struct {
		name string
		rec  transaction.Record
		want float64
	}{
		{"exact", makeRecord(1, "50.00", clock(t, "13:00:00")), 0},
		{"ten minutes", makeRecord(2, "50.00", clock(t, "13:10:00")), 10},
		{"amount dominates", makeRecord(3, "50.10", clock(t, "13:00:00")), 10},
		{"missing time", makeRecord(4, "50.00", nil), 1e5 / 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Score(transaction.NewCandidate(tt.rec, q))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMatcher_Score_SettledBonus(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "50.00", "13:00:00")
	rec := makeRecord(1, "50.00", clock(t, "13:10:00"))
	rec.ReconcileStatus = "MATCH"

	assert.InDelta(t, 10-1000, m.Score(transaction.NewCandidate(rec, q)), 1e-9)
}

func TestMatcher_Score_MissingAmount(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "50.00", "13:00:00")
	rec := makeRecord(1, "0", clock(t, "13:00:00"))
	rec.Amount = decimal.NullDecimal{}

	assert.InDelta(t, 1e6, m.Score(transaction.NewCandidate(rec, q)), 1e-9)
}

func TestMatcher_FilterStrict(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "50.00", "13:00:00")
	cs := []transaction.Candidate{
		transaction.NewCandidate(makeRecord(1, "50.00", clock(t, "13:40:00")), q),
		transaction.NewCandidate(makeRecord(2, "50.00", clock(t, "13:02:00")), q),
	}

	passed, evals := m.FilterStrict(cs, q)

	require.Len(t, passed, 1)
	assert.Equal(t, int64(2), *passed[0].Record().ID)
	assert.Len(t, evals, 2)
	assert.False(t, evals[0].Passed())
}

func TestMatcher_Diagnose_WireFormat(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	q := makeQuery(t, "100", "13:07:00")
	q.SenderName = "Somchai Jaidee"
	rec := makeRecord(7, "100", clock(t, "13:05:00"))
	rec.TransactionID = "TX-7"
	rec.SenderName = "SOMCHAI JAIDEE"
	c := transaction.NewCandidate(rec, q)
	ev := m.Evaluate(c, q)
	score := m.Score(c)

	d := m.Diagnose(c, q, ev, &score)
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "100.00", got["amount"])
	assert.Equal(t, "0.00", got["amount_diff"])
	assert.Equal(t, "2025-11-07", got["transfer_date"])
	assert.Equal(t, "13:05:00", got["transfer_time"])
	assert.Equal(t, float64(120), got["time_diff_seconds"])
	assert.Equal(t, float64(1), got["sender_name_similarity"])
	assert.Equal(t, []any{}, got["failed_conditions"])
	assert.Equal(t, true, got["amount_ok"])
	assert.NotContains(t, got, "invalid_fields")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "75.50", FormatAmount(decimal.RequireFromString("75.5")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
	assert.Equal(t, "1.125", FormatAmount(decimal.RequireFromString("1.125")))
}

func TestNameSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, NameSimilarity("Alice", " alice "), 1e-9)
	assert.Less(t, NameSimilarity("Alice", "Bob"), 0.5)
}
