package matcher

import (
	"strings"
	"time"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Diagnostic explains one candidate: what was stored, how far it is from the
// slip, and which strict checks it failed. It is the wire form used for both
// best_match and the candidates list.
type Diagnostic struct {
	ID               *int64  `json:"id"`
	TransactionID    string  `json:"transaction_id,omitempty"`
	Amount           *string `json:"amount"`
	TransferDate     string  `json:"transfer_date,omitempty"`
	TransferTime     *string `json:"transfer_time"`
	SenderAccount    string  `json:"sender_account,omitempty"`
	SenderAccountAlt string  `json:"sender_account_alt,omitempty"`
	ReceiverAccount  string  `json:"receiver_account,omitempty"`
	SenderName       string  `json:"sender_name,omitempty"`
	ReconcileStatus  string  `json:"status_reconcile,omitempty"`
	CallerID         string  `json:"api_caller_id,omitempty"`
	CalledAt         string  `json:"api_called_at,omitempty"`

	AmountDiff           *string  `json:"amount_diff"`
	TimeDiffSeconds      *int     `json:"time_diff_seconds"`
	SenderMatchMethod    string   `json:"sender_match_method,omitempty"`
	Score                *float64 `json:"score,omitempty"`
	SenderNameSimilarity *float64 `json:"sender_name_similarity,omitempty"`
	InvalidFields        []string `json:"invalid_fields,omitempty"`

	AmountOK         bool     `json:"amount_ok"`
	DateOK           bool     `json:"date_ok"`
	TimeOK           bool     `json:"time_ok"`
	SenderOK         bool     `json:"sender_ok"`
	FailedConditions []string `json:"failed_conditions"`
}

// Diagnose builds the diagnostic for c. score is nil when the candidate was
// never scored.
func (m *Matcher) Diagnose(c transaction.Candidate, q transaction.SlipQuery, ev Evaluation, score *float64) Diagnostic {
	rec := c.Record()
	d := Diagnostic{
		ID:                rec.ID,
		TransactionID:     rec.TransactionID,
		SenderAccount:     rec.SenderAccount,
		SenderAccountAlt:  rec.SenderAccountAlt,
		ReceiverAccount:   rec.ReceiverAccount,
		SenderName:        rec.SenderName,
		ReconcileStatus:   rec.ReconcileStatus,
		CallerID:          rec.CallerID,
		SenderMatchMethod: string(ev.SenderMatch),
		Score:             score,
		InvalidFields:     rec.InvalidFields(),
		AmountOK:          ev.AmountOK,
		DateOK:            ev.DateOK,
		TimeOK:            ev.TimeOK,
		SenderOK:          ev.SenderOK,
		FailedConditions:  append([]string{}, ev.Failed...),
	}

	if rec.Amount.Valid {
		s := FormatAmount(rec.Amount.Decimal)
		d.Amount = &s
	}
	if !rec.TransferDate.IsZero() {
		d.TransferDate = rec.TransferDate.Format(time.DateOnly)
	}
	if rec.TransferTime != nil {
		s := rec.TransferTime.String()
		d.TransferTime = &s
	}
	if rec.CalledAt != nil {
		d.CalledAt = rec.CalledAt.Format(time.RFC3339)
	}
	if diff, ok := c.AmountDiff(); ok {
		s := FormatAmount(diff)
		d.AmountDiff = &s
	}
	if secs, ok := c.TimeDiffSeconds(); ok {
		d.TimeDiffSeconds = &secs
	}
	if q.SenderName != "" && rec.SenderName != "" {
		sim := NameSimilarity(q.SenderName, rec.SenderName)
		d.SenderNameSimilarity = &sim
	}
	return d
}

// FormatAmount renders a decimal with at least two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}

// NameSimilarity returns a 0..1 edit-distance ratio between two names,
// ignoring case and surrounding whitespace. It is advisory only and never
// affects a decision.
func NameSimilarity(a, b string) float64 {
	ra := []rune(strings.ToLower(strings.TrimSpace(a)))
	rb := []rune(strings.ToLower(strings.TrimSpace(b)))
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return levenshtein.RatioForStrings(ra, rb, levenshtein.DefaultOptions)
}
