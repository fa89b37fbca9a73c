package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLimit caps how many rows one retrieval returns.
const DefaultLimit = 20

// DefaultMatchTimeMinutes is the time window used when deciding a match,
// as opposed to the wider window used for retrieval.
const DefaultMatchTimeMinutes = 5

// ErrInvalidQuery is returned when a SlipQuery cannot be used for a lookup.
var ErrInvalidQuery = errors.New("invalid slip query")

// Tolerances bound how far a stored record may drift from the slip.
type Tolerances struct {
	Amount   decimal.Decimal
	DateDays int

	// TimeMinutes bounds retrieval. MatchTimeMinutes bounds the strict
	// check and the final decision.
	TimeMinutes      int
	MatchTimeMinutes int
}

// DefaultTolerances returns exact amount, one day either side, a 60 minute
// retrieval window and a 5 minute match window.
func DefaultTolerances() Tolerances {
	return Tolerances{
		Amount:           decimal.Zero,
		DateDays:         1,
		TimeMinutes:      60,
		MatchTimeMinutes: DefaultMatchTimeMinutes,
	}
}

// SlipQuery is the normalized form of an extracted slip.
type SlipQuery struct {
	Amount       decimal.Decimal
	TransferDate time.Time
	TransferTime *TimeOfDay

	ReceiverAccount string
	SenderAccount   string
	SenderName      string

	Tolerances Tolerances
	Limit      int
}

// Validate checks the query is usable, fills the default limit and truncates
// the date. Zero tolerances are kept as given.
func (q *SlipQuery) Validate() error {
	if q.TransferDate.IsZero() {
		return fmt.Errorf("%w: transfer date is required", ErrInvalidQuery)
	}
	if q.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidQuery)
	}
	t := q.Tolerances
	if t.Amount.IsNegative() || t.DateDays < 0 || t.TimeMinutes < 0 || t.MatchTimeMinutes < 0 {
		return fmt.Errorf("%w: tolerances must not be negative", ErrInvalidQuery)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	q.TransferDate = DateOnly(q.TransferDate)
	return nil
}

// AmountRange returns the inclusive amount window. exact is true when the
// tolerance is zero and callers should compare for equality.
func (q SlipQuery) AmountRange() (lo, hi decimal.Decimal, exact bool) {
	if q.Tolerances.Amount.IsZero() {
		return q.Amount, q.Amount, true
	}
	return q.Amount.Sub(q.Tolerances.Amount), q.Amount.Add(q.Tolerances.Amount), false
}

// DateRange returns the inclusive calendar window around the transfer date.
func (q SlipQuery) DateRange() (from, to time.Time) {
	d := DateOnly(q.TransferDate)
	return d.AddDate(0, 0, -q.Tolerances.DateDays), d.AddDate(0, 0, q.Tolerances.DateDays)
}
