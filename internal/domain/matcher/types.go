package matcher

import (
	"github.com/eshaffer321/slipcheck/internal/domain/account"
)

// Config holds the scoring weights.
type Config struct {
	AmountWeight      float64 // cost per unit of amount difference (default: 100)
	MissingAmountCost float64 // cost when the amount difference is unknown (default: 1e6)
	MissingTimeCost   float64 // cost in seconds when the time difference is unknown (default: 1e5)
	SettledBonus      float64 // subtracted for already reconciled records (default: 1000)
}

// DefaultConfig returns the standard weights. Amount drift dominates time
// drift, and previously reconciled rows are preferred on re-selection.
func DefaultConfig() Config {
	return Config{
		AmountWeight:      100,
		MissingAmountCost: 1e6,
		MissingTimeCost:   1e5,
		SettledBonus:      1000,
	}
}

// Names of the strict checks, as reported in failed_conditions.
const (
	ReasonAmountMismatch        = "amount_mismatch"
	ReasonDateMismatch          = "date_mismatch"
	ReasonTimeOutOfRange        = "time_out_of_range"
	ReasonSenderAccountMismatch = "sender_account_mismatch"
)

// Evaluation is the outcome of the strict checks for one candidate.
type Evaluation struct {
	AmountOK    bool
	DateOK      bool
	TimeOK      bool
	SenderOK    bool
	SenderMatch account.MatchMethod
	Failed      []string
}

// Passed reports whether every strict check held.
func (e Evaluation) Passed() bool {
	return e.AmountOK && e.DateOK && e.TimeOK && e.SenderOK
}
