// Package matcher decides how well a stored transfer explains a slip.
//
// The matcher applies strict rules after loose retrieval:
//   - Amount must be exactly equal (retrieval tolerance does not apply)
//   - Date must be the same calendar day
//   - Time must be within the match window, or unknown on either side
//   - Sender account must match positionally or by its last 4 digits
//
// Scores are lower-is-better and only order candidates; they carry no
// pass/fail meaning of their own.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	ev := m.Evaluate(candidate, query)
//	if ev.Passed() {
//		score := m.Score(candidate)
//	}
package matcher

import (
	"github.com/eshaffer321/slipcheck/internal/domain/account"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
)

// Matcher evaluates and scores candidates. It holds no mutable state.
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// Evaluate runs the four strict checks independently and records the name
// of each one that failed.
func (m *Matcher) Evaluate(c transaction.Candidate, q transaction.SlipQuery) Evaluation {
	rec := c.Record()
	ev := Evaluation{SenderMatch: c.SenderMatch()}

	diff, ok := c.AmountDiff()
	ev.AmountOK = ok && diff.IsZero()
	if !ev.AmountOK {
		ev.Failed = append(ev.Failed, ReasonAmountMismatch)
	}

	ev.DateOK = !rec.TransferDate.IsZero() && !q.TransferDate.IsZero() &&
		transaction.DateOnly(rec.TransferDate).Equal(transaction.DateOnly(q.TransferDate))
	if !ev.DateOK {
		ev.Failed = append(ev.Failed, ReasonDateMismatch)
	}

	ev.TimeOK = !rec.HasDefect(transaction.FieldTransferTime) && c.WithinTime(q.Tolerances.MatchTimeMinutes)
	if !ev.TimeOK {
		ev.Failed = append(ev.Failed, ReasonTimeOutOfRange)
	}

	ev.SenderOK = q.SenderAccount == "" || c.SenderMatch() != account.MethodNone
	if !ev.SenderOK {
		ev.Failed = append(ev.Failed, ReasonSenderAccountMismatch)
	}

	return ev
}

// Score returns the ordering cost of a candidate. Lower is better.
func (m *Matcher) Score(c transaction.Candidate) float64 {
	score := m.config.MissingAmountCost
	if diff, ok := c.AmountDiff(); ok {
		score = diff.InexactFloat64() * m.config.AmountWeight
	}

	timeCost := m.config.MissingTimeCost
	if secs, ok := c.TimeDiffSeconds(); ok {
		timeCost = float64(secs)
	}
	score += timeCost / 60

	if c.Record().Settled() {
		score -= m.config.SettledBonus
	}
	return score
}

// FilterStrict returns the candidates that pass every strict check, keeping
// their order, along with the evaluation of every input candidate.
func (m *Matcher) FilterStrict(cs []transaction.Candidate, q transaction.SlipQuery) ([]transaction.Candidate, []Evaluation) {
	evals := make([]Evaluation, len(cs))
	var passed []transaction.Candidate
	for i, c := range cs {
		evals[i] = m.Evaluate(c, q)
		if evals[i].Passed() {
			passed = append(passed, c)
		}
	}
	return passed, evals
}
