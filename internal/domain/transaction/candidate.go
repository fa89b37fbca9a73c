package transaction

import (
	"sort"

	"github.com/eshaffer321/slipcheck/internal/domain/account"
	"github.com/shopspring/decimal"
)

// Candidate is a stored record annotated against one query. It is built once
// by NewCandidate and never modified afterwards.
type Candidate struct {
	record      Record
	amountDiff  decimal.NullDecimal
	timeDiff    int
	hasTimeDiff bool
	senderMatch account.MatchMethod
}

// NewCandidate computes the amount and time distance between rec and q, and
// how the sender accounts compare when the query names one.
func NewCandidate(rec Record, q SlipQuery) Candidate {
	c := Candidate{record: rec}

	if rec.Amount.Valid && !rec.HasDefect(FieldAmount) {
		c.amountDiff = decimal.NewNullDecimal(rec.Amount.Decimal.Sub(q.Amount).Abs())
	}
	if rec.TransferTime != nil && q.TransferTime != nil && !rec.HasDefect(FieldTransferTime) {
		c.timeDiff = CircularDiff(*rec.TransferTime, *q.TransferTime)
		c.hasTimeDiff = true
	}
	if q.SenderAccount != "" {
		c.senderMatch = account.Compare(q.SenderAccount, rec.SenderTarget())
	}
	return c
}

// Record returns the underlying stored record.
func (c Candidate) Record() Record { return c.record }

// AmountDiff returns |record amount - query amount|, if both are known.
func (c Candidate) AmountDiff() (decimal.Decimal, bool) {
	return c.amountDiff.Decimal, c.amountDiff.Valid
}

// TimeDiffSeconds returns the circular time distance, if both times are known.
func (c Candidate) TimeDiffSeconds() (int, bool) {
	return c.timeDiff, c.hasTimeDiff
}

// SenderMatch returns how the sender account matched, or MethodNone.
func (c Candidate) SenderMatch() account.MatchMethod { return c.senderMatch }

// WithinTime reports whether the time distance is at most minutes. A missing
// time on either side counts as within.
func (c Candidate) WithinTime(minutes int) bool {
	if !c.hasTimeDiff {
		return true
	}
	return c.timeDiff <= minutes*60
}

// WithinAmount reports whether the amount distance is at most tol. A missing
// amount is never within.
func (c Candidate) WithinAmount(tol decimal.Decimal) bool {
	return c.amountDiff.Valid && c.amountDiff.Decimal.LessThanOrEqual(tol)
}

// PrepareCandidates annotates store rows against q, drops rows outside the
// retrieval time window, and orders the rest by (amount diff, time diff)
// with unknown values last. Rows keep their store order on ties.
func PrepareCandidates(records []Record, q SlipQuery) []Candidate {
	out := make([]Candidate, 0, len(records))
	for _, rec := range records {
		c := NewCandidate(rec, q)
		if q.TransferTime != nil && !c.WithinTime(q.Tolerances.TimeMinutes) {
			continue
		}
		out = append(out, c)
	}
	SortByProximity(out)
	return out
}

// SortByProximity orders candidates by amount diff then time diff, placing
// unknown values after known ones. The sort is stable.
func SortByProximity(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.amountDiff.Valid != b.amountDiff.Valid {
			return a.amountDiff.Valid
		}
		if a.amountDiff.Valid {
			if cmp := a.amountDiff.Decimal.Cmp(b.amountDiff.Decimal); cmp != 0 {
				return cmp < 0
			}
		}
		if a.hasTimeDiff != b.hasTimeDiff {
			return a.hasTimeDiff
		}
		return a.hasTimeDiff && a.timeDiff < b.timeDiff
	})
}
