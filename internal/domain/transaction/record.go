// Package transaction holds the values that flow through one reconciliation
// call: the stored incoming transfer, the slip query built from extracted
// fields, and the annotated candidate that pairs the two.
package transaction

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReconciledMarker is the status value written when a slip settles a record.
const ReconciledMarker = "MATCH"

// Field names used when a stored value cannot be interpreted.
const (
	FieldAmount       = "amount"
	FieldTransferDate = "transfer_date"
	FieldTransferTime = "transfer_time"
)

var settledStatuses = []string{"match", "matched", "แมท"}

// SettledStatuses lists the normalized status values that mean a record has
// already been reconciled.
func SettledStatuses() []string {
	out := make([]string, len(settledStatuses))
	copy(out, settledStatuses)
	return out
}

// IsSettled reports whether status marks a record as reconciled. The
// comparison ignores case and surrounding whitespace.
func IsSettled(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	for _, v := range settledStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Defect records a stored value that could not be interpreted.
type Defect struct {
	Field string
	Value string
}

// Record is an incoming bank transfer as recorded by the store.
type Record struct {
	ID            *int64
	TransactionID string

	Amount       decimal.NullDecimal
	TransferDate time.Time // civil date at UTC midnight, zero when absent
	TransferTime *TimeOfDay

	SenderAccount    string
	SenderAccountAlt string
	ReceiverAccount  string
	SenderName       string

	ReconcileStatus string
	CallerID        string
	CalledAt        *time.Time

	Defects []Defect
}

// Settled reports whether the record is already reconciled.
func (r Record) Settled() bool {
	return IsSettled(r.ReconcileStatus)
}

// HasDefect reports whether the named field failed to parse.
func (r Record) HasDefect(field string) bool {
	for _, d := range r.Defects {
		if d.Field == field {
			return true
		}
	}
	return false
}

// InvalidFields lists the fields that failed to parse, in the order found.
func (r Record) InvalidFields() []string {
	if len(r.Defects) == 0 {
		return nil
	}
	out := make([]string, 0, len(r.Defects))
	for _, d := range r.Defects {
		out = append(out, d.Field)
	}
	return out
}

// SenderTarget is the sender account compared against a slip: the primary
// column when set, otherwise the alternate one.
func (r Record) SenderTarget() string {
	if strings.TrimSpace(r.SenderAccount) != "" {
		return r.SenderAccount
	}
	return r.SenderAccountAlt
}

// HasIdentity reports whether the record can be addressed for an update.
func (r Record) HasIdentity() bool {
	return r.ID != nil || strings.TrimSpace(r.TransactionID) != ""
}

// DateOnly truncates t to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, strings.TrimSpace(s))
}
