package reconcile

import (
	"github.com/eshaffer321/slipcheck/internal/domain/matcher"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/storage"
)

// Status is the decision for one slip.
type Status string

const (
	StatusMatched  Status = "matched"
	StatusNotFound Status = "not_found"
	StatusMultiple Status = "multiple"
	StatusPossible Status = "possible"
)

// Options holds per-call reconciliation settings
type Options struct {
	AutoReconcile bool   // write back when the decision is matched
	CallerID      string // recorded as api_caller_id on write-back
	RequestID     string // generated when empty
}

// Outcome reports what write-back did.
type Outcome struct {
	AlreadyReconciled bool                   `json:"already_reconciled"`
	Reconciled        bool                   `json:"reconciled"`
	Message           string                 `json:"message,omitempty"`
	Error             string                 `json:"error,omitempty"`
	Row               *storage.ReconciledRow `json:"row,omitempty"`
}

// MatchResult is the answer to one reconciliation call. It always has the
// same shape; store failures are reported in Error, not returned.
type MatchResult struct {
	RequestID      string               `json:"request_id"`
	Status         Status               `json:"status"`
	Message        string               `json:"message,omitempty"`
	BestScore      *float64             `json:"best_score,omitempty"`
	BestMatch      *matcher.Diagnostic  `json:"best_match,omitempty"`
	Candidates     []matcher.Diagnostic `json:"candidates"`
	Reconciliation *Outcome             `json:"reconciliation,omitempty"`
	Error          string               `json:"error,omitempty"`
}
