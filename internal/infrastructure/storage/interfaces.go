package storage

//go:generate mockgen -destination=mocks/mock_storage.go -package=mocks -source=interfaces.go

import (
	"context"
	"errors"
	"strings"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
)

// ErrNoIdentity is returned when a record has neither an id nor a
// transaction_id and therefore cannot be updated.
var ErrNoIdentity = errors.New("no primary id or transaction_id available to update")

// Repository hands out per-call sessions against the transaction store.
// This interface allows swapping implementations (PostgreSQL, SQLite) and
// makes testing with mocks straightforward.
type Repository interface {
	// Session reserves one connection for the duration of a reconciliation
	// call. Callers must Close it on every exit path.
	Session(ctx context.Context) (Session, error)

	Close() error
}

// Session is the narrow store interface one reconciliation call works through.
type Session interface {
	// FindCandidates runs the tolerance-bounded lookup and returns annotated
	// candidates ordered by proximity.
	FindCandidates(ctx context.Context, q transaction.SlipQuery) ([]transaction.Candidate, error)

	// MarkReconciled settles the addressed record with one conditional
	// update. Errors roll the write back.
	MarkReconciled(ctx context.Context, key RecordKey, callerID string) (*WriteResult, error)

	Close() error
}

// RecordKey addresses a record for an update: by id when known, else by
// transaction_id.
type RecordKey struct {
	ID            *int64
	TransactionID string
}

// KeyFor returns the update key for rec.
func KeyFor(rec transaction.Record) (RecordKey, error) {
	if rec.ID != nil {
		return RecordKey{ID: rec.ID}, nil
	}
	if tid := strings.TrimSpace(rec.TransactionID); tid != "" {
		return RecordKey{TransactionID: tid}, nil
	}
	return RecordKey{}, ErrNoIdentity
}

// WriteResult describes what a conditional update did.
type WriteResult struct {
	// Updated is true when this call changed the row.
	Updated bool
	// AlreadySettled is true when the row exists but was settled before
	// this call could write it.
	AlreadySettled bool
	// StatusConflict is true when the row carries a status that is neither
	// unset nor settled. Such rows are left untouched.
	StatusConflict bool
	// Row is the row after the call, nil when no row matched the key.
	Row *ReconciledRow
}

// ReconciledRow is the identity and audit view of a row after write-back.
type ReconciledRow struct {
	ID              *int64  `json:"id"`
	TransactionID   string  `json:"transaction_id,omitempty"`
	ReconcileStatus string  `json:"status_reconcile,omitempty"`
	Amount          *string `json:"amount"`
	CallerID        string  `json:"api_caller_id,omitempty"`
}
