package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eshaffer321/slipcheck/internal/domain/matcher"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/eshaffer321/slipcheck/internal/infrastructure/storage"
)

const (
	msgAlreadyReconciled = "Already reconciled"
	msgLostRace          = "Already reconciled by a concurrent call"
	msgNoRowUpdated      = "no row updated (id/transaction_id mismatch)"
)

// writeBack settles the best candidate. Failures are returned as an outcome
// and never change the match decision.
func (r *Reconciler) writeBack(ctx context.Context, sess storage.Session, best transaction.Candidate, callerID string, log *slog.Logger) *Outcome {
	rec := best.Record()

	if rec.Settled() {
		log.Info("Skipping write-back, record already reconciled", "id", logID(rec.ID), "status_reconcile", rec.ReconcileStatus)
		return &Outcome{
			AlreadyReconciled: true,
			Reconciled:        true,
			Message:           msgAlreadyReconciled,
			Row:               rowFromRecord(rec),
		}
	}

	if status := strings.TrimSpace(rec.ReconcileStatus); status != "" {
		log.Warn("Skipping write-back, record carries another status", "id", logID(rec.ID), "status_reconcile", status)
		return &Outcome{Reconciled: false, Error: statusConflict(status), Row: rowFromRecord(rec)}
	}

	key, err := storage.KeyFor(rec)
	if err != nil {
		return &Outcome{Reconciled: false, Error: err.Error()}
	}

	res, err := sess.MarkReconciled(ctx, key, callerID)
	switch {
	case err != nil:
		log.Error("Write-back failed", "id", logID(rec.ID), "error", err)
		return &Outcome{Reconciled: false, Error: err.Error()}
	case res.Updated:
		return &Outcome{Reconciled: true, Row: res.Row}
	case res.AlreadySettled:
		log.Warn("Write-back lost race, record settled concurrently", "id", logID(rec.ID))
		return &Outcome{
			AlreadyReconciled: true,
			Reconciled:        true,
			Message:           msgLostRace,
			Row:               res.Row,
		}
	case res.StatusConflict:
		status := ""
		if res.Row != nil {
			status = res.Row.ReconcileStatus
		}
		log.Warn("Write-back refused, record status changed concurrently", "id", logID(rec.ID), "status_reconcile", status)
		return &Outcome{Reconciled: false, Error: statusConflict(status), Row: res.Row}
	default:
		return &Outcome{Reconciled: false, Error: msgNoRowUpdated}
	}
}

// statusConflict explains why a row with a foreign status is not settled.
func statusConflict(status string) string {
	return fmt.Sprintf("status_reconcile is %q, not unset", status)
}

func rowFromRecord(rec transaction.Record) *storage.ReconciledRow {
	row := &storage.ReconciledRow{
		ID:              rec.ID,
		TransactionID:   rec.TransactionID,
		ReconcileStatus: rec.ReconcileStatus,
		CallerID:        rec.CallerID,
	}
	if rec.Amount.Valid {
		s := matcher.FormatAmount(rec.Amount.Decimal)
		row.Amount = &s
	}
	return row
}

func logID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
