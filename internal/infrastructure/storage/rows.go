package storage

import (
	"database/sql"
	"strings"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, transaction_id, amount, transfer_date, transfer_time,
	sender_account_number, sender_account, receiver_account_number, sender_name,
	status_reconcile, api_caller_id, api_called_at`

// transactionRow mirrors bank_incoming_transaction. Amount and time are read
// as text so a malformed value becomes a record defect instead of a scan error.
type transactionRow struct {
	ID                    sql.NullInt64  `db:"id"`
	TransactionID         sql.NullString `db:"transaction_id"`
	Amount                sql.NullString `db:"amount"`
	TransferDate          sql.NullTime   `db:"transfer_date"`
	TransferTime          sql.NullString `db:"transfer_time"`
	SenderAccountNumber   sql.NullString `db:"sender_account_number"`
	SenderAccount         sql.NullString `db:"sender_account"`
	ReceiverAccountNumber sql.NullString `db:"receiver_account_number"`
	SenderName            sql.NullString `db:"sender_name"`
	StatusReconcile       sql.NullString `db:"status_reconcile"`
	APICallerID           sql.NullString `db:"api_caller_id"`
	APICalledAt           sql.NullTime   `db:"api_called_at"`
}

func (r transactionRow) toRecord() transaction.Record {
	rec := transaction.Record{
		TransactionID:    r.TransactionID.String,
		SenderAccount:    r.SenderAccountNumber.String,
		SenderAccountAlt: r.SenderAccount.String,
		ReceiverAccount:  r.ReceiverAccountNumber.String,
		SenderName:       r.SenderName.String,
		ReconcileStatus:  r.StatusReconcile.String,
		CallerID:         r.APICallerID.String,
	}
	if r.ID.Valid {
		id := r.ID.Int64
		rec.ID = &id
	}

	if r.Amount.Valid {
		if d, err := decimal.NewFromString(strings.TrimSpace(r.Amount.String)); err == nil {
			rec.Amount = decimal.NewNullDecimal(d)
		} else {
			rec.Defects = append(rec.Defects, transaction.Defect{Field: transaction.FieldAmount, Value: r.Amount.String})
		}
	}

	if r.TransferDate.Valid {
		if r.TransferDate.Time.IsZero() {
			// go-sqlite3 yields the zero time for DATE text it cannot parse
			rec.Defects = append(rec.Defects, transaction.Defect{Field: transaction.FieldTransferDate})
		} else {
			rec.TransferDate = transaction.DateOnly(r.TransferDate.Time)
		}
	}

	if r.TransferTime.Valid && strings.TrimSpace(r.TransferTime.String) != "" {
		if tod, err := transaction.ParseTimeOfDay(r.TransferTime.String); err == nil {
			rec.TransferTime = &tod
		} else {
			rec.Defects = append(rec.Defects, transaction.Defect{Field: transaction.FieldTransferTime, Value: r.TransferTime.String})
		}
	}

	if r.APICalledAt.Valid && !r.APICalledAt.Time.IsZero() {
		t := r.APICalledAt.Time
		rec.CalledAt = &t
	}
	return rec
}

// reconciledRow is the RETURNING projection of the write-back.
type reconciledRow struct {
	ID              sql.NullInt64  `db:"id"`
	TransactionID   sql.NullString `db:"transaction_id"`
	StatusReconcile sql.NullString `db:"status_reconcile"`
	Amount          sql.NullString `db:"amount"`
	APICallerID     sql.NullString `db:"api_caller_id"`
}

func (r reconciledRow) toReconciled() *ReconciledRow {
	out := &ReconciledRow{
		TransactionID:   r.TransactionID.String,
		ReconcileStatus: r.StatusReconcile.String,
		CallerID:        r.APICallerID.String,
	}
	if r.ID.Valid {
		id := r.ID.Int64
		out.ID = &id
	}
	if r.Amount.Valid {
		amount := r.Amount.String
		if d, err := decimal.NewFromString(strings.TrimSpace(amount)); err == nil && d.Exponent() >= -2 {
			amount = d.StringFixed(2)
		}
		out.Amount = &amount
	}
	return out
}
