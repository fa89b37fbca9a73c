package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eshaffer321/slipcheck/internal/domain/account"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
	"github.com/jmoiron/sqlx"
)

// session is one pooled connection reserved for a reconciliation call.
type session struct {
	conn       *sqlx.Conn
	driverName string
	timeout    time.Duration
	logger     *slog.Logger
}

var _ Session = (*session)(nil)

func (s *session) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(s.driverName), query)
}

// Close returns the connection to the pool.
func (s *session) Close() error {
	return s.conn.Close()
}

// FindCandidates runs the loose lookup. Amount and date bound the query;
// account and name filters are substring prefilters so the strict checks
// downstream never lose a true match.
func (s *session) FindCandidates(ctx context.Context, q transaction.SlipQuery) ([]transaction.Candidate, error) {
	query, args := buildCandidateQuery(q)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.conn.QueryxContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []transaction.Record
	for rows.Next() {
		var row transactionRow
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		rec := row.toRecord()
		if len(rec.Defects) > 0 {
			s.logger.Warn("stored values could not be parsed", "id", row.ID.Int64, "fields", rec.InvalidFields())
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	candidates := transaction.PrepareCandidates(records, q)
	s.logger.Debug("candidates retrieved", "rows", len(records), "kept", len(candidates))
	return candidates, nil
}

func buildCandidateQuery(q transaction.SlipQuery) (string, []any) {
	var where []string
	var args []any

	lo, hi, exact := q.AmountRange()
	if exact {
		where = append(where, "amount = ?")
		args = append(args, q.Amount.String())
	} else {
		where = append(where, "amount BETWEEN ? AND ?")
		args = append(args, lo.String(), hi.String())
	}

	from, to := q.DateRange()
	where = append(where, "transfer_date BETWEEN ? AND ?")
	args = append(args, from.Format(time.DateOnly), to.Format(time.DateOnly))

	if q.ReceiverAccount != "" {
		where = append(where, `receiver_account_number LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(accountNeedle(q.ReceiverAccount)))
	}
	if q.SenderAccount != "" {
		p := containsPattern(accountNeedle(q.SenderAccount))
		where = append(where, `(sender_account_number LIKE ? ESCAPE '\' OR sender_account LIKE ? ESCAPE '\')`)
		args = append(args, p, p)
	}
	if q.SenderName != "" {
		where = append(where, `LOWER(sender_name) LIKE LOWER(?) ESCAPE '\'`)
		args = append(args, containsPattern(strings.TrimSpace(q.SenderName)))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = transaction.DefaultLimit
	}
	args = append(args, limit)

	query := `SELECT ` + transactionColumns + `
	FROM bank_incoming_transaction
	WHERE ` + strings.Join(where, "\n\t  AND ") + `
	ORDER BY transfer_date DESC, api_called_at DESC NULLS LAST, id DESC
	LIMIT ?`
	return query, args
}

// accountNeedle is the last 4 digits of s, or s itself when it carries fewer
// than 3 digits.
func accountNeedle(s string) string {
	if len(account.Digits(s)) < 3 {
		return strings.TrimSpace(s)
	}
	return account.LastDigits(s, account.DefaultSuffixLength)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

const markReconciledSQL = `
	UPDATE bank_incoming_transaction
	SET status_reconcile = ?, api_caller_id = ?,
	    api_called_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
	WHERE %s
	  AND (status_reconcile IS NULL OR TRIM(status_reconcile) = '')
	RETURNING id, transaction_id, status_reconcile, amount, api_caller_id`

const currentRowSQL = `
	SELECT id, transaction_id, status_reconcile, amount, api_caller_id
	FROM bank_incoming_transaction
	WHERE %s`

// keyClause addresses exactly one row. A transaction_id key resolves to the
// lowest id carrying it.
func keyClause(key RecordKey) (string, any, error) {
	if key.ID != nil {
		return "id = ?", *key.ID, nil
	}
	if key.TransactionID != "" {
		return "id = (SELECT MIN(id) FROM bank_incoming_transaction WHERE transaction_id = ?)", key.TransactionID, nil
	}
	return "", nil, ErrNoIdentity
}

// MarkReconciled settles one row with a single conditional UPDATE that only
// touches an unset status, so two concurrent calls cannot both settle it and
// other store statuses are never overwritten. When nothing was updated the row
// is re-read in the same transaction to tell a lost race, a foreign status and
// a missing row apart.
func (s *session) MarkReconciled(ctx context.Context, key RecordKey, callerID string) (*WriteResult, error) {
	where, keyArg, err := keyClause(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin write-back: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	update := s.rebind(fmt.Sprintf(markReconciledSQL, where))

	var updated reconciledRow
	err = tx.QueryRowxContext(ctx, update, transaction.ReconciledMarker, callerID, keyArg).StructScan(&updated)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit write-back: %w", err)
		}
		committed = true
		s.logger.Info("transaction reconciled", "id", updated.ID.Int64, "caller_id", callerID)
		return &WriteResult{Updated: true, Row: updated.toReconciled()}, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("update reconcile status: %w", err)
	}

	var current reconciledRow
	err = tx.QueryRowxContext(ctx, s.rebind(fmt.Sprintf(currentRowSQL, where)), keyArg).StructScan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return &WriteResult{}, nil
	case err != nil:
		return nil, fmt.Errorf("re-read row after empty update: %w", err)
	}

	settled := transaction.IsSettled(current.StatusReconcile.String)
	return &WriteResult{
		AlreadySettled: settled,
		StatusConflict: !settled,
		Row:            current.toReconciled(),
	}, nil
}
