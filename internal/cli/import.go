package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
)

// ErrBadCSV is returned when an import file cannot be read as transfers.
var ErrBadCSV = errors.New("invalid transfer CSV")

// Import columns, named after the store columns.
const (
	colTransactionID = "transaction_id"
	colAmount        = "amount"
	colDate          = "transfer_date"
	colTime          = "transfer_time"
	colSenderAccount = "sender_account_number"
	colSenderAlt     = "sender_account"
	colReceiver      = "receiver_account_number"
	colSenderName    = "sender_name"
	colStatus        = "status_reconcile"
)

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Load incoming transfers from a CSV file into the store",
		Long: `Load incoming transfers from a CSV file with a header row.

Required columns: amount, transfer_date (YYYY-MM-DD).
Optional columns: transaction_id, transfer_time, sender_account_number,
sender_account, receiver_account_number, sender_name, status_reconcile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			records, err := readTransfers(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			store, logger, err := a.open(cmd.Context(), "import")
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ids, err := store.InsertAll(cmd.Context(), records)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			var firstID, lastID int64
			if len(ids) > 0 {
				firstID, lastID = ids[0], ids[len(ids)-1]
			}
			logger.Info("Import finished", "file", args[0], "rows", len(records))
			printImportSummary(cmd.OutOrStdout(), args[0], len(records), firstID, lastID)
			return nil
		},
	}
}

// readTransfers parses every row before anything is written. Rows are then
// inserted in one transaction, so a bad file imports nothing.
func readTransfers(r io.Reader) ([]transaction.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCSV, err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{colAmount, colDate} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrBadCSV, required)
		}
	}

	var out []transaction.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCSV, err)
		}
		get := func(col string) string {
			if i, ok := index[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		rec, err := parseTransfer(get)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadCSV, line, err)
		}
		out = append(out, rec)
	}
}

func parseTransfer(get func(string) string) (transaction.Record, error) {
	rec := transaction.Record{
		TransactionID:    get(colTransactionID),
		SenderAccount:    get(colSenderAccount),
		SenderAccountAlt: get(colSenderAlt),
		ReceiverAccount:  get(colReceiver),
		SenderName:       get(colSenderName),
		ReconcileStatus:  get(colStatus),
	}

	if s := get(colAmount); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return rec, fmt.Errorf("amount %q", s)
		}
		rec.Amount = decimal.NewNullDecimal(d)
	}

	date, err := transaction.ParseDate(get(colDate))
	if err != nil {
		return rec, fmt.Errorf("transfer_date %q", get(colDate))
	}
	rec.TransferDate = date

	if s := get(colTime); s != "" {
		tod, err := transaction.ParseTimeOfDay(s)
		if err != nil {
			return rec, fmt.Errorf("transfer_time %q", s)
		}
		rec.TransferTime = &tod
	}
	return rec, nil
}
