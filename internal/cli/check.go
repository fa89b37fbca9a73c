package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eshaffer321/slipcheck/internal/application/reconcile"
	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
)

type checkFlags struct {
	amount          string
	date            string
	time            string
	receiver        string
	sender          string
	senderAccount   string
	amountTolerance string
	dateDays        int
	timeMinutes     int
	matchMinutes    int
	limit           int
	autoReconcile   bool
	callerID        string
}

func checkCmd(a *app) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Match one slip against the transaction store",
		Long: `Match one slip against the transaction store and print the result as JSON.

With --auto-reconcile a matched transfer is marked as reconciled. Running the
same check again reports it as already reconciled.`,
		Example: `  slipcheck check --amount 100.00 --date 2025-11-07 --time 13:07 --receiver 6789
  slipcheck check --amount 50 --date 2025-11-07 --sender-account 1234567789 --auto-reconcile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, a, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.amount, "amount", "", "slip amount (required)")
	flags.StringVar(&f.date, "date", "", "transfer date YYYY-MM-DD (required)")
	flags.StringVar(&f.time, "time", "", "transfer time HH:MM[:SS]")
	flags.StringVar(&f.receiver, "receiver", "", "receiver account (any part; the last 4 digits are used)")
	flags.StringVar(&f.sender, "sender", "", "sender name substring")
	flags.StringVar(&f.senderAccount, "sender-account", "", "sender account, may contain X wildcards")
	flags.StringVar(&f.amountTolerance, "amount-tolerance", "", "amount tolerance (default from config, 0.00)")
	flags.IntVar(&f.dateDays, "date-tolerance-days", 0, "days either side of the date (default from config, 1)")
	flags.IntVar(&f.timeMinutes, "time-tolerance-minutes", 0, "retrieval time window in minutes (default from config, 60)")
	flags.IntVar(&f.matchMinutes, "match-time-tolerance-minutes", 0, "match time window in minutes (default from config, 5)")
	flags.IntVar(&f.limit, "limit", 0, "maximum rows retrieved (default from config, 20)")
	flags.BoolVar(&f.autoReconcile, "auto-reconcile", false, "mark the matched transfer as reconciled")
	flags.StringVar(&f.callerID, "caller-id", "", "caller id recorded on write-back (default $API_CALLER_ID)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("date")

	return cmd
}

func runCheck(cmd *cobra.Command, a *app, f *checkFlags) error {
	q, err := f.query(cmd, a)
	if err != nil {
		return err
	}
	// Reject bad input before touching the store.
	if err := q.Validate(); err != nil {
		return err
	}

	opts := reconcile.Options{
		AutoReconcile: a.cfg.Reconcile.AutoReconcile,
		CallerID:      a.cfg.Reconcile.CallerID,
	}
	if cmd.Flags().Changed("auto-reconcile") {
		opts.AutoReconcile = f.autoReconcile
	}
	if f.callerID != "" {
		opts.CallerID = f.callerID
	}

	// Store failures are reported inside the result, not as an exit error.
	store, logger, err := a.connect("reconcile")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := reconcile.NewReconciler(store, logger).Reconcile(cmd.Context(), q, opts)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func (f *checkFlags) query(cmd *cobra.Command, a *app) (transaction.SlipQuery, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(f.amount))
	if err != nil {
		return transaction.SlipQuery{}, fmt.Errorf("%w: --amount %q is not a decimal number", transaction.ErrInvalidQuery, f.amount)
	}
	date, err := transaction.ParseDate(f.date)
	if err != nil {
		return transaction.SlipQuery{}, fmt.Errorf("%w: --date %q must be YYYY-MM-DD", transaction.ErrInvalidQuery, f.date)
	}

	tol, err := a.cfg.Matching.Tolerances()
	if err != nil {
		return transaction.SlipQuery{}, err
	}
	changed := cmd.Flags().Changed
	if changed("amount-tolerance") {
		d, err := decimal.NewFromString(strings.TrimSpace(f.amountTolerance))
		if err != nil {
			return transaction.SlipQuery{}, fmt.Errorf("%w: --amount-tolerance %q is not a decimal number", transaction.ErrInvalidQuery, f.amountTolerance)
		}
		tol.Amount = d
	}
	if changed("date-tolerance-days") {
		tol.DateDays = f.dateDays
	}
	if changed("time-tolerance-minutes") {
		tol.TimeMinutes = f.timeMinutes
	}
	if changed("match-time-tolerance-minutes") {
		tol.MatchTimeMinutes = f.matchMinutes
	}

	q := transaction.SlipQuery{
		Amount:          amount,
		TransferDate:    date,
		ReceiverAccount: strings.TrimSpace(f.receiver),
		SenderAccount:   strings.TrimSpace(f.senderAccount),
		SenderName:      strings.TrimSpace(f.sender),
		Tolerances:      tol,
		Limit:           a.cfg.Matching.Limit,
	}
	if changed("limit") {
		q.Limit = f.limit
	}
	if strings.TrimSpace(f.time) != "" {
		tod, err := transaction.ParseTimeOfDay(f.time)
		if err != nil {
			return transaction.SlipQuery{}, fmt.Errorf("%w: --time %q must be HH:MM[:SS]", transaction.ErrInvalidQuery, f.time)
		}
		q.TransferTime = &tod
	}
	return q, nil
}
