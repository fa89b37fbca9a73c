package dto

// ToleranceParams overrides the server's matching defaults. Nil fields keep
// the default.
type ToleranceParams struct {
	AmountTolerance           *string `json:"amount_tolerance,omitempty"`
	DateToleranceDays         *int    `json:"date_tolerance_days,omitempty"`
	TimeToleranceMinutes      *int    `json:"time_tolerance_minutes,omitempty"`
	MatchTimeToleranceMinutes *int    `json:"match_time_tolerance_minutes,omitempty"`
	Limit                     int     `json:"limit,omitempty"`
	AutoReconcile             *bool   `json:"auto_reconcile,omitempty"`
	CallerID                  string  `json:"caller_id,omitempty"`
}

// ReconcileRequest is the body of POST /api/reconcile. Values are text so
// amounts keep their exact decimal form.
type ReconcileRequest struct {
	Amount          string `json:"amount"`
	Date            string `json:"date"`           // YYYY-MM-DD
	Time            string `json:"time,omitempty"` // HH:MM[:SS]
	ReceiverAccount string `json:"receiver_account,omitempty"`
	SenderAccount   string `json:"sender_account,omitempty"`
	SenderName      string `json:"sender_name,omitempty"`

	ToleranceParams
}

// SlipReconcileRequest is the body of POST /api/slips/reconcile. Fields is
// the raw extractor output, e.g. {"amount": "1,000.00 บาท", "date": "7 พ.ย. 68 13:05"}.
type SlipReconcileRequest struct {
	Fields map[string]string `json:"fields"`

	ToleranceParams
}
