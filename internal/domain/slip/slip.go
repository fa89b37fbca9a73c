package slip

import (
	"fmt"
	"strings"

	"github.com/eshaffer321/slipcheck/internal/domain/transaction"
)

// Field names emitted by slip extractors.
const (
	FieldAmount           = "amount"
	FieldDate             = "date"
	FieldTime             = "time"
	FieldRecipientAccount = "recipient_account"
	FieldSenderAccount    = "sender_account"
	FieldSenderName       = "sender_name"
	FieldRecipientName    = "recipient_name"
	FieldBank             = "bank"
	FieldTransactionID    = "transaction_id"
)

// Extractors disagree on a few key names.
var aliases = map[string][]string{
	FieldRecipientAccount: {"account", "to_account"},
	FieldTransactionID:    {"ref"},
}

// Slip is a normalised extractor result. Query drives reconciliation; the
// remaining fields are advisory and never used for matching.
type Slip struct {
	Query         transaction.SlipQuery `json:"-"`
	Bank          string                `json:"bank,omitempty"`
	TransactionID string                `json:"transaction_id,omitempty"`
	RecipientName string                `json:"recipient_name,omitempty"`
}

func lookup(fields map[string]string, key string) string {
	if v := strings.TrimSpace(fields[key]); v != "" {
		return v
	}
	for _, alt := range aliases[key] {
		if v := strings.TrimSpace(fields[alt]); v != "" {
			return v
		}
	}
	return ""
}

// Normalize builds a validated query from an extractor field map. Amount
// and date are required. A separate time field overrides the clock part
// of the date field.
func Normalize(fields map[string]string, tol transaction.Tolerances) (*Slip, error) {
	rawAmount := lookup(fields, FieldAmount)
	if rawAmount == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, FieldAmount)
	}
	rawDate := lookup(fields, FieldDate)
	if rawDate == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, FieldDate)
	}

	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	date, tod, err := ParseDateTime(rawDate)
	if err != nil {
		return nil, err
	}
	if rawTime := lookup(fields, FieldTime); rawTime != "" {
		t, err := ParseTime(rawTime)
		if err != nil {
			return nil, err
		}
		tod = &t
	}

	s := &Slip{
		Query: transaction.SlipQuery{
			Amount:          amount,
			TransferDate:    date,
			TransferTime:    tod,
			ReceiverAccount: lookup(fields, FieldRecipientAccount),
			SenderAccount:   lookup(fields, FieldSenderAccount),
			SenderName:      CleanName(lookup(fields, FieldSenderName)),
			Tolerances:      tol,
		},
		Bank:          NormalizeBank(lookup(fields, FieldBank)),
		TransactionID: lookup(fields, FieldTransactionID),
		RecipientName: CleanName(lookup(fields, FieldRecipientName)),
	}
	if err := s.Query.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
