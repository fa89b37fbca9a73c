package dto

import (
	"time"

	"github.com/eshaffer321/slipcheck/internal/application/reconcile"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// SlipSummary echoes what was read from the extractor fields.
type SlipSummary struct {
	Amount          string `json:"amount"`
	Date            string `json:"date"`
	Time            string `json:"time,omitempty"`
	ReceiverAccount string `json:"receiver_account,omitempty"`
	SenderAccount   string `json:"sender_account,omitempty"`
	SenderName      string `json:"sender_name,omitempty"`
	Bank            string `json:"bank,omitempty"`
	TransactionID   string `json:"transaction_id,omitempty"`
	RecipientName   string `json:"recipient_name,omitempty"`
}

// SlipReconcileResponse pairs the normalised slip with the match result.
type SlipReconcileResponse struct {
	Slip   SlipSummary            `json:"slip"`
	Result *reconcile.MatchResult `json:"result"`
}
