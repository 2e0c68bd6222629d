package domain

import "errors"

var (
	// ErrUnknownRecipient indicates that an inbound settlement names no local account.
	ErrUnknownRecipient = errors.New("does not exist!")
	// ErrMalformedRequest indicates an inbound settlement that cannot be parsed.
	ErrMalformedRequest = errors.New("malformed settlement request")
)

// SettlementRequest is sent by one institution to another's receive endpoint.
//
// IdempotencyKey is informational: receivers log it but do not deduplicate on it.
type SettlementRequest struct {
	InstitutionName string `json:"institution_name"`
	SenderName      string `json:"sender_name"`
	SenderEmail     string `json:"sender_email"`
	RecipientEmail  string `json:"recipient_email"`
	Amount          string `json:"amount"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

// SettlementAck confirms the credited recipient on the receiving institution.
type SettlementAck struct {
	RecipientName  string `json:"recipient_name"`
	RecipientEmail string `json:"recipient_email"`
	Bank           string `json:"bank"`
}

// Confirmed reports whether the acknowledgment names a recipient and institution.
func (a SettlementAck) Confirmed() bool {
	return a.RecipientName != "" && a.RecipientEmail != "" && a.Bank != ""
}
