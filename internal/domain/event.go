package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger event types.
const (
	EventInternalTransferCompleted = "transfer.internal.completed"
	EventOutboundSettled           = "settlement.outbound.completed"
	EventInboundSettled            = "settlement.inbound.completed"
	// EventOutboundUnconfirmed marks an external leg whose outcome on the two ledgers may differ.
	EventOutboundUnconfirmed = "settlement.outbound.unconfirmed"
)

// LedgerEvent is published after a ledger change is committed.
type LedgerEvent struct {
	Type           string          `json:"type"`
	AccountID      int32           `json:"account_id"`
	EntryIDs       []int64         `json:"entry_ids,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Counterparty   string          `json:"counterparty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}
