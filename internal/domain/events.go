package domain

import "time"

// Event types
const (
	EventTypeCardCreated          = "card.created"
	EventTypeCardBlocked          = "card.blocked"
	EventTypeCardUnblocked        = "card.unblocked"
	EventTypeCardExpired          = "card.expired"
	EventTypeTransactionCompleted = "transaction.completed"
	EventTypeTransactionFailed    = "transaction.failed"
)

// Aggregate types
const (
	AggregateTypeCard        = "card"
	AggregateTypeTransaction = "transaction"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewCardEvent builds the outbox event for a card lifecycle change. The
// payload carries the masked number only.
func NewCardEvent(id, eventType string, card *Card, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   card.ID,
		AggregateType: AggregateTypeCard,
		EventType:     eventType,
		Payload: map[string]any{
			"card_id":       card.ID,
			"owner_id":      card.OwnerID,
			"masked_number": card.MaskedNumber(),
			"status":        string(card.Status),
			"balance":       card.Balance.StringFixed(2),
		},
		CreatedAt: at,
	}
}

// NewTransactionEvent builds the outbox event for a recorded transaction.
func NewTransactionEvent(id string, txn *Transaction, ownerID string) *OutboxEvent {
	eventType := EventTypeTransactionCompleted
	if txn.Status == TransactionStatusFailed {
		eventType = EventTypeTransactionFailed
	}

	payload := map[string]any{
		"transaction_id": txn.ID,
		"card_id":        txn.CardID,
		"owner_id":       ownerID,
		"type":           string(txn.Type),
		"amount":         txn.Amount.StringFixed(2),
		"status":         string(txn.Status),
		"reference":      txn.Reference,
	}
	if txn.BalanceAfter != nil {
		payload["balance_after"] = txn.BalanceAfter.StringFixed(2)
	}

	return &OutboxEvent{
		ID:            id,
		AggregateID:   txn.ID,
		AggregateType: AggregateTypeTransaction,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     txn.CreatedAt,
	}
}
