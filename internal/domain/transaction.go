package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies the origin of a transaction.
type Kind string

const (
	KindCardTransfer  Kind = "card_transfer"
	KindStripeDeposit Kind = "stripe_deposit"
)

// Status is a transaction's position in its lifecycle. Pending is the only
// initial state; completed, failed and cancelled are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	case StatusPending:
		return false
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next. Terminal states permit nothing, not even a same-state no-op.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	case StatusCompleted, StatusFailed, StatusCancelled:
		return false
	}
	return false
}

// Transaction is one row of the ledger's audit trail. ID, UserID, Kind and
// the monetary fields are immutable after creation; only Status and
// UpdatedAt change, and only through the ledger.
type Transaction struct {
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"user_id"`
	Kind      Kind              `json:"kind"`
	Gross     decimal.Decimal   `json:"gross"`
	Fee       decimal.Decimal   `json:"fee"`
	Net       decimal.Decimal   `json:"net"`
	Status    Status            `json:"status"`
	Reference string            `json:"reference,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewTransaction builds a pending record with the fee for kind applied and
// a fresh id assigned. Amounts are normalized to 2 decimal places.
func NewTransaction(userID string, kind Kind, gross decimal.Decimal) (*Transaction, error) {
	fee, err := FeeFor(kind, gross)
	if err != nil {
		return nil, err
	}

	gross = gross.Round(2)
	now := time.Now().UTC()
	return &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Gross:     gross,
		Fee:       fee,
		Net:       gross.Sub(fee),
		Status:    StatusPending,
		Metadata:  map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks the monetary invariants of a record before it is admitted
// to the ledger.
func (t *Transaction) Validate() error {
	if t.Gross.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if t.Fee.IsNegative() {
		return ErrInvalidAmount
	}
	if !t.Net.Equal(t.Gross.Sub(t.Fee)) {
		return ErrInvalidAmount
	}
	switch t.Kind {
	case KindCardTransfer, KindStripeDeposit:
	default:
		return ErrUnknownKind
	}
	return nil
}
