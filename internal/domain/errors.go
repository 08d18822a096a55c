package domain

import "errors"

var (
	// ErrInvalidAmount rejects non-positive or inconsistent monetary values.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidCards rejects a transfer whose card pair is missing or identical.
	ErrInvalidCards = errors.New("invalid card pair")

	// ErrUnknownKind means the fee table has no entry for the transaction kind.
	ErrUnknownKind = errors.New("unknown transaction kind")

	// ErrDuplicateTransaction means the id (or provider reference) is already registered.
	ErrDuplicateTransaction = errors.New("transaction already exists")

	// ErrNotFound means no record matches the given id or provider reference.
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidTransition means the status change violates the state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
