// Package service implements the payment orchestrator: it coordinates fee
// computation, ledger writes and external provider calls, and derives user
// balances from the recorded history.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkotenko/paycore/internal/domain"
	"github.com/dkotenko/paycore/internal/provider"
)

// Ledger is the durable transaction store the orchestrator writes through.
// Implementations must make every successful mutation durable before
// returning, and must never expose a record mid-write to readers.
type Ledger interface {
	LogTransaction(ctx context.Context, rec *domain.Transaction) error
	GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next domain.Status, meta map[string]string) (domain.Transaction, error)
	FindByReference(ctx context.Context, ref string) (domain.Transaction, error)
	RegisterReference(ctx context.Context, id uuid.UUID, ref string, meta map[string]string) error
}

// Result is the structured outcome returned for every payment operation.
// Business failures (provider rejection, transport errors) land here with
// Success=false; they are never surfaced as Go errors.
type Result struct {
	Success       bool              `json:"success"`
	TransactionID uuid.UUID         `json:"transaction_id"`
	Error         string            `json:"error,omitempty"`
	Data          map[string]string `json:"data,omitempty"`
}

// Payments orchestrates transaction creation against the ledger and the
// external providers. It never mutates a record directly; all status writes
// go through the ledger.
type Payments struct {
	ledger  Ledger
	cards   provider.CardNetwork
	gateway provider.Gateway
	log     *slog.Logger
}

func NewPayments(ledger Ledger, cards provider.CardNetwork, gateway provider.Gateway, log *slog.Logger) *Payments {
	if log == nil {
		log = slog.Default()
	}
	return &Payments{ledger: ledger, cards: cards, gateway: gateway, log: log}
}

// CreateTransaction executes a peer-to-peer card transfer. The pending
// record is committed before the network call, and the record always
// reaches a terminal state: completed on provider success, failed on
// provider rejection or transport error. The provider call is made at most
// once; retry policy belongs to the caller.
func (p *Payments) CreateTransaction(ctx context.Context, fromCard, toCard string, amount decimal.Decimal, userID string) (Result, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Result{}, domain.ErrInvalidAmount
	}
	if fromCard == "" || toCard == "" || fromCard == toCard {
		return Result{}, domain.ErrInvalidCards
	}

	rec, err := domain.NewTransaction(userID, domain.KindCardTransfer, amount)
	if err != nil {
		return Result{}, err
	}
	if err := p.ledger.LogTransaction(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("log transaction: %w", err)
	}

	// Provider I/O happens outside any ledger critical section. The
	// idempotency key is derived from the transaction id so a caller-side
	// retry cannot execute the transfer twice.
	transfer, callErr := p.cards.CreateTransfer(ctx, fromCard, toCard, toCents(rec.Gross), rec.ID.String())
	if callErr != nil {
		p.log.Warn("card transfer failed", "transaction_id", rec.ID, "error", callErr)
		if _, err := p.ledger.UpdateStatus(ctx, rec.ID, domain.StatusFailed, map[string]string{"error": callErr.Error()}); err != nil {
			return Result{}, fmt.Errorf("record transfer failure: %w", err)
		}
		return Result{Success: false, TransactionID: rec.ID, Error: callErr.Error()}, nil
	}

	meta := map[string]string{
		"transfer_id":     transfer.TransferID,
		"transfer_status": transfer.Status,
	}
	if _, err := p.ledger.UpdateStatus(ctx, rec.ID, domain.StatusCompleted, meta); err != nil {
		return Result{}, fmt.Errorf("record transfer success: %w", err)
	}

	p.log.Info("card transfer completed", "transaction_id", rec.ID, "user_id", userID, "gross", rec.Gross)
	return Result{Success: true, TransactionID: rec.ID, Data: meta}, nil
}

// DepositViaStripe starts an externally settled deposit. A checkout session
// is created when both redirect URLs are present, a payment intent
// otherwise. The record stays pending; settlement is asynchronous and is
// resolved by ConfirmStripePayment. A gateway failure marks the record
// failed.
func (p *Payments) DepositViaStripe(ctx context.Context, userID string, amount decimal.Decimal, successURL, cancelURL string) (Result, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return Result{}, domain.ErrInvalidAmount
	}

	rec, err := domain.NewTransaction(userID, domain.KindStripeDeposit, amount)
	if err != nil {
		return Result{}, err
	}
	if err := p.ledger.LogTransaction(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("log transaction: %w", err)
	}

	var (
		ref  string
		meta map[string]string
	)
	if successURL != "" && cancelURL != "" {
		session, callErr := p.gateway.CreateCheckoutSession(ctx, toCents(rec.Gross), successURL, cancelURL, map[string]string{
			"user_id":        userID,
			"transaction_id": rec.ID.String(),
		})
		if callErr != nil {
			return p.failDeposit(ctx, rec.ID, callErr)
		}
		ref = session.ID
		meta = map[string]string{"checkout_session_id": session.ID, "checkout_url": session.URL}
	} else {
		intent, callErr := p.gateway.CreatePaymentIntent(ctx, toCents(rec.Gross), "usd", map[string]string{
			"user_id":        userID,
			"transaction_id": rec.ID.String(),
		})
		if callErr != nil {
			return p.failDeposit(ctx, rec.ID, callErr)
		}
		ref = intent.ID
		meta = map[string]string{"payment_intent_id": intent.ID, "client_secret": intent.ClientSecret}
	}

	if err := p.ledger.RegisterReference(ctx, rec.ID, ref, meta); err != nil {
		return Result{}, fmt.Errorf("register provider reference: %w", err)
	}

	p.log.Info("deposit created", "transaction_id", rec.ID, "user_id", userID, "reference", ref)
	return Result{Success: true, TransactionID: rec.ID, Data: meta}, nil
}

func (p *Payments) failDeposit(ctx context.Context, id uuid.UUID, callErr error) (Result, error) {
	p.log.Warn("deposit creation failed", "transaction_id", id, "error", callErr)
	if _, err := p.ledger.UpdateStatus(ctx, id, domain.StatusFailed, map[string]string{"error": callErr.Error()}); err != nil {
		return Result{}, fmt.Errorf("record deposit failure: %w", err)
	}
	return Result{Success: false, TransactionID: id, Error: callErr.Error()}, nil
}

// ConfirmStripePayment resolves a pending deposit against the gateway's
// final answer: succeeded completes the record, canceled fails it, and any
// in-flight status leaves it pending with a structured failure result.
func (p *Payments) ConfirmStripePayment(ctx context.Context, paymentIntentID string) (Result, error) {
	rec, err := p.ledger.FindByReference(ctx, paymentIntentID)
	if err != nil {
		return Result{}, err
	}
	if rec.Status != domain.StatusPending {
		return Result{}, fmt.Errorf("%w: %s is not pending", domain.ErrNotFound, rec.ID)
	}

	intent, callErr := p.gateway.RetrievePaymentIntent(ctx, paymentIntentID)
	if callErr != nil {
		return Result{Success: false, TransactionID: rec.ID, Error: callErr.Error()}, nil
	}

	meta := map[string]string{"payment_intent_status": intent.Status}
	switch intent.Status {
	case "succeeded":
		updated, err := p.ledger.UpdateStatus(ctx, rec.ID, domain.StatusCompleted, meta)
		if err != nil {
			return Result{}, err
		}
		p.log.Info("deposit confirmed", "transaction_id", updated.ID, "user_id", updated.UserID)
		return Result{Success: true, TransactionID: updated.ID, Data: meta}, nil
	case "canceled":
		if _, err := p.ledger.UpdateStatus(ctx, rec.ID, domain.StatusFailed, meta); err != nil {
			return Result{}, err
		}
		return Result{Success: false, TransactionID: rec.ID, Error: "payment was canceled"}, nil
	default:
		return Result{Success: false, TransactionID: rec.ID, Error: fmt.Sprintf("payment not finalized: %s", intent.Status)}, nil
	}
}

// CancelTransaction abandons a pending record at the caller's request.
func (p *Payments) CancelTransaction(ctx context.Context, id uuid.UUID) (Result, error) {
	updated, err := p.ledger.UpdateStatus(ctx, id, domain.StatusCancelled, nil)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, TransactionID: updated.ID}, nil
}

// GetUserTransactions returns the user's full history in insertion order.
func (p *Payments) GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return p.ledger.GetTransactions(ctx, userID)
}

// toCents converts a 2-decimal amount into minor units for the wire.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}
