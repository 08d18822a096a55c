package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkotenko/paycore/internal/provider"
)

// Balance sums net over completed records only; pending, failed and
// cancelled contribute zero.
func TestGetUserBalance(t *testing.T) {
	cards := &fakeCardNetwork{result: provider.TransferResult{TransferID: "tr_1", Status: "paid"}}
	gateway := &fakeGateway{intent: provider.PaymentIntent{ID: "pi_1", Status: "requires_payment_method"}}
	p, _ := newTestPayments(t, cards, gateway)
	ctx := context.Background()

	// Completed transfer: net 98.00.
	_, err := p.CreateTransaction(ctx, "card_1", "card_2", decimal.RequireFromString("100.00"), "user_001")
	require.NoError(t, err)

	// Pending deposit: contributes nothing yet.
	_, err = p.DepositViaStripe(ctx, "user_001", decimal.RequireFromString("50.00"), "", "")
	require.NoError(t, err)

	// Failed transfer: contributes nothing.
	cards.err = errors.New("card network: declined")
	_, err = p.CreateTransaction(ctx, "card_1", "card_2", decimal.RequireFromString("40.00"), "user_001")
	require.NoError(t, err)
	cards.err = nil

	balance, err := p.GetUserBalance(ctx, "user_001")
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString("98.00")), "balance = %s", balance.Balance)

	// Settling the deposit adds its net 48.25.
	gateway.intent.Status = "succeeded"
	_, err = p.ConfirmStripePayment(ctx, "pi_1")
	require.NoError(t, err)

	balance, err = p.GetUserBalance(ctx, "user_001")
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(decimal.RequireFromString("146.25")), "balance = %s", balance.Balance)
	assert.False(t, balance.AsOf.IsZero())
}

func TestGetUserBalanceEmptyHistory(t *testing.T) {
	p, _ := newTestPayments(t, &fakeCardNetwork{}, &fakeGateway{})

	balance, err := p.GetUserBalance(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, balance.Balance.IsZero())
	assert.False(t, balance.AsOf.IsZero())
}

func TestGetUserBalanceAsOfTracksLatestTransition(t *testing.T) {
	cards := &fakeCardNetwork{result: provider.TransferResult{TransferID: "tr_1", Status: "paid"}}
	p, l := newTestPayments(t, cards, &fakeGateway{})
	ctx := context.Background()

	_, err := p.CreateTransaction(ctx, "card_1", "card_2", decimal.RequireFromString("10.00"), "user_001")
	require.NoError(t, err)

	records, err := l.GetTransactions(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, records, 1)

	balance, err := p.GetUserBalance(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, records[0].UpdatedAt, balance.AsOf)
}

func TestGetUserStats(t *testing.T) {
	cards := &fakeCardNetwork{result: provider.TransferResult{TransferID: "tr_1", Status: "paid"}}
	gateway := &fakeGateway{intent: provider.PaymentIntent{ID: "pi_1", Status: "requires_payment_method"}}
	p, _ := newTestPayments(t, cards, gateway)
	ctx := context.Background()

	_, err := p.CreateTransaction(ctx, "card_1", "card_2", decimal.RequireFromString("100.00"), "user_001")
	require.NoError(t, err)

	cards.err = errors.New("card network: declined")
	_, err = p.CreateTransaction(ctx, "card_1", "card_2", decimal.RequireFromString("60.00"), "user_001")
	require.NoError(t, err)
	cards.err = nil

	_, err = p.DepositViaStripe(ctx, "user_001", decimal.RequireFromString("40.00"), "", "")
	require.NoError(t, err)

	stats, err := p.GetUserStats(ctx, "user_001")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 0, stats.Cancelled)
	assert.InDelta(t, 100.0/3.0, stats.SuccessRate, 0.01)
	assert.True(t, stats.GrossTotal.Equal(decimal.RequireFromString("200.00")), "gross total = %s", stats.GrossTotal)
	assert.True(t, stats.AverageGross.Equal(decimal.RequireFromString("66.67")), "average = %s", stats.AverageGross)
}

func TestGetUserStatsEmpty(t *testing.T) {
	p, _ := newTestPayments(t, &fakeCardNetwork{}, &fakeGateway{})

	stats, err := p.GetUserStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.SuccessRate)
	assert.True(t, stats.GrossTotal.IsZero())
}
