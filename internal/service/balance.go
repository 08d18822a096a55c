package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkotenko/paycore/internal/domain"
)

// Balance is a user's derived balance: the sum of net amounts over
// completed records. AsOf is the latest status-transition time among the
// summed records.
type Balance struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	AsOf    time.Time       `json:"as_of"`
}

// Stats summarizes a user's payment history.
type Stats struct {
	UserID       string          `json:"user_id"`
	Total        int             `json:"total_transactions"`
	Completed    int             `json:"completed_transactions"`
	Failed       int             `json:"failed_transactions"`
	Pending      int             `json:"pending_transactions"`
	Cancelled    int             `json:"cancelled_transactions"`
	SuccessRate  float64         `json:"success_rate"`
	GrossTotal   decimal.Decimal `json:"gross_total"`
	AverageGross decimal.Decimal `json:"average_gross"`
}

// GetUserBalance derives the balance from the ledger. All recorded amounts
// are credits to the owning user; only completed records contribute.
// Pending, failed and cancelled records contribute zero.
func (p *Payments) GetUserBalance(ctx context.Context, userID string) (Balance, error) {
	records, err := p.ledger.GetTransactions(ctx, userID)
	if err != nil {
		return Balance{}, err
	}

	balance := Balance{UserID: userID, Balance: decimal.Zero}
	var latestCreated time.Time
	for _, rec := range records {
		if rec.CreatedAt.After(latestCreated) {
			latestCreated = rec.CreatedAt
		}
		if rec.Status != domain.StatusCompleted {
			continue
		}
		balance.Balance = balance.Balance.Add(rec.Net)
		if rec.UpdatedAt.After(balance.AsOf) {
			balance.AsOf = rec.UpdatedAt
		}
	}

	if balance.AsOf.IsZero() {
		// No completed records yet: fall back to the newest record's
		// creation time, or the query time for an empty history.
		balance.AsOf = latestCreated
		if balance.AsOf.IsZero() {
			balance.AsOf = time.Now().UTC()
		}
	}
	return balance, nil
}

// GetUserStats aggregates per-status counts and gross totals.
func (p *Payments) GetUserStats(ctx context.Context, userID string) (Stats, error) {
	records, err := p.ledger.GetTransactions(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		UserID:       userID,
		GrossTotal:   decimal.Zero,
		AverageGross: decimal.Zero,
	}
	for _, rec := range records {
		stats.Total++
		stats.GrossTotal = stats.GrossTotal.Add(rec.Gross)
		switch rec.Status {
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}

	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Completed) / float64(stats.Total) * 100
		stats.AverageGross = stats.GrossTotal.DivRound(decimal.NewFromInt(int64(stats.Total)), 2)
	}
	return stats, nil
}
