package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dkotenko/paycore/internal/domain"
	"github.com/dkotenko/paycore/internal/service"
)

const recordColumns = `id, user_id, kind, gross::text, fee::text, net::text, status, COALESCE(reference, ''), metadata, created_at, updated_at`

// PostgresLedger stores transaction records in a single Postgres table.
// Durability is the commit; linearizability per record comes from row locks
// inside the status-transition transaction.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger connects to Postgres and verifies the connection.
func NewPostgresLedger(connString string) (*PostgresLedger, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresLedger{pool: pool}, nil
}

func (l *PostgresLedger) Close() {
	l.pool.Close()
}

func (l *PostgresLedger) LogTransaction(ctx context.Context, rec *domain.Transaction) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("transaction id is required")
	}
	if rec.Status != domain.StatusPending {
		return domain.ErrInvalidTransition
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	var ref any
	if rec.Reference != "" {
		ref = rec.Reference
	}

	meta, err := encodeMeta(rec.Metadata)
	if err != nil {
		return err
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, kind, gross, fee, net, status, reference, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11)`,
		rec.ID, rec.UserID, string(rec.Kind),
		rec.Gross.StringFixed(2), rec.Fee.StringFixed(2), rec.Net.StringFixed(2),
		string(rec.Status), ref, meta, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateTransaction
		}
		return fmt.Errorf("transaction insert failed: %w", err)
	}
	return nil
}

func (l *PostgresLedger) GetTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM transactions WHERE user_id = $1 ORDER BY seq ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("transaction query failed: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.Status, meta map[string]string) (domain.Transaction, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("lock acquisition failed: %w", err)
	}

	if !domain.Status(current).CanTransitionTo(next) {
		return domain.Transaction{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, next)
	}

	encoded, err := encodeMeta(meta)
	if err != nil {
		return domain.Transaction{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE transactions
		SET status = $2, updated_at = $3, metadata = metadata || $4::jsonb
		WHERE id = $1
		RETURNING `+recordColumns,
		id, string(next), time.Now().UTC(), encoded)

	rec, err := scanRecord(row)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("status update failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Transaction{}, fmt.Errorf("tx commit failed: %w", err)
	}
	return rec, nil
}

func (l *PostgresLedger) FindByReference(ctx context.Context, ref string) (domain.Transaction, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM transactions WHERE reference = $1`, ref)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transaction{}, domain.ErrNotFound
		}
		return domain.Transaction{}, fmt.Errorf("reference lookup failed: %w", err)
	}
	return rec, nil
}

func (l *PostgresLedger) RegisterReference(ctx context.Context, id uuid.UUID, ref string, meta map[string]string) error {
	if ref == "" {
		return fmt.Errorf("provider reference is required")
	}

	encoded, err := encodeMeta(meta)
	if err != nil {
		return err
	}

	tag, err := l.pool.Exec(ctx, `
		UPDATE transactions SET reference = $2, metadata = metadata || $3::jsonb WHERE id = $1`,
		id, ref, encoded)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateTransaction
		}
		return fmt.Errorf("reference update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ service.Ledger = (*PostgresLedger)(nil)

// encodeMeta serializes a metadata map for a jsonb parameter. A nil map
// becomes an empty object so the jsonb concatenation stays a no-op.
func encodeMeta(meta map[string]string) (string, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

// scanRecord reads one row into a domain record. Monetary columns arrive as
// text so they parse losslessly into decimals.
func scanRecord(row pgx.Row) (domain.Transaction, error) {
	var (
		rec             domain.Transaction
		kind, status    string
		gross, fee, net string
	)
	err := row.Scan(&rec.ID, &rec.UserID, &kind, &gross, &fee, &net,
		&status, &rec.Reference, &rec.Metadata, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.Transaction{}, err
	}

	rec.Kind = domain.Kind(kind)
	rec.Status = domain.Status(status)
	if rec.Gross, err = decimal.NewFromString(gross); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse gross: %w", err)
	}
	if rec.Fee, err = decimal.NewFromString(fee); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse fee: %w", err)
	}
	if rec.Net, err = decimal.NewFromString(net); err != nil {
		return domain.Transaction{}, fmt.Errorf("parse net: %w", err)
	}
	return rec, nil
}
