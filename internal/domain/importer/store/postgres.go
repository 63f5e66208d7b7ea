// Package store implements the pipeline's two external collaborators on
// PostgreSQL: the existing-transactions lookup used by duplicate
// detection and the transaction writer used by the commit executor. The
// schema itself is owned by the surrounding system; this package only
// issues queries against it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

var ErrAccountNotFound = errors.New("account not found")

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it
// in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore talks to the external transaction store.
type PostgresStore struct {
	db DB
}

// NewPostgresStore wraps a pgx pool (or compatible).
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListByAccountAndDateRange returns the account's transactions inside the
// window, ordered deterministically. Amounts are stored as minor units
// and converted back to decimals here.
func (s *PostgresStore) ListByAccountAndDateRange(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]importer.ExistingTransaction, error) {
	query := `
		SELECT id, account_id, occurred_on, amount_minor, currency_code, description
		FROM transactions
		WHERE account_id = $1 AND occurred_on BETWEEN $2 AND $3
		ORDER BY occurred_on, id`

	rows, err := s.db.Query(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []importer.ExistingTransaction
	for rows.Next() {
		var (
			tx          importer.ExistingTransaction
			amountMinor int64
			currency    string
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Date, &amountMinor, &currency, &tx.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount = money.FromMinorUnits(amountMinor, currency)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return txs, nil
}

// CreateTransaction writes one committed row. The content-derived
// idempotency key is stored alongside so a stricter deployment can
// de-duplicate retried commits.
func (s *PostgresStore) CreateTransaction(ctx context.Context, tx *importer.NewTransaction) (uuid.UUID, error) {
	query := `
		INSERT INTO transactions
			(id, account_id, occurred_on, amount_minor, currency_code, direction,
			 description, reference, counterparty, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	id := uuid.New()
	_, err := s.db.Exec(ctx, query,
		id,
		tx.AccountID,
		tx.Date,
		money.MinorUnits(tx.Amount, tx.CurrencyCode),
		tx.CurrencyCode,
		tx.Direction.String(),
		tx.Description,
		tx.Reference,
		tx.Counterparty,
		tx.Status,
		tx.IdempotencyKey,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return id, nil
}

// GetAccountCurrency resolves the selected account's currency code for
// the validator's mismatch check.
func (s *PostgresStore) GetAccountCurrency(ctx context.Context, accountID uuid.UUID) (string, error) {
	query := `SELECT currency_code FROM accounts WHERE id = $1`

	var currency string
	err := s.db.QueryRow(ctx, query, accountID).Scan(&currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get account currency: %w", err)
	}
	return currency, nil
}
