package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastlabs/commentd/internal/domain"
)

// Ledger implements domain.Ledger using PostgreSQL. Each transfer debits one
// account, credits the other, and records a txn row inside a single
// transaction; the debit fails loudly when the balance is insufficient.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Transfer moves amount from fromID to toID. The BANK account has no balance
// constraint; user accounts must cover the debit.
func (l *Ledger) Transfer(ctx context.Context, fromID, toID string, amount float64, category string) error {
	if amount <= 0 {
		return fmt.Errorf("postgres: transfer amount %v: %w", amount, domain.ErrBadRequest)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	if fromID != domain.BankAccountID {
		var balance float64
		err := tx.QueryRow(ctx,
			`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, fromID).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("postgres: transfer from %s: %w", fromID, domain.ErrNotFound)
			}
			return fmt.Errorf("postgres: lock balance: %w", err)
		}
		if balance < amount {
			return fmt.Errorf("postgres: transfer %v from %s: %w", amount, fromID, domain.ErrInsufficientFunds)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE users SET balance = balance - $2 WHERE id = $1`, fromID, amount); err != nil {
			return fmt.Errorf("postgres: debit %s: %w", fromID, err)
		}
	}

	if toID != domain.BankAccountID {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET balance = balance + $2 WHERE id = $1`, toID, amount)
		if err != nil {
			return fmt.Errorf("postgres: credit %s: %w", toID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("postgres: transfer to %s: %w", toID, domain.ErrNotFound)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO txns (from_id, to_id, amount, category) VALUES ($1, $2, $3, $4)`,
		fromID, toID, amount, category,
	); err != nil {
		return fmt.Errorf("postgres: record txn: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit transfer: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.Ledger = (*Ledger)(nil)
