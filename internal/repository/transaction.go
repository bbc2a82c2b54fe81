package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coinchat/internal/model"
)

const transactionColumns = `id, user_id, amount, transaction_type, description, created_at`

// TransactionRepository handles the append-only coin transaction log.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Description,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, userID int64, amount int64, txType, description string) (*model.Transaction, error) {
	const query = `
		INSERT INTO coin_transactions (user_id, amount, transaction_type, description, created_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, userID, amount, txType, description))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return tx, nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*model.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// GetByUserID retrieves a user's transactions, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	return r.list(ctx, query, userID, limit)
}

// GetByUserIDAndType retrieves a user's transactions of one type, newest first.
func (r *TransactionRepository) GetByUserIDAndType(ctx context.Context, userID int64, txType string, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM coin_transactions
		WHERE user_id = $1 AND transaction_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	return r.list(ctx, query, userID, txType, limit)
}

// SumByUser returns the sum of all of a user's transaction amounts.
func (r *TransactionRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM coin_transactions WHERE user_id = $1`

	var sum int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// CountByType returns the number of transactions of one type across all users.
func (r *TransactionRepository) CountByType(ctx context.Context, txType string) (int64, error) {
	const query = `SELECT COUNT(*) FROM coin_transactions WHERE transaction_type = $1`

	var n int64
	if err := r.db.QueryRow(ctx, query, txType).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
