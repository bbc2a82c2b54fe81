// Package repository provides the PostgreSQL data access layer.
package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so every repository can run
// standalone or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)
)

// Queries groups the repositories bound to one DBTX.
type Queries struct {
	Users        *UserRepository
	Tasks        *TaskRepository
	Transactions *TransactionRepository
	Titles       *TitleRepository
	Chat         *ChatRepository
}

// NewQueries binds every repository to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{
		Users:        NewUserRepository(db),
		Tasks:        NewTaskRepository(db),
		Transactions: NewTransactionRepository(db),
		Titles:       NewTitleRepository(db),
		Chat:         NewChatRepository(db),
	}
}

// TxManager runs work inside PostgreSQL transactions.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a TxManager over pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithTx runs fn in a READ COMMITTED transaction. The transaction commits
// when fn returns nil and rolls back otherwise; fn's error is returned as is.
func (m *TxManager) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	return pgx.BeginTxFunc(ctx, m.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(NewQueries(tx))
	})
}
