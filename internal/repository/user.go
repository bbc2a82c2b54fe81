package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"coinchat/internal/model"
	"coinchat/internal/progression"
)

// Common errors for repository operations.
var (
	ErrUserNotFound  = fmt.Errorf("user %w", progression.ErrNotFound)
	ErrUsernameTaken = errors.New("username already taken")
)

const pgUniqueViolation = "23505"

const userColumns = `id, username, password_hash, coins, is_guest, is_admin, time_spent, created_at, last_active`

// UserRepository handles user data persistence.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Coins,
		&user.IsGuest,
		&user.IsAdmin,
		&user.TimeSpent,
		&user.CreatedAt,
		&user.LastActive,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Create creates a new user with the initial balance.
// Returns ErrUsernameTaken if the username is already in use.
func (r *UserRepository) Create(ctx context.Context, username, passwordHash string, isGuest bool) (*model.User, error) {
	const query = `
		INSERT INTO users (username, password_hash, coins, is_guest, created_at, last_active)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, username, passwordHash, model.InitialCoins, isGuest))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return user, nil
}

// LockByID reads the user row with FOR UPDATE. Must run inside a transaction
// for the lock to outlive the statement.
func (r *UserRepository) LockByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	return user, nil
}

// UpdateBalance adds amount (which may be negative) to the user's coins and
// returns the new balance. A debit that would go below zero changes nothing
// and returns progression.ErrInsufficientBalance.
func (r *UserRepository) UpdateBalance(ctx context.Context, id int64, amount int64) (int64, error) {
	const query = `
		UPDATE users
		SET coins = coins + $2
		WHERE id = $1 AND coins + $2 >= 0
		RETURNING coins
	`

	var coins int64
	err := r.db.QueryRow(ctx, query, id, amount).Scan(&coins)
	if err == nil {
		return coins, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to update balance: %w", err)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrUserNotFound
	}
	return 0, progression.ErrInsufficientBalance
}

// AddTimeSpent adds minutes to the user's time counter and returns the new total.
func (r *UserRepository) AddTimeSpent(ctx context.Context, id int64, minutes int64) (int64, error) {
	const query = `
		UPDATE users
		SET time_spent = time_spent + $2
		WHERE id = $1
		RETURNING time_spent
	`

	var total int64
	err := r.db.QueryRow(ctx, query, id, minutes).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to add time spent: %w", err)
	}

	return total, nil
}

// Touch sets last_active to now.
func (r *UserRepository) Touch(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET last_active = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetAdmin grants or revokes the admin flag.
func (r *UserRepository) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	result, err := r.db.Exec(ctx, `UPDATE users SET is_admin = $2 WHERE id = $1`, id, isAdmin)
	if err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) listUsers(ctx context.Context, query string, args ...any) ([]*model.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetTopUsers retrieves the top N users by coins.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY coins DESC, id ASC LIMIT $1`
	return r.listUsers(ctx, query, limit)
}

// ListActiveSince returns users seen at or after since, most recent first.
func (r *UserRepository) ListActiveSince(ctx context.Context, since time.Time) ([]*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE last_active >= $1 ORDER BY last_active DESC`
	return r.listUsers(ctx, query, since)
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// CountActiveSince returns the number of users seen at or after since.
func (r *UserRepository) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE last_active >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return n, nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}
