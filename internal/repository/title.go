package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coinchat/internal/model"
	"coinchat/internal/progression"
)

var (
	ErrTitleNotFound = fmt.Errorf("title %w", progression.ErrNotFound)
	ErrTitleOwned    = fmt.Errorf("%w: title already owned", progression.ErrInvalidInput)
)

// TitleRepository handles the title catalog and ownership.
type TitleRepository struct {
	db DBTX
}

// NewTitleRepository creates a new TitleRepository instance.
func NewTitleRepository(db DBTX) *TitleRepository {
	return &TitleRepository{db: db}
}

// List returns the catalog in display order with the owned flag set for userID.
func (r *TitleRepository) List(ctx context.Context, userID int64) ([]*model.Title, error) {
	const query = `
		SELECT t.id, t.name, t.description, t.price, t.sort_order, (ut.user_id IS NOT NULL)
		FROM titles t
		LEFT JOIN user_titles ut ON ut.title_id = t.id AND ut.user_id = $1
		ORDER BY t.sort_order, t.id
	`
	return r.list(ctx, query, userID)
}

// ListOwned returns the titles owned by userID in display order.
func (r *TitleRepository) ListOwned(ctx context.Context, userID int64) ([]*model.Title, error) {
	const query = `
		SELECT t.id, t.name, t.description, t.price, t.sort_order, TRUE
		FROM titles t
		JOIN user_titles ut ON ut.title_id = t.id
		WHERE ut.user_id = $1
		ORDER BY t.sort_order, t.id
	`
	return r.list(ctx, query, userID)
}

func (r *TitleRepository) list(ctx context.Context, query string, args ...any) ([]*model.Title, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var titles []*model.Title
	for rows.Next() {
		var t model.Title
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Price, &t.SortOrder, &t.Owned); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating titles: %w", err)
	}

	return titles, nil
}

func (r *TitleRepository) get(ctx context.Context, query string, arg any) (*model.Title, error) {
	var t model.Title
	err := r.db.QueryRow(ctx, query, arg).Scan(&t.ID, &t.Name, &t.Description, &t.Price, &t.SortOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTitleNotFound
		}
		return nil, fmt.Errorf("failed to get title: %w", err)
	}
	return &t, nil
}

// GetByID retrieves a title by ID.
func (r *TitleRepository) GetByID(ctx context.Context, id int64) (*model.Title, error) {
	return r.get(ctx, `SELECT id, name, description, price, sort_order FROM titles WHERE id = $1`, id)
}

// GetByName retrieves a title by name.
func (r *TitleRepository) GetByName(ctx context.Context, name string) (*model.Title, error) {
	return r.get(ctx, `SELECT id, name, description, price, sort_order FROM titles WHERE name = $1`, name)
}

// IsOwned reports whether userID owns titleID.
func (r *TitleRepository) IsOwned(ctx context.Context, userID, titleID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM user_titles WHERE user_id = $1 AND title_id = $2)`

	var owned bool
	if err := r.db.QueryRow(ctx, query, userID, titleID).Scan(&owned); err != nil {
		return false, fmt.Errorf("failed to check title ownership: %w", err)
	}
	return owned, nil
}

// Grant gives titleID to userID. Returns ErrTitleOwned if it is already owned.
func (r *TitleRepository) Grant(ctx context.Context, userID, titleID int64) error {
	const query = `
		INSERT INTO user_titles (user_id, title_id, purchased_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, title_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, userID, titleID)
	if err != nil {
		return fmt.Errorf("failed to grant title: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTitleOwned
	}
	return nil
}

// CountOwned returns the number of titles userID owns, free ones included.
func (r *TitleRepository) CountOwned(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_titles WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count owned titles: %w", err)
	}
	return n, nil
}
