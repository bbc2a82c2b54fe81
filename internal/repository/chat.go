package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coinchat/internal/model"
)

// ChatRepository handles the shared chat room log.
type ChatRepository struct {
	db DBTX
}

// NewChatRepository creates a new ChatRepository instance.
func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create stores a message under the author's current username.
func (r *ChatRepository) Create(ctx context.Context, userID int64, message string) (*model.ChatMessage, error) {
	const query = `
		WITH author AS (
			SELECT id, username, is_admin FROM users WHERE id = $1
		), inserted AS (
			INSERT INTO chat_messages (user_id, username, message, created_at)
			SELECT id, username, $2, NOW() FROM author
			RETURNING id, user_id, username, message, created_at
		)
		SELECT i.id, i.user_id, i.username, i.message, a.is_admin, i.created_at
		FROM inserted i
		JOIN author a ON a.id = i.user_id
	`

	var m model.ChatMessage
	err := r.db.QueryRow(ctx, query, userID, message).Scan(&m.ID, &m.UserID, &m.Username, &m.Message, &m.IsAdmin, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}
	return &m, nil
}

// List returns the newest limit messages with id > sinceID, oldest first.
func (r *ChatRepository) List(ctx context.Context, limit int, sinceID int64) ([]*model.ChatMessage, error) {
	const query = `
		SELECT id, user_id, username, message, is_admin, created_at FROM (
			SELECT m.id, m.user_id, m.username, m.message, COALESCE(u.is_admin, FALSE) AS is_admin, m.created_at
			FROM chat_messages m
			LEFT JOIN users u ON u.id = m.user_id
			WHERE m.id > $2
			ORDER BY m.id DESC
			LIMIT $1
		) recent
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, limit, sinceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*model.ChatMessage, 0, limit)
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Message, &m.IsAdmin, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}

	return messages, nil
}

// CountByUser returns the number of messages userID has posted.
func (r *ChatRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return n, nil
}

// Count returns the total number of messages.
func (r *ChatRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return n, nil
}
