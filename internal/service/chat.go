package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"coinchat/internal/model"
	"coinchat/internal/progression"
	"coinchat/internal/repository"
)

// ChatResult is the outcome of posting a message.
type ChatResult struct {
	Message        *model.ChatMessage
	Coins          int64
	CompletedTasks []progression.CompletedTask
}

// ChatService handles the shared chat room.
type ChatService struct {
	txm             *repository.TxManager
	q               *repository.Queries
	engine          *progression.Engine
	maxLength       int
	historyLimit    int
	maxHistoryLimit int
}

// NewChatService creates a new ChatService instance.
func NewChatService(
	txm *repository.TxManager,
	q *repository.Queries,
	engine *progression.Engine,
	maxLength, historyLimit, maxHistoryLimit int,
) *ChatService {
	if maxLength <= 0 {
		maxLength = 500
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}
	if maxHistoryLimit < historyLimit {
		maxHistoryLimit = historyLimit
	}
	return &ChatService{
		txm:             txm,
		q:               q,
		engine:          engine,
		maxLength:       maxLength,
		historyLimit:    historyLimit,
		maxHistoryLimit: maxHistoryLimit,
	}
}

// Send stores a message and advances chat tasks in the same transaction.
func (s *ChatService) Send(ctx context.Context, userID int64, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, progression.Invalidf("message must not be empty")
	}
	if utf8.RuneCountInString(message) > s.maxLength {
		return nil, progression.Invalidf("message must be at most %d characters", s.maxLength)
	}

	var out *ChatResult
	err := s.engine.Serialize(ctx, userID, func() error {
		return s.txm.WithTx(ctx, func(q *repository.Queries) error {
			if _, err := q.Users.LockByID(ctx, userID); err != nil {
				return err
			}

			msg, err := q.Chat.Create(ctx, userID, message)
			if err != nil {
				return err
			}
			if err := q.Users.Touch(ctx, userID); err != nil {
				return err
			}

			res, err := s.engine.Apply(ctx, q, userID, progression.ChatSent())
			if err != nil {
				return err
			}

			out = &ChatResult{Message: msg, Coins: res.NewBalance, CompletedTasks: res.CompletedTasks}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// History returns up to limit recent messages newer than sinceID, oldest
// first. A non-positive limit uses the default; larger limits are capped.
func (s *ChatService) History(ctx context.Context, limit int, sinceID int64) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	if limit > s.maxHistoryLimit {
		limit = s.maxHistoryLimit
	}
	if sinceID < 0 {
		sinceID = 0
	}
	return s.q.Chat.List(ctx, limit, sinceID)
}
