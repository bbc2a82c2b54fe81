package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"coinchat/internal/progression"
	"coinchat/internal/repository"
)

// ActivityService reports time spent and generic actions to the engine.
type ActivityService struct {
	q      *repository.Queries
	engine *progression.Engine
}

// NewActivityService creates a new ActivityService instance.
func NewActivityService(q *repository.Queries, engine *progression.Engine) *ActivityService {
	return &ActivityService{q: q, engine: engine}
}

// UpdateTime adds minutes to the user's time counter and settles tasks.
// Zero minutes only re-syncs time tasks with the stored counter.
func (s *ActivityService) UpdateTime(ctx context.Context, userID, minutes int64) (*progression.Result, error) {
	res, err := s.engine.OnTimeReported(ctx, userID, minutes)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, userID)
	return res, nil
}

// RecordAction advances tasks tagged with action by value.
func (s *ActivityService) RecordAction(ctx context.Context, userID int64, action string, value int64) (*progression.Result, error) {
	res, err := s.engine.OnActionPerformed(ctx, userID, action, value)
	if err != nil {
		return nil, err
	}
	s.touch(ctx, userID)
	return res, nil
}

func (s *ActivityService) touch(ctx context.Context, userID int64) {
	if err := s.q.Users.Touch(ctx, userID); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to update last active")
	}
}
