package progression

import (
	"context"
	"fmt"

	"coinchat/internal/model"
)

// Settlement is the outcome of one settlement pass.
type Settlement struct {
	Completed  []model.TaskReward
	Credited   int64
	NewBalance int64
}

// RewardDescription is the audit text of a task_reward transaction.
func RewardDescription(taskName string) string {
	return fmt.Sprintf("Reward for: %s", taskName)
}

// Settle marks the candidates completed, credits the sum of the rewards of
// the rows actually flipped in a single balance update, and logs one
// task_reward transaction per task. It must run inside the caller's
// transaction; an empty candidate set is a no-op.
func Settle(ctx context.Context, s Store, userID int64, candidates []model.TaskReward) (*Settlement, error) {
	if len(candidates) == 0 {
		return &Settlement{}, nil
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.TaskID)
	}

	done, err := s.CompleteTasks(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(done) == 0 {
		return &Settlement{}, nil
	}

	var total int64
	for _, t := range done {
		total += t.Reward
	}

	balance, err := s.AdjustBalance(ctx, userID, total)
	if err != nil {
		return nil, err
	}

	for _, t := range done {
		if err := s.RecordTransaction(ctx, userID, t.Reward, model.TxTypeTaskReward, RewardDescription(t.Name)); err != nil {
			return nil, err
		}
	}

	return &Settlement{Completed: done, Credited: total, NewBalance: balance}, nil
}
