package progression

import (
	"context"

	"coinchat/internal/model"
)

// Evaluate returns the user's tasks that crossed their threshold and are not
// completed yet. scope limits the search to one category; empty means all.
func Evaluate(ctx context.Context, s Store, userID int64, scope model.TaskCategory) ([]model.TaskReward, error) {
	return s.QualifyingTasks(ctx, userID, scope)
}
