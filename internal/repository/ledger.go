package repository

import (
	"context"

	"coinchat/internal/model"
	"coinchat/internal/progression"
)

var _ progression.Store = (*Queries)(nil)

// InTx implements progression.Transactor.
func (m *TxManager) InTx(ctx context.Context, fn func(progression.Store) error) error {
	return m.WithTx(ctx, func(q *Queries) error {
		return fn(q)
	})
}

func (q *Queries) LockUser(ctx context.Context, userID int64) (*model.User, error) {
	return q.Users.LockByID(ctx, userID)
}

func (q *Queries) AddTimeSpent(ctx context.Context, userID int64, minutes int64) (int64, error) {
	return q.Users.AddTimeSpent(ctx, userID, minutes)
}

func (q *Queries) CountChatMessages(ctx context.Context, userID int64) (int64, error) {
	return q.Chat.CountByUser(ctx, userID)
}

func (q *Queries) CountOwnedTitles(ctx context.Context, userID int64) (int64, error) {
	return q.Titles.CountOwned(ctx, userID)
}

func (q *Queries) SetProgress(ctx context.Context, userID int64, category model.TaskCategory, value int64) (int64, error) {
	return q.Tasks.SetProgress(ctx, userID, category, value)
}

func (q *Queries) IncrementProgress(ctx context.Context, userID int64, category model.TaskCategory, delta int64) (int64, error) {
	return q.Tasks.IncrementProgress(ctx, userID, category, delta)
}

func (q *Queries) QualifyingTasks(ctx context.Context, userID int64, category model.TaskCategory) ([]model.TaskReward, error) {
	return q.Tasks.ListQualifying(ctx, userID, category)
}

func (q *Queries) CompleteTasks(ctx context.Context, userID int64, taskIDs []int64) ([]model.TaskReward, error) {
	return q.Tasks.Complete(ctx, userID, taskIDs)
}

func (q *Queries) AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error) {
	return q.Users.UpdateBalance(ctx, userID, delta)
}

func (q *Queries) RecordTransaction(ctx context.Context, userID int64, amount int64, txType, description string) error {
	_, err := q.Transactions.Create(ctx, userID, amount, txType, description)
	return err
}
