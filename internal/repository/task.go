package repository

import (
	"context"
	"fmt"

	"coinchat/internal/model"
)

// TaskRepository handles the task catalog and per-user progress rows.
// Every progress write carries completed = FALSE in its predicate so
// completed rows stay frozen.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new TaskRepository instance.
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// ListAll returns the task catalog in display order.
func (r *TaskRepository) ListAll(ctx context.Context) ([]*model.Task, error) {
	const query = `
		SELECT id, name, description, task_type, reward, max_progress, sort_order
		FROM tasks
		ORDER BY sort_order, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.Reward, &t.MaxProgress, &t.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// SeedForUser creates a zero progress row for every task the user lacks.
func (r *TaskRepository) SeedForUser(ctx context.Context, userID int64) (int64, error) {
	const query = `
		INSERT INTO user_tasks (user_id, task_id, progress, completed)
		SELECT $1, id, 0, FALSE FROM tasks
		ON CONFLICT (user_id, task_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to seed user tasks: %w", err)
	}
	return result.RowsAffected(), nil
}

// ListForUser returns every task with the user's progress. Tasks added to
// the catalog after the user was seeded show zero progress.
func (r *TaskRepository) ListForUser(ctx context.Context, userID int64) ([]*model.TaskProgress, error) {
	const query = `
		SELECT t.id, t.name, t.description, t.task_type, t.reward, t.max_progress, t.sort_order,
		       COALESCE(ut.progress, 0), COALESCE(ut.completed, FALSE), ut.completed_at
		FROM tasks t
		LEFT JOIN user_tasks ut ON ut.task_id = t.id AND ut.user_id = $1
		ORDER BY t.sort_order, t.id
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.TaskProgress
	for rows.Next() {
		var tp model.TaskProgress
		err := rows.Scan(
			&tp.ID, &tp.Name, &tp.Description, &tp.Category, &tp.Reward, &tp.MaxProgress, &tp.SortOrder,
			&tp.Progress, &tp.Completed, &tp.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user task: %w", err)
		}
		tasks = append(tasks, &tp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user tasks: %w", err)
	}

	return tasks, nil
}

// SetProgress sets progress of the user's open tasks in a category.
func (r *TaskRepository) SetProgress(ctx context.Context, userID int64, category model.TaskCategory, value int64) (int64, error) {
	const query = `
		UPDATE user_tasks ut
		SET progress = $3
		FROM tasks t
		WHERE ut.task_id = t.id
		  AND ut.user_id = $1
		  AND t.task_type = $2
		  AND ut.completed = FALSE
	`

	result, err := r.db.Exec(ctx, query, userID, string(category), value)
	if err != nil {
		return 0, fmt.Errorf("failed to set progress: %w", err)
	}
	return result.RowsAffected(), nil
}

// IncrementProgress adds delta to the progress of the user's open tasks in a
// category with a single store-side update.
func (r *TaskRepository) IncrementProgress(ctx context.Context, userID int64, category model.TaskCategory, delta int64) (int64, error) {
	const query = `
		UPDATE user_tasks ut
		SET progress = ut.progress + $3
		FROM tasks t
		WHERE ut.task_id = t.id
		  AND ut.user_id = $1
		  AND t.task_type = $2
		  AND ut.completed = FALSE
	`

	result, err := r.db.Exec(ctx, query, userID, string(category), delta)
	if err != nil {
		return 0, fmt.Errorf("failed to increment progress: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *TaskRepository) listRewards(ctx context.Context, query string, args ...any) ([]model.TaskReward, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []model.TaskReward
	for rows.Next() {
		var tr model.TaskReward
		if err := rows.Scan(&tr.TaskID, &tr.Name, &tr.Category, &tr.Reward); err != nil {
			return nil, err
		}
		rewards = append(rewards, tr)
	}
	return rewards, rows.Err()
}

// ListQualifying returns the user's open tasks that reached their threshold,
// locking their rows. An empty category matches every category.
func (r *TaskRepository) ListQualifying(ctx context.Context, userID int64, category model.TaskCategory) ([]model.TaskReward, error) {
	const query = `
		SELECT ut.task_id, t.name, t.task_type, t.reward
		FROM user_tasks ut
		JOIN tasks t ON t.id = ut.task_id
		WHERE ut.user_id = $1
		  AND ($2::text = '' OR t.task_type = $2::text)
		  AND ut.completed = FALSE
		  AND ut.progress >= t.max_progress
		ORDER BY t.sort_order, t.id
		FOR UPDATE OF ut
	`

	rewards, err := r.listRewards(ctx, query, userID, string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list qualifying tasks: %w", err)
	}
	return rewards, nil
}

// Complete marks the given tasks completed, re-checking the qualifying
// predicate, and returns only the rows it flipped.
func (r *TaskRepository) Complete(ctx context.Context, userID int64, taskIDs []int64) ([]model.TaskReward, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}

	const query = `
		UPDATE user_tasks ut
		SET completed = TRUE, completed_at = NOW()
		FROM tasks t
		WHERE ut.task_id = t.id
		  AND ut.user_id = $1
		  AND ut.task_id = ANY($2)
		  AND ut.completed = FALSE
		  AND ut.progress >= t.max_progress
		RETURNING ut.task_id, t.name, t.task_type, t.reward
	`

	rewards, err := r.listRewards(ctx, query, userID, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to complete tasks: %w", err)
	}
	return rewards, nil
}
