package progression

import (
	"context"
	"time"

	"coinchat/internal/model"
)

// Store is the transactional view of the ledger the engine works against.
// Every call made through one Store value belongs to the same atomic unit.
type Store interface {
	// LockUser reads the user row and holds it until the transaction ends.
	// Returns an error matching ErrNotFound when the user does not exist.
	LockUser(ctx context.Context, userID int64) (*model.User, error)

	// AddTimeSpent adds minutes to the user's time counter and returns the new total.
	AddTimeSpent(ctx context.Context, userID int64, minutes int64) (int64, error)

	CountChatMessages(ctx context.Context, userID int64) (int64, error)
	CountOwnedTitles(ctx context.Context, userID int64) (int64, error)

	// SetProgress and IncrementProgress touch only non-completed rows of
	// the category and return how many rows changed.
	SetProgress(ctx context.Context, userID int64, category model.TaskCategory, value int64) (int64, error)
	IncrementProgress(ctx context.Context, userID int64, category model.TaskCategory, delta int64) (int64, error)

	// QualifyingTasks lists rows with completed = false and progress >= threshold.
	// An empty category means every category.
	QualifyingTasks(ctx context.Context, userID int64, category model.TaskCategory) ([]model.TaskReward, error)

	// CompleteTasks flips the given rows to completed, re-checking the
	// qualifying predicate, and returns only the rows it flipped.
	CompleteTasks(ctx context.Context, userID int64, taskIDs []int64) ([]model.TaskReward, error)

	// AdjustBalance adds delta to the user's coins in one store-side update
	// and returns the new balance.
	AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error)

	RecordTransaction(ctx context.Context, userID int64, amount int64, txType, description string) error
}

// Transactor runs fn inside one all-or-nothing transaction. fn's error
// rolls everything back and is returned unchanged.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// Locker serializes work per user ahead of the store transaction.
type Locker interface {
	WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error
}

// Step is a domain precondition executed in the same transaction before
// the progress pipeline.
type Step func(ctx context.Context, s Store) error
