// Package progression implements the task-and-reward progression engine.
//
// Every activity runs the same pipeline inside one store transaction:
// the per-category progress policy (Track), the completion check
// (Evaluate) and the reward payout (Settle). Completed task rows are never
// touched again, and the balance is only changed by store-side additions
// issued in the same transaction as the completion writes.
package progression

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"coinchat/internal/model"
)

// CompletedTask is a task completed by one engine call.
type CompletedTask struct {
	TaskID int64  `json:"-"`
	Name   string `json:"name"`
	Reward int64  `json:"reward"`
}

// Result is returned by every engine entry point.
type Result struct {
	NewBalance     int64
	TimeSpent      int64
	CompletedTasks []CompletedTask
}

// Engine runs activities against a Transactor, optionally serialized per
// user by a Locker.
type Engine struct {
	tx          Transactor
	locker      Locker
	lockTimeout time.Duration
}

// NewEngine creates an Engine. locker may be nil, in which case the store's
// row lock on the user is the only serialization.
func NewEngine(tx Transactor, locker Locker, lockTimeout time.Duration) *Engine {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Engine{tx: tx, locker: locker, lockTimeout: lockTimeout}
}

// OnChatSent recomputes chat progress from the message count and settles
// chat tasks.
func (e *Engine) OnChatSent(ctx context.Context, userID int64) (*Result, error) {
	return e.Record(ctx, userID, ChatSent())
}

// OnTitlePurchased recomputes purchase progress from the titles owned and
// settles purchase tasks.
func (e *Engine) OnTitlePurchased(ctx context.Context, userID int64) (*Result, error) {
	return e.Record(ctx, userID, TitlePurchased())
}

// OnTimeReported adds minutes to the user's time counter, mirrors it into
// time tasks and settles every qualifying task.
func (e *Engine) OnTimeReported(ctx context.Context, userID int64, minutes int64) (*Result, error) {
	if minutes < 0 {
		return nil, Invalidf("minutes must not be negative, got %d", minutes)
	}
	addTime := func(ctx context.Context, s Store) error {
		if minutes == 0 {
			return nil
		}
		_, err := s.AddTimeSpent(ctx, userID, minutes)
		return err
	}
	return e.Record(ctx, userID, TimeReported(), addTime)
}

// OnActionPerformed advances the custom category tag by value and settles
// every qualifying task. Calls are not idempotent: a replayed call advances
// progress again.
func (e *Engine) OnActionPerformed(ctx context.Context, userID int64, tag string, value int64) (*Result, error) {
	category, err := model.ParseActionTag(tag)
	if err != nil {
		return nil, Invalidf("%v", err)
	}
	return e.Record(ctx, userID, ActionPerformed(category, value))
}

// Record runs pre and then the activity pipeline in one transaction, holding
// the per-user lock for the duration.
func (e *Engine) Record(ctx context.Context, userID int64, a Activity, pre ...Step) (*Result, error) {
	if userID <= 0 {
		return nil, Invalidf("user id must be positive, got %d", userID)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	var res *Result
	err := e.Serialize(ctx, userID, func() error {
		return e.tx.InTx(ctx, func(s Store) error {
			if _, err := s.LockUser(ctx, userID); err != nil {
				return classify("lock user", err)
			}
			for _, step := range pre {
				if err := step(ctx, s); err != nil {
					return classify("precondition", err)
				}
			}
			r, err := e.Apply(ctx, s, userID, a)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, classify("record activity", err)
	}
	return res, nil
}

// Serialize runs fn under the per-user lock when a Locker is configured.
func (e *Engine) Serialize(ctx context.Context, userID int64, fn func() error) error {
	if e.locker == nil {
		return fn()
	}
	return e.locker.WithLockContext(ctx, userID, e.lockTimeout, fn)
}

// Apply runs Track, Evaluate and Settle for one activity using a Store that
// is already inside a transaction. Callers own commit and rollback.
func (e *Engine) Apply(ctx context.Context, s Store, userID int64, a Activity) (*Result, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}

	user, err := s.LockUser(ctx, userID)
	if err != nil {
		return nil, classify("lock user", err)
	}

	if _, err := Track(ctx, s, user, a); err != nil {
		return nil, classify("track progress", err)
	}

	candidates, err := Evaluate(ctx, s, userID, a.Scope)
	if err != nil {
		return nil, classify("evaluate tasks", err)
	}

	st, err := Settle(ctx, s, userID, candidates)
	if err != nil {
		return nil, classify("settle rewards", err)
	}

	res := &Result{
		NewBalance:     user.Coins,
		TimeSpent:      user.TimeSpent,
		CompletedTasks: make([]CompletedTask, 0, len(st.Completed)),
	}
	if len(st.Completed) > 0 {
		res.NewBalance = st.NewBalance
		for _, t := range st.Completed {
			res.CompletedTasks = append(res.CompletedTasks, CompletedTask{TaskID: t.TaskID, Name: t.Name, Reward: t.Reward})
		}
		log.Info().
			Int64("user_id", userID).
			Str("category", a.Category.String()).
			Int("completed", len(st.Completed)).
			Int64("reward", st.Credited).
			Int64("balance", st.NewBalance).
			Msg("Tasks completed")
	}

	return res, nil
}
