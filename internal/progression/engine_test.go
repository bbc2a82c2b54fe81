package progression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinchat/internal/model"
	"coinchat/internal/pkg/lock"
)

func chatTask(threshold, reward int64) model.Task {
	return model.Task{Name: "Chatterbox", Category: model.CategoryChat, MaxProgress: threshold, Reward: reward}
}

func TestEngine_ChatTaskCompletesOnFifthMessage(t *testing.T) {
	store := newMemStore(chatTask(5, 20))
	store.addUser(1)
	engine := NewEngine(store, nil, 0)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		res, err := engine.Record(ctx, 1, ChatSent(), chatStep(1))
		require.NoError(t, err)
		assert.Empty(t, res.CompletedTasks, "message %d", i)
		assert.Equal(t, int64(100), res.NewBalance)
	}

	res, err := engine.Record(ctx, 1, ChatSent(), chatStep(1))
	require.NoError(t, err)
	require.Len(t, res.CompletedTasks, 1)
	assert.Equal(t, "Chatterbox", res.CompletedTasks[0].Name)
	assert.Equal(t, int64(20), res.CompletedTasks[0].Reward)
	assert.Equal(t, int64(120), res.NewBalance)

	st := store.snapshot()
	require.Len(t, st.txs, 1)
	assert.Equal(t, int64(20), st.txs[0].Amount)
	assert.Equal(t, model.TxTypeTaskReward, st.txs[0].Type)
	assert.Equal(t, "Reward for: Chatterbox", st.txs[0].Description)
}

func TestEngine_CompletedTaskIsFrozen(t *testing.T) {
	store := newMemStore(chatTask(2, 5))
	store.addUser(1)
	engine := NewEngine(store, nil, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := engine.Record(ctx, 1, ChatSent(), chatStep(1))
		require.NoError(t, err)
	}
	before := store.snapshot().progress[1][1]
	require.True(t, before.completed)

	for i := 0; i < 3; i++ {
		res, err := engine.Record(ctx, 1, ChatSent(), chatStep(1))
		require.NoError(t, err)
		assert.Empty(t, res.CompletedTasks)
		assert.Equal(t, int64(105), res.NewBalance)
	}

	after := store.snapshot()
	assert.Equal(t, int64(2), after.progress[1][1].progress)
	assert.Equal(t, before.completedAt, after.progress[1][1].completedAt)
	assert.Equal(t, int64(5), after.chats[1])
	assert.Equal(t, 1, after.rewardsFor(1, "Chatterbox"))
}

func TestEngine_TimeUpdateSettlesTasksSeparately(t *testing.T) {
	store := newMemStore(
		model.Task{Name: "Ten minutes", Category: model.CategoryTime, MaxProgress: 10, Reward: 10},
		model.Task{Name: "Warm welcome", Category: model.CategoryTime, MaxProgress: 5, Reward: 15},
		model.Task{Name: "An hour", Category: model.CategoryTime, MaxProgress: 60, Reward: 50},
	)
	store.addUser(1)
	engine := NewEngine(store, nil, 0)

	res, err := engine.OnTimeReported(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(125), res.NewBalance)
	assert.Equal(t, int64(10), res.TimeSpent)
	assert.ElementsMatch(t,
		[]CompletedTask{{TaskID: 1, Name: "Ten minutes", Reward: 10}, {TaskID: 2, Name: "Warm welcome", Reward: 15}},
		res.CompletedTasks)

	st := store.snapshot()
	require.Len(t, st.txs, 2)
	amounts := []int64{st.txs[0].Amount, st.txs[1].Amount}
	assert.ElementsMatch(t, []int64{10, 15}, amounts)
	assert.Equal(t, int64(10), st.progress[1][3].progress)
	assert.False(t, st.progress[1][3].completed)
}

func TestEngine_TimeUpdateZeroMinutesResyncs(t *testing.T) {
	store := newMemStore(model.Task{Name: "Ten minutes", Category: model.CategoryTime, MaxProgress: 10, Reward: 10})
	store.addUser(1)
	store.state.users[1] = model.User{ID: 1, Coins: 100, TimeSpent: 12}
	engine := NewEngine(store, nil, 0)

	res, err := engine.OnTimeReported(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.TimeSpent)
	require.Len(t, res.CompletedTasks, 1)
}

func TestEngine_PurchaseDebitsBeforeReward(t *testing.T) {
	store := newMemStore(model.Task{Name: "Collector", Category: model.CategoryPurchase, MaxProgress: 1, Reward: 30})
	store.addUser(1)
	engine := NewEngine(store, nil, 0)

	res, err := engine.Record(context.Background(), 1, TitlePurchased(), purchaseStep(1, 60))
	require.NoError(t, err)
	assert.Equal(t, int64(70), res.NewBalance)
	require.Len(t, res.CompletedTasks, 1)

	st := store.snapshot()
	require.Len(t, st.txs, 2)
	assert.Equal(t, model.TxTypePurchase, st.txs[0].Type)
	assert.Equal(t, int64(-60), st.txs[0].Amount)
	assert.Equal(t, model.TxTypeTaskReward, st.txs[1].Type)
	assert.Equal(t, st.users[1].Coins, st.balanceFromLedger(1))
}

func TestEngine_OnTitlePurchasedCountsOwnedTitles(t *testing.T) {
	store := newMemStore(model.Task{Name: "Collector", Category: model.CategoryPurchase, MaxProgress: 2, Reward: 30})
	store.addUser(1)
	store.state.titles[1] = 2
	engine := NewEngine(store, nil, 0)

	res, err := engine.OnTitlePurchased(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, res.CompletedTasks, 1)
	assert.Equal(t, int64(130), res.NewBalance)

	// Recounting afterwards settles nothing new.
	res, err = engine.OnTitlePurchased(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, res.CompletedTasks)
	assert.Equal(t, int64(130), res.NewBalance)
}

func TestEngine_PurchaseInsufficientBalance(t *testing.T) {
	store := newMemStore(model.Task{Name: "Collector", Category: model.CategoryPurchase, MaxProgress: 1, Reward: 30})
	store.addUser(1)
	engine := NewEngine(store, nil, 0)

	_, err := engine.Record(context.Background(), 1, TitlePurchased(), purchaseStep(1, 150))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, KindInsufficientBalance, KindOf(err))

	st := store.snapshot()
	assert.Equal(t, int64(100), st.users[1].Coins)
	assert.Empty(t, st.txs)
	assert.Zero(t, st.titles[1])
}

func TestEngine_SettlementIsAtomic(t *testing.T) {
	for _, op := range []string{"CompleteTasks", "AdjustBalance", "RecordTransaction"} {
		t.Run(op, func(t *testing.T) {
			store := newMemStore(
				model.Task{Name: "A", Category: model.CategoryTime, MaxProgress: 1, Reward: 10},
				model.Task{Name: "B", Category: model.CategoryTime, MaxProgress: 1, Reward: 15},
			)
			store.addUser(1)
			store.failOn = op
			engine := NewEngine(store, nil, 0)

			_, err := engine.OnTimeReported(context.Background(), 1, 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, errInjected)
			assert.Equal(t, KindStoreFailure, KindOf(err))

			st := store.snapshot()
			assert.Equal(t, int64(100), st.users[1].Coins)
			assert.Zero(t, st.users[1].TimeSpent)
			assert.Empty(t, st.txs)
			for _, p := range st.progress[1] {
				assert.False(t, p.completed)
				assert.Zero(t, p.progress)
			}
		})
	}
}

func TestEngine_UnknownUser(t *testing.T) {
	store := newMemStore(chatTask(1, 1))
	engine := NewEngine(store, nil, 0)

	_, err := engine.OnChatSent(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestEngine_InvalidInput(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	engine := NewEngine(store, nil, 0)
	ctx := context.Background()

	cases := map[string]func() error{
		"negative minutes": func() error { _, err := engine.OnTimeReported(ctx, 1, -1); return err },
		"zero user":        func() error { _, err := engine.OnChatSent(ctx, 0); return err },
		"empty tag":        func() error { _, err := engine.OnActionPerformed(ctx, 1, "  ", 1); return err },
		"reserved tag":     func() error { _, err := engine.OnActionPerformed(ctx, 1, "chat", 1); return err },
		"zero value":       func() error { _, err := engine.OnActionPerformed(ctx, 1, "open_shop", 0); return err },
		"delta on builtin": func() error {
			_, err := engine.Record(ctx, 1, Activity{Category: model.CategoryChat, Delta: 3})
			return err
		},
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			err := call()
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestEngine_ActionTagMatchesCategoryExactly(t *testing.T) {
	store := newMemStore(model.Task{Name: "Sharer", Category: "Share_Link", MaxProgress: 1, Reward: 5})
	store.addUser(1)
	engine := NewEngine(store, nil, 0)
	ctx := context.Background()

	res, err := engine.OnActionPerformed(ctx, 1, "share_link", 1)
	require.NoError(t, err)
	assert.Empty(t, res.CompletedTasks)

	res, err = engine.OnActionPerformed(ctx, 1, "Share_Link", 1)
	require.NoError(t, err)
	require.Len(t, res.CompletedTasks, 1)
	assert.Equal(t, int64(105), res.NewBalance)
}

func TestEngine_ActionWithoutMatchingTasksIsNoop(t *testing.T) {
	store := newMemStore(chatTask(1, 1))
	store.addUser(1)
	engine := NewEngine(store, nil, 0)

	res, err := engine.OnActionPerformed(context.Background(), 1, "never_seen", 3)
	require.NoError(t, err)
	assert.Empty(t, res.CompletedTasks)
	assert.Equal(t, int64(100), res.NewBalance)
}

func TestEngine_ConcurrentActionsGrantOnce(t *testing.T) {
	store := newMemStore(model.Task{Name: "Explorer", Category: "open_shop", MaxProgress: 2, Reward: 40})
	store.addUser(1)
	engine := NewEngine(store, lock.NewUserLock(), time.Second)

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.OnActionPerformed(context.Background(), 1, "open_shop", 1)
		}(i)
	}
	wg.Wait()

	completions := 0
	for i := range results {
		require.NoError(t, errs[i])
		completions += len(results[i].CompletedTasks)
	}
	assert.Equal(t, 1, completions)

	st := store.snapshot()
	assert.Equal(t, int64(140), st.users[1].Coins)
	assert.Equal(t, 1, st.rewardsFor(1, "Explorer"))
}

type timeoutLocker struct{}

func (timeoutLocker) WithLockContext(context.Context, int64, time.Duration, func() error) error {
	return lock.ErrLockTimeout
}

func TestEngine_LockTimeoutIsStoreFailure(t *testing.T) {
	store := newMemStore()
	store.addUser(1)
	engine := NewEngine(store, timeoutLocker{}, time.Millisecond)

	_, err := engine.OnChatSent(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lock.ErrLockTimeout))
	assert.Equal(t, KindStoreFailure, KindOf(err))
}
