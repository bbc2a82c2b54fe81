package progression

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"coinchat/internal/model"
)

var errInjected = errors.New("injected failure")

type memProgress struct {
	progress    int64
	completed   bool
	completedAt *time.Time
}

type memState struct {
	users    map[int64]model.User
	tasks    []model.Task
	progress map[int64]map[int64]*memProgress
	chats    map[int64]int64
	titles   map[int64]int64
	txs      []model.Transaction
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[int64]model.User, len(s.users)),
		tasks:    append([]model.Task(nil), s.tasks...),
		progress: make(map[int64]map[int64]*memProgress, len(s.progress)),
		chats:    make(map[int64]int64, len(s.chats)),
		titles:   make(map[int64]int64, len(s.titles)),
		txs:      append([]model.Transaction(nil), s.txs...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for uid, rows := range s.progress {
		m := make(map[int64]*memProgress, len(rows))
		for tid, p := range rows {
			cp := *p
			m[tid] = &cp
		}
		c.progress[uid] = m
	}
	for k, v := range s.chats {
		c.chats[k] = v
	}
	for k, v := range s.titles {
		c.titles[k] = v
	}
	return c
}

// memStore is a serializable in-memory Transactor: one transaction at a time,
// state swapped in on commit.
type memStore struct {
	mu     sync.Mutex
	state  *memState
	failOn string
}

func newMemStore(tasks ...model.Task) *memStore {
	for i := range tasks {
		if tasks[i].ID == 0 {
			tasks[i].ID = int64(i + 1)
		}
	}
	return &memStore{state: &memState{
		users:    map[int64]model.User{},
		tasks:    tasks,
		progress: map[int64]map[int64]*memProgress{},
		chats:    map[int64]int64{},
		titles:   map[int64]int64{},
	}}
}

// addUser creates a user with the initial balance and seeds one progress row per task.
func (m *memStore) addUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[id] = model.User{ID: id, Username: fmt.Sprintf("user%d", id), Coins: model.InitialCoins}
	rows := map[int64]*memProgress{}
	for _, t := range m.state.tasks {
		rows[t.ID] = &memProgress{}
	}
	m.state.progress[id] = rows
}

func (m *memStore) InTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{st: m.state.clone(), failOn: m.failOn}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.st
	return nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

type memTx struct {
	st     *memState
	failOn string
}

func (t *memTx) fail(op string) error {
	if t.failOn == op {
		return errInjected
	}
	return nil
}

func (t *memTx) task(id int64) model.Task {
	for _, task := range t.st.tasks {
		if task.ID == id {
			return task
		}
	}
	panic(fmt.Sprintf("task %d not seeded", id))
}

func (t *memTx) addChat(userID int64)  { t.st.chats[userID]++ }
func (t *memTx) addTitle(userID int64) { t.st.titles[userID]++ }

func (t *memTx) LockUser(ctx context.Context, userID int64) (*model.User, error) {
	if err := t.fail("LockUser"); err != nil {
		return nil, err
	}
	u, ok := t.st.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return &u, nil
}

func (t *memTx) AddTimeSpent(ctx context.Context, userID int64, minutes int64) (int64, error) {
	if err := t.fail("AddTimeSpent"); err != nil {
		return 0, err
	}
	u := t.st.users[userID]
	u.TimeSpent += minutes
	t.st.users[userID] = u
	return u.TimeSpent, nil
}

func (t *memTx) CountChatMessages(ctx context.Context, userID int64) (int64, error) {
	return t.st.chats[userID], t.fail("CountChatMessages")
}

func (t *memTx) CountOwnedTitles(ctx context.Context, userID int64) (int64, error) {
	return t.st.titles[userID], t.fail("CountOwnedTitles")
}

func (t *memTx) SetProgress(ctx context.Context, userID int64, c model.TaskCategory, value int64) (int64, error) {
	if err := t.fail("SetProgress"); err != nil {
		return 0, err
	}
	var n int64
	for tid, p := range t.st.progress[userID] {
		if t.task(tid).Category == c && !p.completed {
			p.progress = value
			n++
		}
	}
	return n, nil
}

func (t *memTx) IncrementProgress(ctx context.Context, userID int64, c model.TaskCategory, delta int64) (int64, error) {
	if err := t.fail("IncrementProgress"); err != nil {
		return 0, err
	}
	var n int64
	for tid, p := range t.st.progress[userID] {
		if t.task(tid).Category == c && !p.completed {
			p.progress += delta
			n++
		}
	}
	return n, nil
}

func (t *memTx) qualifies(tid int64, p *memProgress) bool {
	return !p.completed && p.progress >= t.task(tid).MaxProgress
}

func (t *memTx) QualifyingTasks(ctx context.Context, userID int64, c model.TaskCategory) ([]model.TaskReward, error) {
	if err := t.fail("QualifyingTasks"); err != nil {
		return nil, err
	}
	var out []model.TaskReward
	for tid, p := range t.st.progress[userID] {
		task := t.task(tid)
		if (c == "" || task.Category == c) && t.qualifies(tid, p) {
			out = append(out, model.TaskReward{TaskID: tid, Name: task.Name, Category: task.Category, Reward: task.Reward})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

func (t *memTx) CompleteTasks(ctx context.Context, userID int64, ids []int64) ([]model.TaskReward, error) {
	if err := t.fail("CompleteTasks"); err != nil {
		return nil, err
	}
	now := time.Now()
	var out []model.TaskReward
	for _, tid := range ids {
		p, ok := t.st.progress[userID][tid]
		if !ok || !t.qualifies(tid, p) {
			continue
		}
		p.completed = true
		p.completedAt = &now
		task := t.task(tid)
		out = append(out, model.TaskReward{TaskID: tid, Name: task.Name, Category: task.Category, Reward: task.Reward})
	}
	return out, nil
}

func (t *memTx) AdjustBalance(ctx context.Context, userID int64, delta int64) (int64, error) {
	if err := t.fail("AdjustBalance"); err != nil {
		return 0, err
	}
	u := t.st.users[userID]
	if u.Coins+delta < 0 {
		return 0, ErrInsufficientBalance
	}
	u.Coins += delta
	t.st.users[userID] = u
	return u.Coins, nil
}

func (t *memTx) RecordTransaction(ctx context.Context, userID int64, amount int64, txType, description string) error {
	if err := t.fail("RecordTransaction"); err != nil {
		return err
	}
	t.st.txs = append(t.st.txs, model.Transaction{
		ID:          int64(len(t.st.txs) + 1),
		UserID:      userID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		CreatedAt:   time.Now(),
	})
	return nil
}

// chatStep simulates the chat-send precondition: the message row is inserted first.
func chatStep(userID int64) Step {
	return func(ctx context.Context, s Store) error {
		s.(*memTx).addChat(userID)
		return nil
	}
}

// purchaseStep simulates the title-purchase precondition: debit, grant, log.
func purchaseStep(userID, price int64) Step {
	return func(ctx context.Context, s Store) error {
		if _, err := s.AdjustBalance(ctx, userID, -price); err != nil {
			return err
		}
		s.(*memTx).addTitle(userID)
		return s.RecordTransaction(ctx, userID, -price, model.TxTypePurchase, "Purchase of title")
	}
}

func (s *memState) balanceFromLedger(userID int64) int64 {
	total := model.InitialCoins
	for _, tx := range s.txs {
		if tx.UserID == userID {
			total += tx.Amount
		}
	}
	return total
}

func (s *memState) rewardsFor(userID int64, taskName string) int {
	n := 0
	for _, tx := range s.txs {
		if tx.UserID == userID && tx.Type == model.TxTypeTaskReward && tx.Description == RewardDescription(taskName) {
			n++
		}
	}
	return n
}
