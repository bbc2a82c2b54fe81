package handler

import (
	"time"

	"coinchat/internal/model"
	"coinchat/internal/progression"
)

type userView struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Coins      int64     `json:"coins"`
	IsGuest    bool      `json:"isGuest"`
	IsAdmin    bool      `json:"isAdmin"`
	TimeSpent  int64     `json:"timeSpent"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

func newUserView(u *model.User) userView {
	return userView{
		ID:         u.ID,
		Username:   u.Username,
		Coins:      u.Coins,
		IsGuest:    u.IsGuest,
		IsAdmin:    u.IsAdmin,
		TimeSpent:  u.TimeSpent,
		CreatedAt:  u.CreatedAt,
		LastActive: u.LastActive,
	}
}

func newUserViews(users []*model.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	return out
}

type titleView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Owned       bool   `json:"owned"`
}

func newTitleViews(titles []*model.Title) []titleView {
	out := make([]titleView, 0, len(titles))
	for _, t := range titles {
		out = append(out, titleView{ID: t.ID, Name: t.Name, Description: t.Description, Price: t.Price, Owned: t.Owned})
	}
	return out
}

type taskView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TaskType    string     `json:"taskType"`
	Reward      int64      `json:"reward"`
	Progress    int64      `json:"progress"`
	MaxProgress int64      `json:"maxProgress"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func newTaskViews(tasks []*model.TaskProgress) []taskView {
	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskView{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			TaskType:    t.Category.String(),
			Reward:      t.Reward,
			Progress:    t.Progress,
			MaxProgress: t.MaxProgress,
			Completed:   t.Completed,
			CompletedAt: t.CompletedAt,
		})
	}
	return out
}

type catalogView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TaskType    string `json:"taskType"`
	Reward      int64  `json:"reward"`
	MaxProgress int64  `json:"maxProgress"`
}

func newCatalogViews(tasks []*model.Task) []catalogView {
	out := make([]catalogView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, catalogView{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			TaskType:    t.Category.String(),
			Reward:      t.Reward,
			MaxProgress: t.MaxProgress,
		})
	}
	return out
}

type messageView struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

func newMessageView(m *model.ChatMessage) messageView {
	return messageView{
		ID:        m.ID,
		UserID:    m.UserID,
		Username:  m.Username,
		Message:   m.Message,
		IsAdmin:   m.IsAdmin,
		CreatedAt: m.CreatedAt,
	}
}

type transactionView struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newTransactionViews(txs []*model.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionView{
			ID:          tx.ID,
			UserID:      tx.UserID,
			Amount:      tx.Amount,
			Type:        tx.Type,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return out
}

// completedTasks never encodes as null.
func completedTasks(tasks []progression.CompletedTask) []progression.CompletedTask {
	if tasks == nil {
		return []progression.CompletedTask{}
	}
	return tasks
}
