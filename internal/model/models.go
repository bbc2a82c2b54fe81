// Package model defines the data models for the coinchat backend.
package model

import "time"

// InitialCoins is the balance every account starts with. It is not recorded
// as a transaction, so balance == InitialCoins + SUM(transaction amounts).
const InitialCoins int64 = 100

// User represents a registered or guest account.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Coins        int64     `db:"coins"`
	IsGuest      bool      `db:"is_guest"`
	IsAdmin      bool      `db:"is_admin"`
	TimeSpent    int64     `db:"time_spent"`
	CreatedAt    time.Time `db:"created_at"`
	LastActive   time.Time `db:"last_active"`
}

// Transaction represents a balance change record. Rows are append-only.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"transaction_type"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeAdminGift  = "admin_gift"  // Coins granted by an admin
	TxTypeTaskReward = "task_reward" // Reward for a completed task
	TxTypePurchase   = "purchase"    // Title purchase
)

// Task is a reference definition of something a user can complete for coins.
type Task struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	Description string       `db:"description"`
	Category    TaskCategory `db:"task_type"`
	Reward      int64        `db:"reward"`
	MaxProgress int64        `db:"max_progress"`
	SortOrder   int          `db:"sort_order"`
}

// TaskProgress is a task joined with one user's progress row.
type TaskProgress struct {
	Task
	Progress    int64      `db:"progress"`
	Completed   bool       `db:"completed"`
	CompletedAt *time.Time `db:"completed_at"`
}

// TaskReward is a qualifying or settled task with the data settlement needs.
type TaskReward struct {
	TaskID   int64        `db:"task_id"`
	Name     string       `db:"name"`
	Category TaskCategory `db:"task_type"`
	Reward   int64        `db:"reward"`
}

// Title is a cosmetic badge sold for coins.
type Title struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Price       int64  `db:"price"`
	SortOrder   int    `db:"sort_order"`
	Owned       bool   `db:"owned"`
}

// ChatMessage is a message posted to the shared room.
type ChatMessage struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Message   string    `db:"message"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}

// SiteStats aggregates admin dashboard figures.
type SiteStats struct {
	TotalUsers     int64   `json:"totalUsers"`
	OnlineUsers    int64   `json:"onlineUsers"`
	TotalMessages  int64   `json:"totalMessages"`
	TotalPurchases int64   `json:"totalPurchases"`
	TopUsers       []*User `json:"topUsers"`
}
