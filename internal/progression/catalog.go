package progression

import "coinchat/internal/model"

// DefaultTasks is the seed task catalog. Purchase progress counts every
// owned title, including the free one granted at sign up.
func DefaultTasks() []model.Task {
	tasks := []model.Task{
		{Name: "First words", Description: "Send your first message", Category: model.CategoryChat, MaxProgress: 1, Reward: 10},
		{Name: "Chatterbox", Description: "Send 5 messages", Category: model.CategoryChat, MaxProgress: 5, Reward: 20},
		{Name: "Talk of the room", Description: "Send 50 messages", Category: model.CategoryChat, MaxProgress: 50, Reward: 100},
		{Name: "First purchase", Description: "Own two titles", Category: model.CategoryPurchase, MaxProgress: 2, Reward: 25},
		{Name: "Collector", Description: "Own four titles", Category: model.CategoryPurchase, MaxProgress: 4, Reward: 150},
		{Name: "Regular", Description: "Spend 10 minutes on the site", Category: model.CategoryTime, MaxProgress: 10, Reward: 15},
		{Name: "Devoted", Description: "Spend an hour on the site", Category: model.CategoryTime, MaxProgress: 60, Reward: 60},
		{Name: "Window shopper", Description: "Open the title shop", Category: "open_shop", MaxProgress: 1, Reward: 5},
		{Name: "Task hunter", Description: "Check your tasks 3 times", Category: "view_tasks", MaxProgress: 3, Reward: 10},
		{Name: "Show-off", Description: "Open your profile 5 times", Category: "view_profile", MaxProgress: 5, Reward: 10},
	}
	for i := range tasks {
		tasks[i].SortOrder = i + 1
	}
	return tasks
}
