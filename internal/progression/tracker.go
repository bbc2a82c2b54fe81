package progression

import (
	"context"

	"coinchat/internal/model"
)

// Track applies the activity's progress policy to every non-completed task
// of its category and returns the number of rows updated. user must be the
// row read under lock in the current transaction.
func Track(ctx context.Context, s Store, user *model.User, a Activity) (int64, error) {
	switch a.Policy() {
	case PolicyAbsoluteCount:
		n, err := countRecords(ctx, s, user.ID, a.Category)
		if err != nil {
			return 0, err
		}
		return s.SetProgress(ctx, user.ID, a.Category, n)
	case PolicyAbsoluteMirror:
		return s.SetProgress(ctx, user.ID, a.Category, user.TimeSpent)
	case PolicyIncremental:
		return s.IncrementProgress(ctx, user.ID, a.Category, a.Delta)
	default:
		return 0, Invalidf("no progress policy for category %q", a.Category)
	}
}

// countRecords returns the authoritative count behind an absolute-count category.
func countRecords(ctx context.Context, s Store, userID int64, c model.TaskCategory) (int64, error) {
	switch c {
	case model.CategoryChat:
		return s.CountChatMessages(ctx, userID)
	case model.CategoryPurchase:
		return s.CountOwnedTitles(ctx, userID)
	default:
		return 0, Invalidf("category %q has no record count", c)
	}
}
