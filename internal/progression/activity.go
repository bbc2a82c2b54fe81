package progression

import (
	"fmt"

	"coinchat/internal/model"
)

// Policy is the strategy used to derive a category's new progress value.
type Policy int

const (
	// PolicyAbsoluteCount recomputes progress from a count of records.
	PolicyAbsoluteCount Policy = iota + 1
	// PolicyAbsoluteMirror copies the user's cumulative time counter.
	PolicyAbsoluteMirror
	// PolicyIncremental adds a caller-supplied delta. Replayed calls count twice.
	PolicyIncremental
)

func (p Policy) String() string {
	switch p {
	case PolicyAbsoluteCount:
		return "absolute-count"
	case PolicyAbsoluteMirror:
		return "absolute-mirror"
	case PolicyIncremental:
		return "incremental"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// PolicyFor selects the progress policy of a category.
func PolicyFor(c model.TaskCategory) Policy {
	switch c {
	case model.CategoryChat, model.CategoryPurchase:
		return PolicyAbsoluteCount
	case model.CategoryTime:
		return PolicyAbsoluteMirror
	default:
		return PolicyIncremental
	}
}

// Activity is one domain event fed to the engine.
type Activity struct {
	Category model.TaskCategory
	// Delta is the increment for custom categories; zero otherwise.
	Delta int64
	// Scope restricts completion evaluation to one category. Empty means all.
	Scope model.TaskCategory
}

// ChatSent is the activity of posting a chat message.
func ChatSent() Activity {
	return Activity{Category: model.CategoryChat, Scope: model.CategoryChat}
}

// TitlePurchased is the activity of buying a title.
func TitlePurchased() Activity {
	return Activity{Category: model.CategoryPurchase, Scope: model.CategoryPurchase}
}

// TimeReported is the activity of the client reporting elapsed minutes.
// The minutes are applied by the adapter before the pipeline runs.
func TimeReported() Activity {
	return Activity{Category: model.CategoryTime}
}

// ActionPerformed is a custom action advancing its tag by value.
func ActionPerformed(tag model.TaskCategory, value int64) Activity {
	return Activity{Category: tag, Delta: value}
}

// Policy returns the progress policy for the activity's category.
func (a Activity) Policy() Policy {
	return PolicyFor(a.Category)
}

func (a Activity) validate() error {
	if a.Category == "" {
		return Invalidf("activity category is empty")
	}
	if a.Scope != "" && a.Scope != a.Category {
		return Invalidf("evaluation scope %q differs from category %q", a.Scope, a.Category)
	}
	switch a.Policy() {
	case PolicyIncremental:
		if a.Delta <= 0 {
			return Invalidf("action value must be positive, got %d", a.Delta)
		}
	case PolicyAbsoluteCount, PolicyAbsoluteMirror:
		if a.Delta != 0 {
			return Invalidf("category %q does not accept a delta", a.Category)
		}
	}
	return nil
}
