package model

import (
	"fmt"
	"strings"
)

// TaskCategory tags the activity that advances a task. The three built-in
// categories have fixed measurement sources; any other non-empty tag is a
// custom action category advanced by the generic-action adapter.
type TaskCategory string

// Built-in task categories.
const (
	CategoryChat     TaskCategory = "chat"
	CategoryPurchase TaskCategory = "purchase"
	CategoryTime     TaskCategory = "time"
)

// maxCategoryLength matches the tasks.task_type column width.
const maxCategoryLength = 50

// BuiltinCategories returns the categories with a fixed measurement source.
func BuiltinCategories() []TaskCategory {
	return []TaskCategory{CategoryChat, CategoryPurchase, CategoryTime}
}

// IsBuiltin reports whether c is one of chat, purchase or time.
func (c TaskCategory) IsBuiltin() bool {
	switch c {
	case CategoryChat, CategoryPurchase, CategoryTime:
		return true
	}
	return false
}

// IsCustom reports whether c is a caller-defined action tag.
func (c TaskCategory) IsCustom() bool {
	return c != "" && !c.IsBuiltin()
}

func (c TaskCategory) String() string {
	return string(c)
}

// ParseActionTag turns a client-supplied action tag into a custom category.
// Tags match tasks.task_type exactly, case included; only surrounding
// whitespace is dropped. Built-in names are rejected: their progress is
// derived from authoritative records and must not be incremented directly.
func ParseActionTag(tag string) (TaskCategory, error) {
	c := TaskCategory(strings.TrimSpace(tag))
	if c == "" {
		return "", fmt.Errorf("action tag is empty")
	}
	if len(c) > maxCategoryLength {
		return "", fmt.Errorf("action tag longer than %d characters", maxCategoryLength)
	}
	if c.IsBuiltin() {
		return "", fmt.Errorf("action tag %q is reserved", c)
	}
	return c, nil
}
