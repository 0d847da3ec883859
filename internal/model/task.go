package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the urgency of a task as the backend spells it.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityTop    Priority = "Top"
)

// DefaultPriority is what new tasks get when the user doesn't choose.
const DefaultPriority = PriorityMedium

var priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityTop}

// Priorities lists every priority from lowest to highest.
func Priorities() []Priority {
	out := make([]Priority, len(priorities))
	copy(out, priorities)
	return out
}

// ParsePriority accepts any casing ("top", "TOP", "Top").
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	for _, p := range priorities {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (want one of Low, Medium, High, Top)", s)
}

// Task is a to-do item owned by a user.
type Task struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UserID      string     `json:"user_id"`
}

// Key identifies the task inside a collection.
func (t Task) Key() string { return t.ID }

// Completable reports whether a completion control should be offered.
// A completed task never offers it again.
func (t Task) Completable() bool { return !t.IsCompleted }

// NewTask is the creation payload for POST /todos/.
type NewTask struct {
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// DueDateLayout is the date-only format users type due dates in.
const DueDateLayout = "2006-01-02"

// ParseDueDate turns "YYYY-MM-DD" into midnight UTC of that day.
// An empty string means no due date.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(DueDateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("due date %q: want YYYY-MM-DD", s)
	}
	return &d, nil
}
