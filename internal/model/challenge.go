package model

import "time"

// DailyChallenge is one of today's challenges together with the user's
// completion status for it.
type DailyChallenge struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

func (c DailyChallenge) Key() string { return c.ID }

// Completable is false once the challenge is done for the day.
func (c DailyChallenge) Completable() bool { return !c.IsCompleted }

// AllCompleted is true for a non-empty list where every challenge is done.
func AllCompleted(cs []DailyChallenge) bool {
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if !c.IsCompleted {
			return false
		}
	}
	return true
}
