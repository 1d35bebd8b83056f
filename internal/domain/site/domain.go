package site

import "time"

type Status string

const (
	StatusPending Status = "pending"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

const DefaultCheckInterval = 300 * time.Second

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOnline, StatusOffline:
		return true
	}
	return false
}

// CanTransition reports whether a site in state s may move to next.
// pending is only ever an initial state.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() {
		return false
	}
	return next == StatusOnline || next == StatusOffline
}

type Site struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	URL           string        `json:"url"`
	AddedAt       time.Time     `json:"added_at"`
	LastCheck     time.Time     `json:"last_check"`
	Status        Status        `json:"status"`
	CheckInterval time.Duration `json:"check_interval"`
}

// Counters are the raw aggregates stats are computed from.
type Counters struct {
	TotalChecks   int64
	SuccessChecks int64
	OpenErrors    int64
}
