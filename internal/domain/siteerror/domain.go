package siteerror

import "time"

const TypeConnection = "connection_error"

const DefaultListLimit = 10

type Error struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SiteID    int64     `json:"site_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`

	// SiteURL is filled by listings only.
	SiteURL string `json:"url,omitempty"`
}

type Filter struct {
	UserID int64
	SiteID *int64
	Limit  int
}
