package history

import "time"

type Record struct {
	ID           int64     `json:"id"`
	SiteID       int64     `json:"site_id"`
	StatusCode   *int      `json:"status_code"`
	ResponseTime float64   `json:"response_time"`
	Timestamp    time.Time `json:"timestamp"`
	Success      bool      `json:"success"`
}
