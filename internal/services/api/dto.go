package api

import (
	"time"

	"github.com/NordCoder/Sitewatch/internal/domain/site"
	"github.com/NordCoder/Sitewatch/internal/domain/siteerror"
	"github.com/NordCoder/Sitewatch/internal/probe"
	"github.com/NordCoder/Sitewatch/internal/services/monitor"
)

type userRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type addSiteRequest struct {
	URL string `json:"url"`
	// Reason is the failure reported by the first attempt; confirm only.
	Reason string `json:"reason,omitempty"`
}

type siteDTO struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	URL           string     `json:"url"`
	AddedAt       time.Time  `json:"added_at"`
	LastCheck     *time.Time `json:"last_check,omitempty"`
	Status        string     `json:"status"`
	CheckInterval int64      `json:"check_interval"`
}

func toSite(s *site.Site) *siteDTO {
	if s == nil {
		return nil
	}
	out := &siteDTO{
		ID:            s.ID,
		UserID:        s.UserID,
		URL:           s.URL,
		AddedAt:       s.AddedAt,
		Status:        string(s.Status),
		CheckInterval: int64(s.CheckInterval / time.Second),
	}
	if !s.LastCheck.IsZero() {
		lc := s.LastCheck
		out.LastCheck = &lc
	}
	return out
}

func toSites(list []*site.Site) []*siteDTO {
	out := make([]*siteDTO, 0, len(list))
	for _, s := range list {
		out = append(out, toSite(s))
	}
	return out
}

type outcomeDTO struct {
	Reachable    bool    `json:"reachable"`
	StatusCode   int     `json:"status_code,omitempty"`
	ResponseTime float64 `json:"response_time"`
	Reason       string  `json:"reason,omitempty"`
}

func toOutcome(o probe.Outcome) outcomeDTO {
	return outcomeDTO{
		Reachable:    o.Reachable,
		StatusCode:   o.StatusCode,
		ResponseTime: o.ResponseTime.Seconds(),
		Reason:       o.Reason,
	}
}

type checkDTO struct {
	Site    *siteDTO         `json:"site"`
	Outcome outcomeDTO       `json:"outcome"`
	Error   *siteerror.Error `json:"error,omitempty"`
	Changed bool             `json:"changed"`
	Failure string           `json:"failure,omitempty"`
}

func toCheck(r *monitor.CheckResult) *checkDTO {
	if r == nil {
		return nil
	}
	out := &checkDTO{
		Site:    toSite(r.Site),
		Outcome: toOutcome(r.Outcome),
		Error:   r.Error,
		Changed: r.Changed,
	}
	if r.Err != nil {
		out.Failure = r.Err.Error()
	}
	return out
}

type addSiteResponse struct {
	Created bool       `json:"created"`
	Site    *siteDTO   `json:"site,omitempty"`
	Outcome outcomeDTO `json:"outcome"`
}

type siteInfoResponse struct {
	Site  *siteDTO       `json:"site"`
	Stats *monitor.Stats `json:"stats"`
	Check *checkDTO      `json:"check,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
