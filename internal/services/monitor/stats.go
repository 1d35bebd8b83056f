package monitor

import (
	"context"

	"github.com/NordCoder/Sitewatch/internal/domain/site"
)

type Stats struct {
	TotalChecks      int64   `json:"total_checks"`
	SuccessChecks    int64   `json:"success_checks"`
	ErrorCount       int64   `json:"error_count"`
	UptimePercentage float64 `json:"uptime_percentage"`
}

// ComputeStats derives lifetime uptime from raw counters.
func ComputeStats(c site.Counters) Stats {
	st := Stats{
		TotalChecks:   c.TotalChecks,
		SuccessChecks: c.SuccessChecks,
		ErrorCount:    c.OpenErrors,
	}
	if c.TotalChecks > 0 {
		st.UptimePercentage = float64(c.SuccessChecks) / float64(c.TotalChecks) * 100
	}
	return st
}

type StatsAggregator struct {
	Sites site.Repo
}

func (a *StatsAggregator) Compute(ctx context.Context, siteID int64) (*Stats, error) {
	c, err := a.Sites.Counters(ctx, siteID)
	if err != nil {
		return nil, storeErr("site counters", err)
	}
	st := ComputeStats(*c)
	return &st, nil
}
