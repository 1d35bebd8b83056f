package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Sitewatch/internal/domain/site"
)

func TestComputeStats(t *testing.T) {
	cases := []struct {
		name   string
		in     site.Counters
		uptime float64
	}{
		{"no checks", site.Counters{}, 0},
		{"no checks with open errors", site.Counters{OpenErrors: 3}, 0},
		{"all success", site.Counters{TotalChecks: 4, SuccessChecks: 4}, 100},
		{"none success", site.Counters{TotalChecks: 4}, 0},
		{"partial", site.Counters{TotalChecks: 8, SuccessChecks: 6, OpenErrors: 1}, 75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := ComputeStats(tc.in)
			require.InDelta(t, tc.uptime, st.UptimePercentage, 1e-9)
			require.GreaterOrEqual(t, st.UptimePercentage, 0.0)
			require.LessOrEqual(t, st.UptimePercentage, 100.0)
			require.Equal(t, tc.in.TotalChecks, st.TotalChecks)
			require.Equal(t, tc.in.SuccessChecks, st.SuccessChecks)
			require.Equal(t, tc.in.OpenErrors, st.ErrorCount)
		})
	}
}
