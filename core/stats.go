package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vivooifo-droid/defacto-backend/core/observability"
	"github.com/vivooifo-droid/defacto-backend/core/pools"
)

// EngineStats is a point-in-time view of an engine.
type EngineStats struct {
	Connections ConnectionStats            `json:"connections"`
	Requests    observability.Totals       `json:"requests"`
	Routes      []observability.RouteStats `json:"routes"`
	Buffers     pools.BufferStats          `json:"buffers"`
}

type ConnectionStats struct {
	Accepted     uint64 `json:"accepted"`
	Active       int64  `json:"active"`
	AcceptErrors uint64 `json:"accept_errors"`
}

// Stats returns connection, request, per-route and buffer pool statistics.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Connections: ConnectionStats{
			Accepted:     e.accepted.Load(),
			Active:       e.active.Load(),
			AcceptErrors: e.acceptErrors.Load(),
		},
		Requests: e.monitor.Totals(),
		Routes:   e.monitor.Snapshot(),
		Buffers:  pools.GetBufferStats(),
	}
}

// StatsJSON returns engine statistics as JSON string
func (e *Engine) StatsJSON() string {
	data, _ := json.MarshalIndent(e.Stats(), "", "  ")
	return string(data)
}

// StatsText returns engine statistics as human-readable text
func (e *Engine) StatsText() string {
	stats := e.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, `Engine Statistics
=================

Connections:
  Accepted:      %d
  Active:        %d
  Accept errors: %d

Requests:
  Total:    %d
  Errors:   %d
  Avg time: %v
`,
		stats.Connections.Accepted, stats.Connections.Active, stats.Connections.AcceptErrors,
		stats.Requests.Requests, stats.Requests.Errors, stats.Requests.AvgDuration,
	)

	if len(stats.Routes) > 0 {
		b.WriteString("\nRoutes:\n")
		for _, r := range stats.Routes {
			fmt.Fprintf(&b, "  %-30s count=%d errors=%d avg=%v max=%v\n",
				r.Route, r.Count, r.Errors, r.AvgDuration, r.MaxDuration)
		}
	}

	fmt.Fprintf(&b, `
Response Buffers:
  Gets:    %d small / %d medium / %d large
  Puts:    %d
  Dropped: %d
`,
		stats.Buffers.SmallGets, stats.Buffers.MediumGets, stats.Buffers.LargeGets,
		stats.Buffers.Puts, stats.Buffers.Dropped,
	)
	return b.String()
}
