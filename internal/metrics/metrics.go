package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carelink/carelink/internal/call"
)

// OnlineCounter exposes the number of agents with at least one live socket.
type OnlineCounter interface {
	OnlineCount() int
}

// RoomCounter exposes the number of call rooms with at least one participant.
type RoomCounter interface {
	RoomCount() int
}

// ConnectionCounter exposes the number of open websocket connections.
type ConnectionCounter interface {
	ConnectionCount() int64
}

// CallStatusCounter returns call counts grouped by lifecycle status.
type CallStatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// Collector is a prometheus.Collector that gathers CareLink metrics at scrape time.
type Collector struct {
	presence    OnlineCounter
	rooms       RoomCounter
	connections ConnectionCounter
	calls       CallStatusCounter
	startTime   time.Time

	// Metric descriptors.
	agentsOnlineDesc *prometheus.Desc
	roomsDesc        *prometheus.Desc
	connectionsDesc  *prometheus.Desc
	callsTotalDesc   *prometheus.Desc
	uptimeDesc       *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if unavailable.
func NewCollector(
	presence OnlineCounter,
	rooms RoomCounter,
	connections ConnectionCounter,
	calls CallStatusCounter,
	startTime time.Time,
) *Collector {
	return &Collector{
		presence:    presence,
		rooms:       rooms,
		connections: connections,
		calls:       calls,
		startTime:   startTime,

		agentsOnlineDesc: prometheus.NewDesc(
			"carelink_agents_online",
			"Number of agents with at least one open websocket session",
			nil, nil,
		),
		roomsDesc: prometheus.NewDesc(
			"carelink_call_rooms_active",
			"Number of call rooms with at least one participant",
			nil, nil,
		),
		connectionsDesc: prometheus.NewDesc(
			"carelink_websocket_connections",
			"Number of open websocket connections",
			nil, nil,
		),
		callsTotalDesc: prometheus.NewDesc(
			"carelink_calls_total",
			"Total number of calls by lifecycle status",
			[]string{"status"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"carelink_uptime_seconds",
			"Seconds since the CareLink process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.agentsOnlineDesc
	ch <- c.roomsDesc
	ch <- c.connectionsDesc
	ch <- c.callsTotalDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.presence != nil {
		ch <- prometheus.MustNewConstMetric(
			c.agentsOnlineDesc, prometheus.GaugeValue,
			float64(c.presence.OnlineCount()),
		)
	}

	if c.rooms != nil {
		ch <- prometheus.MustNewConstMetric(
			c.roomsDesc, prometheus.GaugeValue,
			float64(c.rooms.RoomCount()),
		)
	}

	if c.connections != nil {
		ch <- prometheus.MustNewConstMetric(
			c.connectionsDesc, prometheus.GaugeValue,
			float64(c.connections.ConnectionCount()),
		)
	}

	// Call volume counters by status, one series per known status so the
	// set of label values is stable across scrapes.
	if c.calls != nil {
		counts, err := c.calls.CountByStatus(ctx)
		if err != nil {
			slog.Error("metrics: failed to count calls by status", "error", err)
		} else {
			for _, st := range call.AllStatuses {
				ch <- prometheus.MustNewConstMetric(
					c.callsTotalDesc, prometheus.CounterValue,
					float64(counts[string(st)]), string(st),
				)
			}
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
