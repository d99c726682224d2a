package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the bot
type Metrics struct {
	// Slack event intake
	SlackEvents *prometheus.CounterVec

	// Command outcomes after normalization
	Commands *prometheus.CounterVec

	// Lifecycle posts (announcement, summary, start)
	LifecyclePosts *prometheus.CounterVec

	// Sheet mirroring
	SheetSyncs       *prometheus.CounterVec
	SheetSyncLatency prometheus.Histogram

	// Attendance board
	BoardConnections prometheus.Gauge
	BoardMessages    *prometheus.CounterVec

	// Connection manager reference for dynamic metrics
	connManager *ConnectionManager
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. queueLen reports the
// current presenter queue length for the gauge collector.
func InitMetrics(connManager *ConnectionManager, queueLen func() int) *Metrics {
	metrics := &Metrics{
		connManager: connManager,

		// Event deliveries by Slack event type
		SlackEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studybot_slack_events_total",
			Help: "Total number of Slack events received by type",
		}, []string{"type"}),

		// Normalized commands by outcome
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studybot_commands_total",
			Help: "Total number of commands applied to the day record",
		}, []string{"command", "outcome"}), // outcome: applied, noop, stale, rejected, error

		LifecyclePosts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studybot_lifecycle_posts_total",
			Help: "Total number of scheduled channel posts by kind and status",
		}, []string{"kind", "status"}),

		// Sheet row writes by status
		SheetSyncs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studybot_sheet_syncs_total",
			Help: "Total number of sheet row writes by status",
		}, []string{"status"}),

		// Sheet write latency
		SheetSyncLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "studybot_sheet_sync_duration_seconds",
			Help:    "Sheet row write latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		// Board websocket connections (gauge - can go up and down)
		BoardConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "studybot_board_connections_active",
			Help: "Number of active attendance board connections",
		}),

		// Board messages by type
		BoardMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "studybot_board_messages_total",
			Help: "Total number of board messages by type and direction",
		}, []string{"type", "direction"}),
	}

	// Register a collector that reads the presenter queue length live
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "studybot_presenter_queue_length",
			Help: "Current number of presenter candidates for today",
		},
		func() float64 {
			if queueLen != nil {
				return float64(queueLen())
			}
			return 0
		},
	))

	// Register a collector that reads connections from the manager
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "studybot_board_connections_current",
			Help: "Current number of board connections (from connection manager)",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordSlackEvent records one delivered Slack event
func (m *Metrics) RecordSlackEvent(eventType string) {
	m.SlackEvents.WithLabelValues(eventType).Inc()
}

// RecordCommand records a command application outcome
func (m *Metrics) RecordCommand(command, outcome string) {
	m.Commands.WithLabelValues(command, outcome).Inc()
}

// RecordLifecyclePost records a scheduled post attempt
func (m *Metrics) RecordLifecyclePost(kind, status string) {
	m.LifecyclePosts.WithLabelValues(kind, status).Inc()
}

// RecordSheetSync records one sheet row write
func (m *Metrics) RecordSheetSync(status string, seconds float64) {
	m.SheetSyncs.WithLabelValues(status).Inc()
	m.SheetSyncLatency.Observe(seconds)
}

// RecordBoardConnect records a new board connection
func (m *Metrics) RecordBoardConnect() {
	m.BoardConnections.Inc()
}

// RecordBoardDisconnect records a board disconnection
func (m *Metrics) RecordBoardDisconnect() {
	m.BoardConnections.Dec()
}

// RecordBoardMessage records a board message
func (m *Metrics) RecordBoardMessage(msgType, direction string) {
	m.BoardMessages.WithLabelValues(msgType, direction).Inc()
}
