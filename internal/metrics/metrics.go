package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callerd_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	CallsPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callerd_calls_placed_total",
			Help: "Outbound calls placed, by kind (initial or follow_up)",
		},
		[]string{"kind"},
	)

	Turns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callerd_turns_total",
			Help: "Completed conversational turns (final transcript through reply)",
		},
	)

	TurnLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "callerd_turn_latency_seconds",
			Help: "Time from final transcript to playback dispatch",
		},
	)

	BargeIns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callerd_barge_ins_total",
			Help: "Caller interruptions detected during playback",
		},
	)

	SynthesisFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callerd_synthesis_failures_total",
			Help: "Per-chunk TTS failures (chunk skipped, utterance continues)",
		},
	)

	FollowUpsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callerd_follow_ups_scheduled_total",
			Help: "Follow-up tasks registered after negative emotion",
		},
	)

	FollowUpsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "callerd_follow_ups_fired_total",
			Help: "Follow-up calls actually placed",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callerd_active_sessions",
			Help: "Sessions held in the registry",
		},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "callerd_active_streams",
			Help: "Open media-stream connections",
		},
	)
)
