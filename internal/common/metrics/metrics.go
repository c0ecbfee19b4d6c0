package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of notifications delivered",
		},
		[]string{"channel"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of notifications that reached terminal failure",
		},
		[]string{"channel", "error_code"},
	)

	NotificationsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_skipped_total",
			Help: "Total number of sends skipped by user preference",
		},
		[]string{"channel"},
	)

	SendAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "notification_send_attempt_duration_seconds",
			Help: "Duration of a single transport send attempt",
		},
		[]string{"channel"},
	)

	SendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_send_retries_total",
			Help: "Total number of send attempts rescheduled for retry",
		},
		[]string{"channel"},
	)

	QueueJobsReady = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_jobs_ready",
			Help: "Number of jobs ready for processing in the queue",
		},
		[]string{"queue"},
	)

	BroadcastsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcasts_completed_total",
			Help: "Total number of broadcasts that finished fan-out",
		},
	)

	BroadcastFanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_fanout_duration_seconds",
			Help:    "Duration of a full broadcast fan-out",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)
