package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loyalty_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	AuthRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_auth_rejections_total",
			Help: "Requests rejected by an authentication gate",
		},
		[]string{"gate"},
	)
	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_settlements_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)
	PointsEarned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_earned_total",
		Help: "Points credited by settlements",
	})
	PointsRedeemed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_points_redeemed_total",
		Help: "Points debited by redemptions",
	})
	PassBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_pass_builds_total",
			Help: "Wallet passes built, by whether they carry a real signature",
		},
		[]string{"signed"},
	)
	PushDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_push_deliveries_total",
			Help: "Wallet push notifications by result",
		},
		[]string{"result"},
	)
	PushQueueDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_push_queue_dropped_total",
		Help: "Pass update jobs dropped because the queue was full",
	})
)

// Register adds every collector to reg. Call once from main.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		AuthRejections,
		Settlements,
		PointsEarned,
		PointsRedeemed,
		PassBuilds,
		PushDeliveries,
		PushQueueDropped,
	)
}
