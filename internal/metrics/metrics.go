package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BanEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crossban_ban_events_total",
		Help: "Originating ban events recorded.",
	})

	BanSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossban_ban_sync_total",
			Help: "Per-guild ban propagation attempts.",
		},
		[]string{"result"},
	)

	UnbanSyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossban_unban_sync_total",
			Help: "Per-guild automatic unban attempts.",
		},
		[]string{"result"},
	)

	ReviewsPostedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crossban_reviews_posted_total",
		Help: "Unban review prompts posted to REVIEW-mode guilds.",
	})

	ReviewsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossban_reviews_resolved_total",
			Help: "Review prompts resolved, by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers the engine metrics with the default registry.
func Init() {
	prometheus.MustRegister(
		BanEventsTotal,
		BanSyncTotal,
		UnbanSyncTotal,
		ReviewsPostedTotal,
		ReviewsResolvedTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
