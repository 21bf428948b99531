package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Number of open realtime connections.",
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_emitted_total",
		Help: "Events emitted to rooms, by event type.",
	}, []string{"event"})

	MessagesPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_messages_persisted_total",
		Help: "Message records written, by kind (primary, forward, copy).",
	}, []string{"kind"})

	NotificationCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_notification_cache_total",
		Help: "Notification cache lookups and failures, by result.",
	}, []string{"result"})

	RetentionPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_retention_purged_total",
		Help: "Tombstoned messages permanently removed by the retention sweep.",
	})

	RetentionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_retention_failures_total",
		Help: "Retention sweeps that ended in an error.",
	})
)

// Handler exposes the default registry
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
