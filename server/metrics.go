package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quickbite/api/dispatch"
	"quickbite/api/notify"
)

var (
	ordersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quickbite_orders_placed_total",
		Help: "The total number of orders placed",
	})

	ordersDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quickbite_orders_delivered_total",
		Help: "The total number of orders delivered",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quickbite_request_duration_seconds",
		Help:    "Time spent handling a request",
		Buckets: prometheus.DefBuckets,
	})
)

// registerGauges exposes live readings from the coordinator and the hub.
// Called once from New.
func registerGauges(coordinator *dispatch.Coordinator, hub *notify.Hub) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "quickbite_pending_offers",
		Help: "Orders currently waiting for a rider to accept",
	}, func() float64 { return float64(coordinator.PendingOffers()) })

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "quickbite_ws_connected_clients",
		Help: "Currently connected WebSocket clients",
	}, func() float64 { return float64(hub.ConnCount()) })
}

func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		requestDuration.Observe(time.Since(start).Seconds())
		return err
	}
}
