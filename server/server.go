// Package server assembles the fiber application: middleware, routes,
// metrics and the WebSocket endpoint.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quickbite/api/config"
	"quickbite/api/dispatch"
	"quickbite/api/events"
	"quickbite/api/handlers"
	"quickbite/api/notify"
)

// New builds the fiber app around an already-wired handler set.
func New(cfg *config.Config, h *handlers.Handler, coordinator *dispatch.Coordinator, hub *notify.Hub) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(metricsMiddleware())

	registerGauges(coordinator, hub)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/swagger/*", swagger.HandlerDefault)

	h.Register(app)

	app.Use("/ws", h.ValidateToken)
	app.Get("/ws", websocket.New(h.HandleWS))

	return app
}

// MetricsRecorder tees audit events into the prometheus counters before
// forwarding them to the underlying recorder.
type MetricsRecorder struct {
	Next events.Recorder
}

func (m MetricsRecorder) Record(event string, fields map[string]interface{}) {
	switch event {
	case "order_created":
		ordersPlaced.Inc()
	case "order_delivered":
		ordersDelivered.Inc()
	}
	m.Next.Record(event, fields)
}
