// Package handlers binds the HTTP and WebSocket surface to the dispatch
// core. Handlers stay thin: parse, call, map errors.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"quickbite/api/dispatch"
	"quickbite/api/notify"
	"quickbite/api/orders"
	"quickbite/api/riders"
	"quickbite/api/storage"
)

type Handler struct {
	coordinator *dispatch.Coordinator
	ledger      *orders.Ledger
	directory   *riders.Directory
	store       storage.Store
	hub         *notify.Hub
	jwtSecret   string
}

func New(
	coordinator *dispatch.Coordinator,
	ledger *orders.Ledger,
	directory *riders.Directory,
	store storage.Store,
	hub *notify.Hub,
	jwtSecret string,
) *Handler {
	return &Handler{
		coordinator: coordinator,
		ledger:      ledger,
		directory:   directory,
		store:       store,
		hub:         hub,
		jwtSecret:   jwtSecret,
	}
}

// Register mounts all API routes on the app.
func (h *Handler) Register(app *fiber.App) {
	v1 := app.Group("/api/v1")

	ordersGroup := v1.Group("/orders")
	ordersGroup.Post("/", h.createOrder)
	ordersGroup.Get("/:id", h.getOrder)
	ordersGroup.Post("/:id/status", h.updateOrderStatus)
	ordersGroup.Post("/:id/accept", h.acceptOrder)
	ordersGroup.Post("/:id/cancel", h.cancelOrder)
	ordersGroup.Post("/:id/rate", h.rateOrder)
	ordersGroup.Post("/:id/payment", h.recordPayment)

	ridersGroup := v1.Group("/riders")
	ridersGroup.Get("/:id", h.getRider)
	ridersGroup.Post("/:id/location", h.updateRiderLocation)
	ridersGroup.Post("/:id/availability", h.updateRiderAvailability)

	v1.Get("/restaurants/:id", h.getRestaurant)
}
