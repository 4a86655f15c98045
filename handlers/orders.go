package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"quickbite/api/dispatch"
	"quickbite/api/models"
	"quickbite/api/orders"
)

type createOrderRequest struct {
	CustomerID      string               `json:"customer_id"`
	RestaurantID    string               `json:"restaurant_id"`
	Items           []models.OrderItem   `json:"items"`
	DeliveryAddress models.Address       `json:"delivery_address"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	Notes           string               `json:"notes"`
}

// @Summary Place a new order
// @Tags Orders
// @Accept json
// @Produce json
// @Success 201 {object} models.Order
// @Router /orders [post]
func (h *Handler) createOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.CustomerID == "" || req.RestaurantID == "" || len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "customer_id, restaurant_id and items are required")
	}

	order, err := h.coordinator.PlaceOrder(c.Context(), orders.CreateRequest{
		CustomerID:      req.CustomerID,
		RestaurantID:    req.RestaurantID,
		Items:           req.Items,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// @Summary Get an order
// @Tags Orders
// @Produce json
// @Success 200 {object} models.Order
// @Router /orders/{id} [get]
func (h *Handler) getOrder(c *fiber.Ctx) error {
	order, err := h.ledger.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(order)
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
	Note   string             `json:"note"`
	Actor  models.ActorKind   `json:"actor"`
}

// @Summary Advance order status
// @Tags Orders
// @Accept json
// @Produce json
// @Success 200 {object} models.Order
// @Router /orders/{id}/status [post]
func (h *Handler) updateOrderStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Actor == "" {
		req.Actor = models.ActorRestaurant
	}
	order, err := h.coordinator.TransitionOrder(c.Context(), c.Params("id"), req.Status, req.Note, req.Actor)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

type acceptRequest struct {
	RiderID string `json:"rider_id"`
}

// @Summary Rider accepts an order
// @Tags Orders
// @Accept json
// @Produce json
// @Success 200 {object} models.Order
// @Router /orders/{id}/accept [post]
func (h *Handler) acceptOrder(c *fiber.Ctx) error {
	var req acceptRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.RiderID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "rider_id is required")
	}
	order, err := h.coordinator.AcceptOrder(c.Context(), req.RiderID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(order)
}

type cancelRequest struct {
	Reason string           `json:"reason"`
	Actor  models.ActorKind `json:"actor"`
}

// @Summary Cancel an order
// @Tags Orders
// @Accept json
// @Produce json
// @Success 200 {object} models.Order
// @Router /orders/{id}/cancel [post]
func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	var req cancelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Actor == "" {
		req.Actor = models.ActorUser
	}
	order, err := h.coordinator.TransitionOrder(c.Context(), c.Params("id"), models.OrderStatusCancelled, req.Reason, req.Actor)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

// @Summary Rate a delivered order
// @Tags Orders
// @Accept json
// @Router /orders/{id}/rate [post]
func (h *Handler) rateOrder(c *fiber.Ctx) error {
	var req dispatch.RateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Restaurant == nil && req.Rider == nil {
		return fiber.NewError(fiber.StatusBadRequest, "at least one rating target is required")
	}
	if err := h.coordinator.RateOrder(c.Context(), c.Params("id"), req); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type paymentRequest struct {
	Method        models.PaymentMethod `json:"method"`
	Status        models.PaymentStatus `json:"status"`
	TransactionID string               `json:"transaction_id"`
}

// @Summary Record a payment result
// @Tags Orders
// @Accept json
// @Produce json
// @Success 200 {object} models.Order
// @Router /orders/{id}/payment [post]
func (h *Handler) recordPayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	order, err := h.coordinator.RecordPayment(c.Context(), c.Params("id"), req.Method, req.Status, req.TransactionID)
	if err != nil {
		return err
	}
	return c.JSON(order)
}

// statusCode maps core errors onto HTTP statuses. Conflicts under
// contention are expected, not server faults.
func statusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrOrderNotFound),
		errors.Is(err, models.ErrRiderNotFound),
		errors.Is(err, models.ErrRestaurantNotFound),
		errors.Is(err, models.ErrCustomerNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrRiderAlreadyAssigned),
		errors.Is(err, models.ErrOrderAlreadyAssigned),
		errors.Is(err, models.ErrAlreadyRated):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrRestaurantClosed),
		errors.Is(err, models.ErrBelowMinimumOrder),
		errors.Is(err, models.ErrOrderNotDelivered),
		errors.Is(err, models.ErrInvalidTarget),
		errors.Is(err, models.ErrInvalidRating):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the fiber error handler wired in server.New.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := statusCode(err)
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
