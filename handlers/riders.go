package handlers

import (
	"github.com/gofiber/fiber/v2"

	"quickbite/api/geo"
)

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// @Summary Update rider location
// @Tags Riders
// @Accept json
// @Router /riders/{id}/location [post]
func (h *Handler) updateRiderLocation(c *fiber.Ctx) error {
	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.coordinator.UpdateRiderLocation(c.Context(), c.Params("id"), geo.Coordinate{Lat: req.Lat, Lng: req.Lng}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

// @Summary Update rider availability
// @Tags Riders
// @Accept json
// @Router /riders/{id}/availability [post]
func (h *Handler) updateRiderAvailability(c *fiber.Ctx) error {
	var req availabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.directory.SetAvailability(c.Context(), c.Params("id"), req.Available); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// @Summary Get rider profile
// @Tags Riders
// @Produce json
// @Success 200 {object} models.Rider
// @Router /riders/{id} [get]
func (h *Handler) getRider(c *fiber.Ctx) error {
	rider, err := h.directory.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rider)
}

// @Summary Get restaurant
// @Tags Restaurants
// @Produce json
// @Success 200 {object} models.Restaurant
// @Router /restaurants/{id} [get]
func (h *Handler) getRestaurant(c *fiber.Ctx) error {
	restaurant, err := h.store.GetRestaurant(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(restaurant)
}
