package models

import "quickbite/api/geo"

type Restaurant struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	IsOpen       bool           `json:"is_open"`
	MinimumOrder float64        `json:"minimum_order"`
	DeliveryFee  float64        `json:"delivery_fee"`
	Location     geo.Coordinate `json:"location"`

	ActiveOrders []string `json:"active_orders,omitempty"`
	OrderHistory []string `json:"order_history,omitempty"`

	Rating       float64 `json:"rating"`
	TotalRatings int     `json:"total_ratings"`
}
