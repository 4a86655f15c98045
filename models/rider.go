package models

import (
	"time"

	"quickbite/api/geo"
)

type RiderStatus string

const (
	RiderStatusPending   RiderStatus = "pending"
	RiderStatusApproved  RiderStatus = "approved"
	RiderStatusSuspended RiderStatus = "suspended"
)

type VehicleType string

const (
	VehicleBicycle    VehicleType = "bicycle"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleCar        VehicleType = "car"
)

type Earning struct {
	OrderID string    `json:"order_id"`
	Amount  float64   `json:"amount"`
	Date    time.Time `json:"date"`
}

type Earnings struct {
	Total   float64   `json:"total"`
	Pending float64   `json:"pending"`
	History []Earning `json:"history"`
}

type Rider struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Phone           string         `json:"phone"`
	Status          RiderStatus    `json:"status"`
	IsAvailable     bool           `json:"is_available"`
	CurrentLocation geo.Coordinate `json:"current_location"`
	VehicleType     VehicleType    `json:"vehicle_type"`
	VehicleNumber   string         `json:"vehicle_number"`

	// MaxDistanceKm is how far from the delivery point the rider is
	// willing to be offered orders.
	MaxDistanceKm float64 `json:"max_distance_km"`

	ActiveOrderID string   `json:"active_order_id,omitempty"`
	OrderHistory  []string `json:"order_history,omitempty"`
	Earnings      Earnings `json:"earnings"`

	Rating       float64 `json:"rating"`
	TotalRatings int     `json:"total_ratings"`
}

// RiderProfile is the redacted view pushed to customers and restaurants
// when a rider is assigned. No financial or account data.
type RiderProfile struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	VehicleType   VehicleType `json:"vehicle_type"`
	VehicleNumber string      `json:"vehicle_number"`
}

func (r *Rider) Profile() RiderProfile {
	return RiderProfile{
		ID:            r.ID,
		Name:          r.Name,
		Phone:         r.Phone,
		VehicleType:   r.VehicleType,
		VehicleNumber: r.VehicleNumber,
	}
}
