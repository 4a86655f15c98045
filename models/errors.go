package models

import "errors"

// Expected, caller-correctable conditions. Handlers map these to 4xx
// responses; everything else is a 500.
var (
	ErrRestaurantClosed     = errors.New("restaurant is closed")
	ErrBelowMinimumOrder    = errors.New("order subtotal below restaurant minimum")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrRiderAlreadyAssigned = errors.New("rider already has an active order")
	ErrOrderAlreadyAssigned = errors.New("order already has a rider")
	ErrOrderNotDelivered    = errors.New("order has not been delivered")
	ErrAlreadyRated         = errors.New("already rated")
	ErrInvalidTarget        = errors.New("invalid rating target")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")

	ErrOrderNotFound      = errors.New("order not found")
	ErrRiderNotFound      = errors.New("rider not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrCustomerNotFound   = errors.New("customer not found")
)
