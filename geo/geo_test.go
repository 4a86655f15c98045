package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKmZero(t *testing.T) {
	p := Coordinate{Lat: 41.3111, Lng: 69.2797}
	assert.Equal(t, 0.0, DistanceKm(p, p))
}

func TestDistanceKmKnownPoints(t *testing.T) {
	// Paris -> London, roughly 344 km.
	paris := Coordinate{Lat: 48.8566, Lng: 2.3522}
	london := Coordinate{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, 344, DistanceKm(paris, london), 2)
}

func TestDistanceKmSymmetry(t *testing.T) {
	a := Coordinate{Lat: 40.7128, Lng: -74.0060}
	b := Coordinate{Lat: 40.7614, Lng: -73.9776}
	assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
}

func TestDistanceKmShortHop(t *testing.T) {
	// One degree of latitude is ~111 km, so 0.05 degrees is ~5.55 km.
	a := Coordinate{Lat: 40.0, Lng: -74.0}
	b := Coordinate{Lat: 40.05, Lng: -74.0}
	assert.InDelta(t, 5.56, DistanceKm(a, b), 0.05)
}
