package engine

import (
	"math"

	"github.com/jxucoder/truthordare/model"
)

const (
	// sectorWidth is the arc covered by each seat, centered on its label.
	sectorWidth = 360.0 / model.SeatCount

	minSpin   = 1080.0 // three full turns
	spinRange = 1440.0 // up to four more
)

// NormalizeAngle maps any angle in degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	// math.Mod(-1e-18, 360) + 360 rounds to 360.
	if a >= 360 {
		a = 0
	}
	return a
}

// SeatIndex returns the seat the bottle points at when resting at deg.
// Halfway points round up to the next seat.
func SeatIndex(deg float64) int {
	sector := int(math.Floor(NormalizeAngle(deg)/sectorWidth + 0.5))
	return sector % model.SeatCount
}

// SeatFor returns the label of the seat at deg.
func SeatFor(deg float64) string {
	return model.Seats()[SeatIndex(deg)]
}

// spinDelta returns the extra rotation of one spin for r in [0, 1).
func spinDelta(r float64) float64 {
	return minSpin + r*spinRange
}
