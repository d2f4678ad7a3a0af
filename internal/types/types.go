// README: Common value types shared across modules.
package types

// ID is an opaque entity identifier. Keeping it typed avoids accidental
// cross-aggregate id mixing at compile time.
type ID string

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
