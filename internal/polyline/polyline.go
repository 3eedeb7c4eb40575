// Package polyline decodes and encodes route geometry in the encoded polyline
// format used by Google Directions and OSRM (precision 1e5).
package polyline

import (
	"fmt"

	gpolyline "github.com/twpayne/go-polyline"
	"github.com/ukydev/travel-bot/internal/models"
)

// DecodeError reports a malformed encoded path.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode polyline %q: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode turns an encoded path into its waypoints. An empty path decodes to an
// empty sequence. On error no waypoints are returned.
func Decode(encoded string) ([]models.Location, error) {
	if encoded == "" {
		return []models.Location{}, nil
	}

	coords, _, err := gpolyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, &DecodeError{Input: encoded, Err: err}
	}

	path := make([]models.Location, 0, len(coords))
	for _, c := range coords {
		if len(c) != 2 {
			return nil, &DecodeError{Input: encoded, Err: fmt.Errorf("coordinate has %d dimensions", len(c))}
		}
		path = append(path, models.Location{Latitude: c[0], Longitude: c[1]})
	}
	return path, nil
}

// Encode is the inverse of Decode.
func Encode(path []models.Location) string {
	if len(path) == 0 {
		return ""
	}
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Latitude, p.Longitude})
	}
	return string(gpolyline.EncodeCoords(coords))
}
