package routing

import (
	"fmt"

	"binbird-backend/internal/models"

	"github.com/twpayne/go-polyline"
)

// EncodePolyline encodes points with Google's polyline algorithm at 1e5 precision
func EncodePolyline(points []models.Coordinates) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline reverses EncodePolyline
func DecodePolyline(encoded string) ([]models.Coordinates, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}

	var points []models.Coordinates
	for _, c := range coords {
		points = append(points, models.Coordinates{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}
