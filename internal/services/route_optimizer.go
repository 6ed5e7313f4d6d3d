package services

import (
	"context"
	"log"
	"math"

	"binbird-backend/internal/models"
	"binbird-backend/internal/services/routing"
)

// RouteOptimizer orders stops with a nearest neighbour heuristic. It is the
// fallback when the remote optimizer is missing or down.
type RouteOptimizer struct{}

// NewRouteOptimizer creates a new route optimizer
func NewRouteOptimizer() *RouteOptimizer {
	return &RouteOptimizer{}
}

// Optimize visits the closest remaining waypoint from the current position,
// starting at req.Start, and draws a straight-line polyline ending at req.End
func (ro *RouteOptimizer) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	order := ro.nearestNeighbourOrder(req.Start, req.Waypoints)

	path := make([]models.Coordinates, 0, len(order)+2)
	path = append(path, req.Start)
	for _, idx := range order {
		path = append(path, req.Waypoints[idx])
	}
	path = append(path, req.End)

	log.Printf("✅ Local route optimization complete: %d stops, %.2f km", len(order), pathDistance(path))

	return &models.OptimizeResult{
		Polyline: routing.EncodePolyline(path),
		Order:    order,
	}, nil
}

func (ro *RouteOptimizer) nearestNeighbourOrder(start models.Coordinates, waypoints []models.Coordinates) []int {
	order := make([]int, 0, len(waypoints))
	remaining := make([]int, len(waypoints))
	for i := range waypoints {
		remaining[i] = i
	}

	current := start
	for len(remaining) > 0 {
		bestIdx := 0
		bestDistance := math.MaxFloat64

		for i, wp := range remaining {
			distance := haversineDistance(current.Lat, current.Lng, waypoints[wp].Lat, waypoints[wp].Lng)
			if distance < bestDistance {
				bestDistance = distance
				bestIdx = i
			}
		}

		chosen := remaining[bestIdx]
		order = append(order, chosen)
		current = waypoints[chosen]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return order
}

func pathDistance(path []models.Coordinates) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += haversineDistance(path[i-1].Lat, path[i-1].Lng, path[i].Lat, path[i].Lng)
	}
	return total
}

// haversineDistance calculates the distance between two GPS coordinates in kilometers
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0 // Earth's radius in kilometers

	// Convert to radians
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	// Haversine formula
	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
