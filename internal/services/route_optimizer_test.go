package services

import (
	"context"
	"testing"

	"binbird-backend/internal/models"
	"binbird-backend/internal/services/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteOptimizer_NearestNeighbour(t *testing.T) {
	depot := models.Coordinates{Lat: 37.3300, Lng: -121.8900}
	req := models.OptimizeRequest{
		Start: depot,
		End:   depot,
		Waypoints: []models.Coordinates{
			{Lat: 37.3600, Lng: -121.8900}, // far
			{Lat: 37.3310, Lng: -121.8900}, // closest to depot
			{Lat: 37.3400, Lng: -121.8900}, // middle
		},
	}

	result, err := NewRouteOptimizer().Optimize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 0}, result.Order)
	assert.True(t, result.IsPermutationOf(3))

	path, err := routing.DecodePolyline(result.Polyline)
	require.NoError(t, err)
	require.Len(t, path, 5)
	assert.InDelta(t, depot.Lat, path[0].Lat, 1e-5)
	assert.InDelta(t, 37.3310, path[1].Lat, 1e-5)
	assert.InDelta(t, 37.3600, path[3].Lat, 1e-5)
	assert.InDelta(t, depot.Lat, path[4].Lat, 1e-5)
}

func TestRouteOptimizer_NoWaypoints(t *testing.T) {
	start := models.Coordinates{Lat: 1, Lng: 2}
	end := models.Coordinates{Lat: 3, Lng: 4}

	result, err := NewRouteOptimizer().Optimize(context.Background(), models.OptimizeRequest{Start: start, End: end})
	require.NoError(t, err)
	assert.Empty(t, result.Order)

	path, err := routing.DecodePolyline(result.Polyline)
	require.NoError(t, err)
	assert.Len(t, path, 2)
}

func TestHaversineDistance(t *testing.T) {
	assert.Equal(t, 0.0, haversineDistance(37.33, -121.89, 37.33, -121.89))
	// One degree of latitude is roughly 111 km
	assert.InDelta(t, 111.2, haversineDistance(0, 0, 1, 0), 0.5)
}
