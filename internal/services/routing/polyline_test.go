package routing

import (
	"testing"

	"binbird-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference points and encoding from Google's polyline documentation
var referencePoints = []models.Coordinates{
	{Lat: 38.5, Lng: -120.2},
	{Lat: 40.7, Lng: -120.95},
	{Lat: 43.252, Lng: -126.453},
}

const referencePolyline = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestEncodePolyline(t *testing.T) {
	assert.Equal(t, referencePolyline, EncodePolyline(referencePoints))
	assert.Equal(t, "", EncodePolyline(nil))
}

func TestDecodePolyline(t *testing.T) {
	points, err := DecodePolyline(referencePolyline)
	require.NoError(t, err)
	require.Len(t, points, len(referencePoints))
	for i := range points {
		assert.InDelta(t, referencePoints[i].Lat, points[i].Lat, 1e-5)
		assert.InDelta(t, referencePoints[i].Lng, points[i].Lng, 1e-5)
	}
}

func TestDecodePolyline_Errors(t *testing.T) {
	_, err := DecodePolyline("_p~iF~ps|")
	assert.Error(t, err)

	_, err = DecodePolyline("_p~iF\x10")
	assert.Error(t, err)
}
