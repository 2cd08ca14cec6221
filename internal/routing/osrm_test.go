package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shenikar/disaster_response_system/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRMClient_Route_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Координаты передаются в порядке lng,lat
		assert.Contains(t, r.URL.Path, "/route/v1/driving/37.610000,55.750000;30.330000,59.930000")
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": "Ok",
			"routes": [{
				"geometry": {"coordinates": [[37.61, 55.75], [35.0, 57.5], [30.33, 59.93]]},
				"distance": 705000.0,
				"duration": 30000.0
			}]
		}`))
	}))
	defer server.Close()

	client := NewOSRMClient(server.URL, 2*time.Second)
	route, err := client.Route(context.Background(),
		geo.Point{Lat: 55.75, Lng: 37.61},
		geo.Point{Lat: 59.93, Lng: 30.33},
	)

	require.NoError(t, err)
	require.Len(t, route.Points, 3)
	// GeoJSON-пары [lng, lat] переводятся в точки {Lat, Lng}
	assert.Equal(t, geo.Point{Lat: 55.75, Lng: 37.61}, route.Points[0])
	assert.Equal(t, geo.Point{Lat: 59.93, Lng: 30.33}, route.Points[2])
	assert.InDelta(t, 705.0, route.DistanceKm, 1e-9)
}

func TestOSRMClient_Route_NoRouteFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
	}))
	defer server.Close()

	client := NewOSRMClient(server.URL, 2*time.Second)
	route, err := client.Route(context.Background(),
		geo.Point{Lat: 55.75, Lng: 37.61},
		geo.Point{Lat: 59.93, Lng: 30.33},
	)

	require.Error(t, err)
	assert.Nil(t, route)
	assert.ErrorContains(t, err, "no route found")
}

func TestOSRMClient_Route_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewOSRMClient(server.URL, 2*time.Second)
	route, err := client.Route(context.Background(),
		geo.Point{Lat: 55.75, Lng: 37.61},
		geo.Point{Lat: 59.93, Lng: 30.33},
	)

	require.Error(t, err)
	assert.Nil(t, route)
	assert.ErrorContains(t, err, "unexpected status code")
}
