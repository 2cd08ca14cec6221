package routing

import (
	"testing"

	"github.com/shenikar/disaster_response_system/pkg/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate_ReturnsEvenlySpacedPoints(t *testing.T) {
	a := geo.Point{Lat: 0, Lng: 0}
	b := geo.Point{Lat: 12, Lng: 24}

	points := interpolate(a, b, 5)

	require.Len(t, points, 5)
	assert.InDelta(t, 2.0, points[0].Lat, 1e-9)
	assert.InDelta(t, 4.0, points[0].Lng, 1e-9)
	assert.InDelta(t, 10.0, points[4].Lat, 1e-9)
	assert.InDelta(t, 20.0, points[4].Lng, 1e-9)
}

func TestFallbackRoute_StartsAndEndsAtGivenPoints(t *testing.T) {
	start := geo.Point{Lat: 55.75, Lng: 37.61} // Москва
	end := geo.Point{Lat: 59.93, Lng: 30.33}   // Санкт-Петербург

	route := fallbackRoute(start, end)

	require.NotNil(t, route)
	require.GreaterOrEqual(t, len(route.Points), 2)
	assert.Equal(t, start, route.Points[0])
	assert.Equal(t, end, route.Points[len(route.Points)-1])
}

func TestFallbackRoute_DistanceNotLessThanGreatCircle(t *testing.T) {
	start := geo.Point{Lat: 55.75, Lng: 37.61}
	end := geo.Point{Lat: 59.93, Lng: 30.33}

	route := fallbackRoute(start, end)

	// Длина ломаной не может быть меньше расстояния по дуге большого круга
	direct := geo.Haversine(start, end)
	assert.GreaterOrEqual(t, route.DistanceKm, direct-1e-6)
}

func TestFallbackRoute_IdenticalPoints(t *testing.T) {
	point := geo.Point{Lat: 55.75, Lng: 37.61}

	route := fallbackRoute(point, point)

	require.NotNil(t, route)
	assert.InDelta(t, 0.0, route.DistanceKm, 1e-9)
	assert.Equal(t, point, route.Points[0])
	assert.Equal(t, point, route.Points[len(route.Points)-1])
}

func TestFallbackRoute_ShortHop_UsesCloseConnections(t *testing.T) {
	// Точки в паре километров друг от друга: все узлы ближе порога 5 км,
	// кратчайший путь срезает промежуточные точки
	start := geo.Point{Lat: 55.75, Lng: 37.61}
	end := geo.Point{Lat: 55.76, Lng: 37.63}

	route := fallbackRoute(start, end)

	direct := geo.Haversine(start, end)
	assert.InDelta(t, direct, route.DistanceKm, 0.01)
}

func TestDijkstra_UnreachableTarget(t *testing.T) {
	nodes := []geo.Point{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}}
	graph := map[int][]edge{} // без ребер

	path := dijkstra(nodes, graph)

	assert.Nil(t, path)
}
