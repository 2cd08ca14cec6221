package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine_KnownDistance(t *testing.T) {
	moscow := Point{Lat: 55.7558, Lng: 37.6173}
	spb := Point{Lat: 59.9311, Lng: 30.3609}

	distance := Haversine(moscow, spb)

	// Расстояние Москва - Санкт-Петербург около 634 км
	assert.InDelta(t, 634.0, distance, 5.0)
}

func TestHaversine_SamePoint(t *testing.T) {
	point := Point{Lat: 55.7558, Lng: 37.6173}

	assert.InDelta(t, 0.0, Haversine(point, point), 1e-9)
}

func TestHaversine_Symmetry(t *testing.T) {
	a := Point{Lat: 55.7558, Lng: 37.6173}
	b := Point{Lat: 48.8566, Lng: 2.3522}

	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestPathDistance(t *testing.T) {
	a := Point{Lat: 0, Lng: 0}
	b := Point{Lat: 0, Lng: 1}
	c := Point{Lat: 0, Lng: 2}

	total := PathDistance([]Point{a, b, c})

	assert.InDelta(t, Haversine(a, b)+Haversine(b, c), total, 1e-9)
}

func TestPathDistance_DegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, PathDistance(nil))
	assert.Equal(t, 0.0, PathDistance([]Point{{Lat: 1, Lng: 1}}))
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"обычная точка", Point{Lat: 55.75, Lng: 37.61}, true},
		{"граница диапазона", Point{Lat: -90, Lng: 180}, true},
		{"широта вне диапазона", Point{Lat: 90.5, Lng: 0}, false},
		{"долгота вне диапазона", Point{Lat: 0, Lng: -180.5}, false},
		{"NaN широта", Point{Lat: math.NaN(), Lng: 0}, false},
		{"NaN долгота", Point{Lat: 0, Lng: math.NaN()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.point.Valid())
		})
	}
}
