package routing

import (
	"context"
	"fmt"

	"github.com/shenikar/disaster_response_system/pkg/geo"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -source=advisor.go -destination=mocks/advisor_mock.go -package=mocks

// Route - маршрут для отображения на карте
type Route struct {
	Points     []geo.Point `json:"points"`
	DistanceKm float64     `json:"distance_km"`
}

// RoadRouter - источник маршрутов по реальным дорогам
type RoadRouter interface {
	Route(ctx context.Context, start, end geo.Point) (*Route, error)
}

// RouteAdvisor определяет контракт построения маршрута между двумя точками
type RouteAdvisor interface {
	GetRoute(ctx context.Context, start, end geo.Point) (*Route, error)
}

type routeAdvisor struct {
	router RoadRouter
	logger *logrus.Logger
}

// NewRouteAdvisor создает советчик маршрутов с дорожным источником и
// локальным запасным вариантом
func NewRouteAdvisor(router RoadRouter, logger *logrus.Logger) RouteAdvisor {
	return &routeAdvisor{
		router: router,
		logger: logger,
	}
}

// GetRoute возвращает маршрут между точками. Сначала пробуем дорожный
// сервис; при любой его ошибке строим приближенный маршрут локально,
// поэтому для корректных координат вызов всегда успешен.
func (a *routeAdvisor) GetRoute(ctx context.Context, start, end geo.Point) (*Route, error) {
	log := a.logger.WithFields(logrus.Fields{
		"service": "routing",
		"method":  "GetRoute",
	})

	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("invalid start or end coordinates")
	}

	route, err := a.router.Route(ctx, start, end)
	if err == nil && len(route.Points) > 0 {
		log.WithField("points", len(route.Points)).Info("Road route found")
		return route, nil
	}
	if err != nil {
		log.WithError(err).Warn("Road routing failed, using local fallback")
	}

	fallback := fallbackRoute(start, end)
	log.WithField("points", len(fallback.Points)).Info("Fallback route built")
	return fallback, nil
}
