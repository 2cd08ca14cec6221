package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shenikar/disaster_response_system/pkg/geo"
)

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry osrmGeometry `json:"geometry"`
	Distance float64      `json:"distance"` // метры
	Duration float64      `json:"duration"` // секунды
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
}

// OSRMClient - клиент публичного сервиса маршрутизации OSRM
type OSRMClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMClient создает клиент OSRM с таймаутом на запрос
func NewOSRMClient(baseURL string, timeout time.Duration) *OSRMClient {
	return &OSRMClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Route запрашивает автомобильный маршрут между двумя точками.
// OSRM принимает координаты в порядке lng,lat и отдает геометрию GeoJSON.
func (c *OSRMClient) Route(ctx context.Context, start, end geo.Point) (*Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson&alternatives=false",
		c.baseURL, start.Lng, start.Lat, end.Lng, end.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var data osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	if data.Code != "Ok" || len(data.Routes) == 0 {
		return nil, fmt.Errorf("no route found from OSRM (code=%s)", data.Code)
	}

	route := data.Routes[0]
	points := make([]geo.Point, 0, len(route.Geometry.Coordinates))
	for _, coord := range route.Geometry.Coordinates {
		if len(coord) < 2 {
			continue
		}
		points = append(points, geo.Point{Lat: coord[1], Lng: coord[0]})
	}

	return &Route{
		Points:     points,
		DistanceKm: route.Distance / 1000,
	}, nil
}
