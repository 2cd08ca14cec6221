package routing

import (
	"math"

	"github.com/shenikar/disaster_response_system/pkg/geo"
)

const (
	// fallbackWaypoints - число промежуточных точек между началом и концом
	fallbackWaypoints = 10
	// maxConnectionKm - порог прямого расстояния для дополнительных ребер графа
	maxConnectionKm = 5.0
)

type edge struct {
	node     int
	distance float64
}

// fallbackRoute строит маршрут поиском кратчайшего пути по синтетическому
// графу: старт, десять интерполированных точек и финиш. Соседние узлы
// связаны всегда, близкие (ближе 5 км) - дополнительно. Весом ребра служит
// расстояние по дуге большого круга.
func fallbackRoute(start, end geo.Point) *Route {
	nodes := make([]geo.Point, 0, fallbackWaypoints+2)
	nodes = append(nodes, start)
	nodes = append(nodes, interpolate(start, end, fallbackWaypoints)...)
	nodes = append(nodes, end)

	graph := buildGraph(nodes)
	path := dijkstra(nodes, graph)
	if len(path) < 2 {
		// Пути нет - отдаем прямую линию
		path = []geo.Point{start, end}
	}

	return &Route{
		Points:     path,
		DistanceKm: geo.PathDistance(path),
	}
}

// interpolate возвращает n равномерно распределенных точек между a и b
func interpolate(a, b geo.Point, n int) []geo.Point {
	points := make([]geo.Point, 0, n)
	latStep := (b.Lat - a.Lat) / float64(n+1)
	lngStep := (b.Lng - a.Lng) / float64(n+1)
	for i := 1; i <= n; i++ {
		points = append(points, geo.Point{
			Lat: a.Lat + latStep*float64(i),
			Lng: a.Lng + lngStep*float64(i),
		})
	}
	return points
}

func buildGraph(nodes []geo.Point) map[int][]edge {
	graph := make(map[int][]edge, len(nodes))
	for i := range nodes {
		for j := range nodes {
			if i == j {
				continue
			}
			distance := geo.Haversine(nodes[i], nodes[j])
			isAdjacent := abs(i-j) <= 2
			if isAdjacent || distance < maxConnectionKm {
				graph[i] = append(graph[i], edge{node: j, distance: distance})
			}
		}
	}

	// Гарантируем связность: каждый узел соединен со следующим
	for i := 0; i < len(nodes)-1; i++ {
		if !hasEdge(graph[i], i+1) {
			graph[i] = append(graph[i], edge{node: i + 1, distance: geo.Haversine(nodes[i], nodes[i+1])})
		}
	}
	return graph
}

func hasEdge(edges []edge, node int) bool {
	for _, e := range edges {
		if e.node == node {
			return true
		}
	}
	return false
}

// dijkstra - классический поиск кратчайшего пути от первого узла к последнему
// с восстановлением пути по ссылкам на предшественников
func dijkstra(nodes []geo.Point, graph map[int][]edge) []geo.Point {
	distances := make([]float64, len(nodes))
	previous := make([]int, len(nodes))
	unvisited := make(map[int]struct{}, len(nodes))
	for i := range nodes {
		distances[i] = math.Inf(1)
		previous[i] = -1
		unvisited[i] = struct{}{}
	}
	distances[0] = 0

	for len(unvisited) > 0 {
		// Непосещенный узел с минимальной предварительной дистанцией
		current := -1
		minDist := math.Inf(1)
		for node := range unvisited {
			if distances[node] < minDist {
				minDist = distances[node]
				current = node
			}
		}
		if current == -1 {
			break // оставшиеся узлы недостижимы
		}
		delete(unvisited, current)

		for _, e := range graph[current] {
			if _, ok := unvisited[e.node]; !ok {
				continue
			}
			alt := distances[current] + e.distance
			if alt < distances[e.node] {
				distances[e.node] = alt
				previous[e.node] = current
			}
		}
	}

	// Восстановление пути от финиша к старту
	path := make([]geo.Point, 0, len(nodes))
	for current := len(nodes) - 1; current != -1; current = previous[current] {
		path = append([]geo.Point{nodes[current]}, path...)
		if current == 0 {
			break
		}
	}
	if len(path) == 0 || path[0] != nodes[0] {
		return nil
	}
	return path
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
