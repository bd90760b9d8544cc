package route

import (
	"context"
	"fmt"
	"time"

	"github.com/mfiguera/rutero/internal/geo"
)

// DistanceFunc returns the travel cost in meters between two points. It
// must be symmetric and non-negative; the optimizer is agnostic to whether
// it is straight-line or road distance.
type DistanceFunc func(a, b geo.Coordinates) int

const defaultBudget = 2 * time.Second

// Optimizer computes a near-optimal closed tour over the day's stops. It
// builds a tour with a nearest-neighbor pass and then improves it with
// 2-opt moves until its time budget expires, returning the best tour found.
type Optimizer struct {
	distance DistanceFunc
	budget   time.Duration
}

// NewOptimizer builds an Optimizer. A nil distance selects haversine; a
// non-positive budget selects the default.
func NewOptimizer(distance DistanceFunc, budget time.Duration) *Optimizer {
	if distance == nil {
		distance = geo.HaversineMeters
	}

	if budget <= 0 {
		budget = defaultBudget
	}

	return &Optimizer{distance: distance, budget: budget}
}

// Optimize returns the stops in visiting order for a tour that starts and
// ends at the depot, visiting each stop exactly once, plus the total tour
// distance in meters. The depot itself is not part of the returned order.
// Zero stops yield an empty route, one stop the trivial tour; duplicate
// coordinates are fine (zero-length arcs).
func (o *Optimizer) Optimize(ctx context.Context, depot geo.Coordinates, stops []Stop) ([]Stop, int, error) {
	if !depot.Valid() {
		return nil, 0, fmt.Errorf("optimize route: invalid depot coordinates %s", depot)
	}

	for _, s := range stops {
		if !s.Coordinates.Valid() {
			return nil, 0, fmt.Errorf("optimize route: stop %s has invalid coordinates %s", s.ItemID, s.Coordinates)
		}
	}

	if len(stops) == 0 {
		return []Stop{}, 0, nil
	}

	if len(stops) == 1 {
		return []Stop{stops[0]}, 2 * o.distance(depot, stops[0].Coordinates), nil
	}

	// Index 0 is the depot; stop i sits at index i+1.
	points := make([]geo.Coordinates, len(stops)+1)
	points[0] = depot
	for i, s := range stops {
		points[i+1] = s.Coordinates
	}

	matrix := buildMatrix(points, o.distance)

	tour := nearestNeighborTour(matrix)

	deadline := time.Now().Add(o.budget)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	twoOpt(ctx, matrix, tour, deadline)

	ordered := make([]Stop, len(tour))
	for i, node := range tour {
		ordered[i] = stops[node-1]
	}

	return ordered, tourLength(matrix, tour), nil
}

func buildMatrix(points []geo.Coordinates, distance DistanceFunc) [][]int {
	n := len(points)

	matrix := make([][]int, n)
	for i := range matrix {
		matrix[i] = make([]int, n)
		for j := range matrix[i] {
			if i != j {
				matrix[i][j] = distance(points[i], points[j])
			}
		}
	}

	return matrix
}

// nearestNeighborTour greedily visits the closest unvisited node starting
// from the depot (node 0). Ties break on the lower index so the
// construction is deterministic. The returned tour holds nodes 1..n-1; the
// depot is implicit at both ends.
func nearestNeighborTour(matrix [][]int) []int {
	n := len(matrix)

	visited := make([]bool, n)
	visited[0] = true

	tour := make([]int, 0, n-1)
	current := 0

	for len(tour) < n-1 {
		next := -1
		best := 0

		for candidate := 1; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}

			if next == -1 || matrix[current][candidate] < best {
				next = candidate
				best = matrix[current][candidate]
			}
		}

		visited[next] = true
		tour = append(tour, next)
		current = next
	}

	return tour
}

// twoOpt improves the tour in place by reversing segments whose endpoints
// can be reconnected more cheaply, restarting the scan after each
// improvement until no move helps or the deadline passes. Improvement-only
// moves mean the tour is valid whenever the budget expires.
func twoOpt(ctx context.Context, matrix [][]int, tour []int, deadline time.Time) {
	n := len(tour)

	improved := true
	for improved {
		improved = false

		for i := 0; i < n-1; i++ {
			if time.Now().After(deadline) || ctx.Err() != nil {
				return
			}

			for j := i + 1; j < n; j++ {
				a := 0 // depot
				if i > 0 {
					a = tour[i-1]
				}

				b := tour[i]
				c := tour[j]

				d := 0 // depot
				if j < n-1 {
					d = tour[j+1]
				}

				delta := matrix[a][c] + matrix[b][d] - matrix[a][b] - matrix[c][d]
				if delta < 0 {
					reverse(tour, i, j)

					improved = true
				}
			}
		}
	}
}

func reverse(tour []int, i, j int) {
	for i < j {
		tour[i], tour[j] = tour[j], tour[i]
		i++
		j--
	}
}

func tourLength(matrix [][]int, tour []int) int {
	total := 0
	prev := 0

	for _, node := range tour {
		total += matrix[prev][node]
		prev = node
	}

	return total + matrix[prev][0]
}
