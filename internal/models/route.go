package models

// OptimizeRequest is the body sent to the route optimizer
type OptimizeRequest struct {
	Start     Coordinates   `json:"start"`
	End       Coordinates   `json:"end"`
	Waypoints []Coordinates `json:"waypoints"`
}

// OptimizeResult is the optimizer's answer: an encoded path and a
// permutation of waypoint indices in visiting order
type OptimizeResult struct {
	Polyline string `json:"polyline"`
	Order    []int  `json:"order"`
}

// IsPermutationOf reports whether Order visits each of n waypoints exactly once
func (r *OptimizeResult) IsPermutationOf(n int) bool {
	if r == nil || len(r.Order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range r.Order {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
