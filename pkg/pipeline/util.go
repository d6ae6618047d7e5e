package pipeline

import "math"

// maxLeadSweep bounds how far round a lead arc may turn while looking for
// clearance.
const maxLeadSweep = math.Pi

// arcStepFor returns the angular step keeping the chord error of radius r
// under tol, never coarser than a twelfth of a turn.
func arcStepFor(r, tol float64) float64 {
	step := math.Pi / 6
	if r > tol {
		step = math.Min(step, 2*math.Acos(1-tol/r))
	}
	return math.Max(step, math.Pi/180)
}
