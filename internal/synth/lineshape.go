package synth

import (
	"math"

	"github.com/RMahshie/ramanspec/pkg/models"
)

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// Trapezoid integrates y over x with the trapezoid rule
func Trapezoid(y, x []float64) float64 {
	var area float64
	for i := 1; i < len(x) && i < len(y); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// LorentzianProfile returns the unit-area Lorentzian of half-width width
// centred at center, sampled on the grid
func LorentzianProfile(g models.FrequencyGrid, center, width float64) ([]float64, error) {
	if err := ValidateGrid(g); err != nil {
		return nil, err
	}
	if !finitePositive(width) {
		return nil, ErrInvalidBroadening
	}
	grid := g.Points()
	out := make([]float64, len(grid))
	lorentzianShape(out, grid, center, width)
	return out, nil
}

// GaussianProfile returns the unit-area Gaussian of standard deviation width
// centred at center, sampled on the grid
func GaussianProfile(g models.FrequencyGrid, center, width float64) ([]float64, error) {
	if err := ValidateGrid(g); err != nil {
		return nil, err
	}
	if !finitePositive(width) {
		return nil, ErrInvalidBroadening
	}
	grid := g.Points()
	out := make([]float64, len(grid))
	gaussianShape(out, grid, center, width)
	return out, nil
}

// lorentzianShape fills dst and reports false when the sampled curve has no area.
func lorentzianShape(dst, grid []float64, center, width float64) bool {
	for i, f := range grid {
		u := (f - center) / width
		dst[i] = 1 / (1 + u*u)
	}
	return normalize(dst, grid)
}

// gaussianShape uses the analytic density and then renormalises on the grid,
// which absorbs truncation at the grid edges.
func gaussianShape(dst, grid []float64, center, width float64) bool {
	norm := width * sqrt2Pi
	for i, f := range grid {
		u := (f - center) / width
		dst[i] = math.Exp(-0.5*u*u) / norm
	}
	return normalize(dst, grid)
}

func normalize(dst, grid []float64) bool {
	area := Trapezoid(dst, grid)
	if area == 0 || math.IsNaN(area) || math.IsInf(area, 0) {
		for i := range dst {
			dst[i] = 0
		}
		return false
	}
	for i := range dst {
		dst[i] /= area
	}
	return true
}
