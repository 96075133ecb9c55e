// Package synth turns discrete spectral lines into broadened spectra.
//
// Every line is sampled as a Lorentzian and as a Gaussian over a uniform
// grid, each sampled shape is normalised to unit trapezoidal area on that
// grid, scaled by the line intensity and accumulated. The blended spectrum is
// the pseudo-Voigt mix (1-p)*Gaussian + p*Lorentzian.
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/RMahshie/ramanspec/pkg/models"
)

var (
	// ErrInvalidBroadening is returned for non-positive or non-finite widths
	// and for a blend fraction outside [0, 1].
	ErrInvalidBroadening = errors.New("invalid broadening parameter")
	// ErrDegenerateGrid is returned for grids with fewer than two points or
	// with Min >= Max.
	ErrDegenerateGrid = errors.New("degenerate grid")
	// ErrGridTooLarge is returned for grids above models.MaxGridSteps points.
	ErrGridTooLarge = errors.New("grid too large")
	// ErrColumnMismatch is returned when positions and intensities differ in length.
	ErrColumnMismatch = errors.New("positions and intensities differ in length")
)

// Params holds the grid and lineshape settings of one synthesis
type Params struct {
	Grid               models.FrequencyGrid
	LorentzianWidth    float64
	GaussianWidth      float64
	LorentzianFraction float64
}

// FromModel converts API broadening parameters
func FromModel(p models.BroadeningParams) Params {
	return Params{
		Grid:               p.Grid,
		LorentzianWidth:    p.LorentzianWidth,
		GaussianWidth:      p.GaussianWidth,
		LorentzianFraction: p.LorentzianFraction,
	}
}

// Validate checks the parameters before any sampling happens
func (p Params) Validate() error {
	if err := ValidateGrid(p.Grid); err != nil {
		return err
	}
	if !finitePositive(p.LorentzianWidth) {
		return fmt.Errorf("%w: lorentzian width %v", ErrInvalidBroadening, p.LorentzianWidth)
	}
	if !finitePositive(p.GaussianWidth) {
		return fmt.Errorf("%w: gaussian width %v", ErrInvalidBroadening, p.GaussianWidth)
	}
	if math.IsNaN(p.LorentzianFraction) || p.LorentzianFraction < 0 || p.LorentzianFraction > 1 {
		return fmt.Errorf("%w: lorentzian fraction %v outside [0, 1]", ErrInvalidBroadening, p.LorentzianFraction)
	}
	return nil
}

// ValidateGrid rejects grids whose trapezoidal integrals would vanish
func ValidateGrid(g models.FrequencyGrid) error {
	if g.Steps < 2 {
		return fmt.Errorf("%w: %d steps", ErrDegenerateGrid, g.Steps)
	}
	if g.Steps > models.MaxGridSteps {
		return fmt.Errorf("%w: %d steps, at most %d", ErrGridTooLarge, g.Steps, models.MaxGridSteps)
	}
	if math.IsNaN(g.Min) || math.IsInf(g.Min, 0) || math.IsNaN(g.Max) || math.IsInf(g.Max, 0) {
		return fmt.Errorf("%w: non-finite bounds [%v, %v]", ErrDegenerateGrid, g.Min, g.Max)
	}
	if g.Min >= g.Max {
		return fmt.Errorf("%w: min %v must be below max %v", ErrDegenerateGrid, g.Min, g.Max)
	}
	return nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// Synthesize broadens the lines given as parallel position and intensity
// columns. An empty input yields three all-zero spectra of grid length.
func Synthesize(p Params, positions, intensities []float64) (*models.SpectrumSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(positions) != len(intensities) {
		return nil, fmt.Errorf("%w: %d positions, %d intensities", ErrColumnMismatch, len(positions), len(intensities))
	}

	grid := p.Grid.Points()
	n := len(grid)
	lorentzian := make([]float64, n)
	gaussian := make([]float64, n)

	shape := make([]float64, n)
	scaled := make([]float64, n)
	var warnings []models.Warning

	for i, center := range positions {
		intensity := intensities[i]

		if !lorentzianShape(shape, grid, center, p.LorentzianWidth) {
			warnings = append(warnings, zeroArea("lorentzian", center))
		} else {
			vecmath.ScaleBlock(scaled, shape, intensity)
			vecmath.AddBlockInPlace(lorentzian, scaled)
		}

		if !gaussianShape(shape, grid, center, p.GaussianWidth) {
			warnings = append(warnings, zeroArea("gaussian", center))
		} else {
			vecmath.ScaleBlock(scaled, shape, intensity)
			vecmath.AddBlockInPlace(gaussian, scaled)
		}
	}

	return &models.SpectrumSet{
		Lorentzian: models.Spectrum{Grid: grid, Values: lorentzian},
		Gaussian:   models.Spectrum{Grid: grid, Values: gaussian},
		Blended:    models.Spectrum{Grid: grid, Values: Blend(gaussian, lorentzian, p.LorentzianFraction)},
		Warnings:   warnings,
	}, nil
}

// SynthesizeTable broadens a LineTable
func SynthesizeTable(p Params, table models.LineTable) (*models.SpectrumSet, error) {
	return Synthesize(p, table.Positions(), table.Intensities())
}

// Blend returns (1-p)*gaussian + p*lorentzian elementwise. For p = 0 the
// result equals gaussian and for p = 1 it equals lorentzian.
func Blend(gaussian, lorentzian []float64, p float64) []float64 {
	out := make([]float64, len(gaussian))
	weighted := make([]float64, len(lorentzian))
	vecmath.ScaleBlock(out, gaussian, 1-p)
	vecmath.ScaleBlock(weighted, lorentzian, p)
	vecmath.AddBlockInPlace(out, weighted)
	return out
}

func zeroArea(family string, center float64) models.Warning {
	return models.Warning{
		Code:    models.WarnZeroAreaLine,
		Message: fmt.Sprintf("%s line at %g cm^-1 has zero area on the grid, skipped", family, center),
	}
}
