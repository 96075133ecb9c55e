package output

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Series is one labelled curve
type Series struct {
	Label  string
	Values []float64
}

// Plot is everything a chart needs
type Plot struct {
	Title  string
	XLabel string
	YLabel string
	X      []float64
	Series []Series
}

// Plotter renders a plot. Rendering is best effort; callers log errors and
// carry on.
type Plotter interface {
	Plot(ctx context.Context, p Plot) error
}

// NopPlotter discards plots
type NopPlotter struct{}

// Plot does nothing
func (NopPlotter) Plot(context.Context, Plot) error { return nil }

// LogPlotter reports the peak of every series through the logger
type LogPlotter struct{}

// Plot logs one line per series
func (LogPlotter) Plot(_ context.Context, p Plot) error {
	for _, s := range p.Series {
		peak := 0
		for i := range s.Values {
			if s.Values[i] > s.Values[peak] {
				peak = i
			}
		}
		ev := log.Info().Str("title", p.Title).Str("series", s.Label).Int("points", len(s.Values))
		if len(s.Values) > 0 && peak < len(p.X) {
			ev = ev.Float64("peak_x", p.X[peak]).Float64("peak_y", s.Values[peak])
		}
		ev.Msg("Spectrum")
	}
	return nil
}
