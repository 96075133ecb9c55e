// Package pipeline ties the extractors to the synthesizer and writes the
// resulting tables.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ramanspec/internal/extract"
	"github.com/RMahshie/ramanspec/internal/output"
	"github.com/RMahshie/ramanspec/internal/synth"
	"github.com/RMahshie/ramanspec/pkg/models"
)

// Config holds the settings of one run
type Config struct {
	Params synth.Params
	Policy extract.Policy
	// DropLeading removes this many transitions from the start of the
	// Energy/Sigma listing before anything is written.
	DropLeading  int
	WriteBlended bool
	// OnSynthesize, when set, is called once extraction and the raw table
	// are done. An error aborts the run.
	OnSynthesize func(ctx context.Context) error
}

// NonResonantOutput is the result of the Energy/Sigma pipeline
type NonResonantOutput struct {
	Lines     models.LineTable
	Spectra   models.SpectrumSet
	Artifacts []string
	Warnings  []models.Warning
}

// ResonantOutput is the result of the RamAct pipeline
type ResonantOutput struct {
	Table     models.ResonanceLineTable
	Spectra   []models.SpectrumSet
	Artifacts []string
	Warnings  []models.Warning
}

// Runner runs pipelines against a table writer and a plotter
type Runner struct {
	writer  output.TableWriter
	plotter output.Plotter
}

// NewRunner creates a runner. A nil plotter discards plots.
func NewRunner(writer output.TableWriter, plotter output.Plotter) *Runner {
	if plotter == nil {
		plotter = output.NopPlotter{}
	}
	return &Runner{writer: writer, plotter: plotter}
}

// RunNonResonantFile runs the Energy/Sigma pipeline on a log on disk and
// writes the tables next to it
func RunNonResonantFile(ctx context.Context, path string, cfg Config, plotter output.Plotter) (*NonResonantOutput, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	r := NewRunner(output.NewDirWriter(filepath.Dir(path)), plotter)
	return r.RunNonResonant(ctx, output.Stem(path), string(text), cfg)
}

// RunResonantFile runs the RamAct pipeline on a log on disk and writes the
// tables next to it
func RunResonantFile(ctx context.Context, path string, cfg Config, plotter output.Plotter) (*ResonantOutput, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	r := NewRunner(output.NewDirWriter(filepath.Dir(path)), plotter)
	return r.RunResonant(ctx, output.Stem(path), string(text), cfg)
}

// RunNonResonant extracts the Energy/Sigma listing from text, broadens it and
// writes the raw table and the spectra named after stem
func (r *Runner) RunNonResonant(ctx context.Context, stem, text string, cfg Config) (*NonResonantOutput, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	res, err := extract.NonResonant(text, extract.Options{Policy: cfg.Policy})
	if err != nil {
		return nil, fmt.Errorf("failed to extract transitions: %w", err)
	}
	out := &NonResonantOutput{Lines: dropLeading(res.Table, cfg.DropLeading), Warnings: res.Warnings}
	logWarnings(stem, res.Warnings)
	log.Info().Str("log", stem).Int("lines", out.Lines.Len()).Msg("Transitions extracted")

	cross := output.Table{
		Name:    output.CrossTableName(stem, output.NonResonantPrefix),
		Header:  []string{output.ShiftHeader, output.SigmaHeader},
		Columns: [][]float64{out.Lines.Positions(), out.Lines.Intensities()},
		Format:  output.CrossFormat,
	}
	if err := r.write(ctx, out, cross); err != nil {
		return nil, err
	}
	if err := cfg.synthesizing(ctx); err != nil {
		return nil, err
	}

	set, err := synth.SynthesizeTable(cfg.Params, out.Lines)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize spectrum: %w", err)
	}
	out.Spectra = *set
	out.Warnings = append(out.Warnings, set.Warnings...)
	logWarnings(stem, set.Warnings)

	r.plot(ctx, "Raman Spectrum: Lorentzian vs Gaussian", set)

	grid := set.Lorentzian.Grid
	header := []string{output.ShiftHeader, output.IntensityHeader}
	tables := []output.Table{
		{
			Name:    output.LorentzianTableName(stem, output.NonResonantPrefix, cfg.Params.LorentzianWidth),
			Header:  header,
			Columns: [][]float64{grid, set.Lorentzian.Values},
		},
		{
			Name:    output.GaussianTableName(stem, output.NonResonantPrefix, cfg.Params.GaussianWidth),
			Header:  header,
			Columns: [][]float64{grid, set.Gaussian.Values},
		},
	}
	if cfg.WriteBlended {
		tables = append(tables, output.Table{
			Name:    blendedName(stem, output.NonResonantPrefix, cfg.Params),
			Header:  header,
			Columns: [][]float64{grid, set.Blended.Values},
		})
	}
	for _, t := range tables {
		t.Format = output.SpectrumFormat
		if err := r.write(ctx, out, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c Config) synthesizing(ctx context.Context) error {
	if c.OnSynthesize == nil {
		return nil
	}
	if err := c.OnSynthesize(ctx); err != nil {
		return fmt.Errorf("failed to report progress: %w", err)
	}
	return nil
}

func (r *Runner) write(ctx context.Context, out *NonResonantOutput, t output.Table) error {
	loc, err := r.writer.WriteTable(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", t.Name, err)
	}
	out.Artifacts = append(out.Artifacts, loc)
	return nil
}

func (r *Runner) plot(ctx context.Context, title string, set *models.SpectrumSet) {
	err := r.plotter.Plot(ctx, output.Plot{
		Title:  title,
		XLabel: "Frequency",
		YLabel: "Raman Intensity",
		X:      set.Lorentzian.Grid,
		Series: []output.Series{
			{Label: "Lorentzian", Values: set.Lorentzian.Values},
			{Label: "Gaussian", Values: set.Gaussian.Values},
			{Label: "Combined", Values: set.Blended.Values},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Plot failed")
	}
}

func dropLeading(t models.LineTable, n int) models.LineTable {
	if n <= 0 {
		return t
	}
	if n >= len(t.Lines) {
		return models.LineTable{Lines: []models.DiscreteLine{}}
	}
	return models.LineTable{Lines: t.Lines[n:]}
}

func blendedName(stem, prefix string, p synth.Params) string {
	return output.BlendedTableName(stem, prefix, p.LorentzianWidth, p.GaussianWidth, p.LorentzianFraction)
}

func logWarnings(stem string, warnings []models.Warning) {
	for _, w := range warnings {
		ev := log.Warn().Str("log", stem).Str("code", w.Code)
		if w.Line > 0 {
			ev = ev.Int("line", w.Line)
		}
		ev.Msg(w.Message)
	}
}
