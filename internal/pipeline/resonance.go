package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/ramanspec/internal/extract"
	"github.com/RMahshie/ramanspec/internal/output"
	"github.com/RMahshie/ramanspec/internal/synth"
)

// RunResonant extracts the RamAct listing from text, broadens every incident
// light column and writes the raw table and one spectrum table per family
// with one column per incident light
func (r *Runner) RunResonant(ctx context.Context, stem, text string, cfg Config) (*ResonantOutput, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	res, err := extract.Resonance(text, extract.Options{Policy: cfg.Policy})
	if err != nil {
		return nil, fmt.Errorf("failed to extract raman activities: %w", err)
	}
	table := res.Table
	out := &ResonantOutput{Table: table, Warnings: res.Warnings}
	logWarnings(stem, res.Warnings)
	log.Info().Str("log", stem).Int("modes", table.Len()).Floats64("incident_light", table.IncidentLight).Msg("Raman activities extracted")

	header := []string{output.ShiftHeader}
	for _, f := range table.IncidentLight {
		header = append(header, output.IncidentLightHeader(f))
	}

	positions := table.Positions()
	crossCols := [][]float64{positions}
	for k := range table.IncidentLight {
		crossCols = append(crossCols, table.Column(k))
	}
	if err := r.writeResonant(ctx, out, output.Table{
		Name:    output.CrossTableName(stem, output.ResonancePrefix),
		Header:  header,
		Columns: crossCols,
		Format:  output.CrossFormat,
	}); err != nil {
		return nil, err
	}
	if err := cfg.synthesizing(ctx); err != nil {
		return nil, err
	}

	grid := cfg.Params.Grid.Points()
	lorentzian := [][]float64{grid}
	gaussian := [][]float64{grid}
	blended := [][]float64{grid}
	for k, f := range table.IncidentLight {
		set, err := synth.Synthesize(cfg.Params, positions, table.Column(k))
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize spectrum for %s cm^-1: %w", output.PyFloat(f), err)
		}
		set.Label = output.IncidentLightHeader(f)
		out.Spectra = append(out.Spectra, *set)
		out.Warnings = append(out.Warnings, set.Warnings...)
		logWarnings(stem, set.Warnings)

		r.plot(ctx, fmt.Sprintf("Raman Spectrum: %s cm^-1 Incident Light", output.PyFloat(f)), set)

		lorentzian = append(lorentzian, set.Lorentzian.Values)
		gaussian = append(gaussian, set.Gaussian.Values)
		blended = append(blended, set.Blended.Values)
	}

	tables := []output.Table{
		{
			Name:    output.LorentzianTableName(stem, output.ResonancePrefix, cfg.Params.LorentzianWidth),
			Header:  header,
			Columns: lorentzian,
		},
		{
			Name:    output.GaussianTableName(stem, output.ResonancePrefix, cfg.Params.GaussianWidth),
			Header:  header,
			Columns: gaussian,
		},
	}
	if cfg.WriteBlended {
		tables = append(tables, output.Table{
			Name:    blendedName(stem, output.ResonancePrefix, cfg.Params),
			Header:  header,
			Columns: blended,
		})
	}
	for _, t := range tables {
		t.Format = output.SpectrumFormat
		if err := r.writeResonant(ctx, out, t); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Runner) writeResonant(ctx context.Context, out *ResonantOutput, t output.Table) error {
	loc, err := r.writer.WriteTable(ctx, t)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", t.Name, err)
	}
	out.Artifacts = append(out.Artifacts, loc)
	return nil
}
