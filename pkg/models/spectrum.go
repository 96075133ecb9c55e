package models

// DiscreteLine represents a single spectral line before broadening
type DiscreteLine struct {
	Position  float64 `json:"position" doc:"Raman shift in cm^-1"`
	Intensity float64 `json:"intensity" doc:"Raman cross-section or activity"`
}

// LineTable holds discrete lines in the order they appear in the source log
type LineTable struct {
	Lines []DiscreteLine `json:"lines"`
}

// Len returns the number of lines
func (t LineTable) Len() int {
	return len(t.Lines)
}

// Positions returns the position column
func (t LineTable) Positions() []float64 {
	out := make([]float64, len(t.Lines))
	for i, l := range t.Lines {
		out[i] = l.Position
	}
	return out
}

// Intensities returns the intensity column
func (t LineTable) Intensities() []float64 {
	out := make([]float64, len(t.Lines))
	for i, l := range t.Lines {
		out[i] = l.Intensity
	}
	return out
}

// ResonanceLine is one vibrational mode with one activity per incident light frequency
type ResonanceLine struct {
	Position    float64   `json:"position" doc:"Mode frequency in cm^-1"`
	Intensities []float64 `json:"intensities" doc:"Raman activity per incident light frequency"`
}

// ResonanceLineTable holds resonance Raman lines. Every row carries exactly
// len(IncidentLight) intensities.
type ResonanceLineTable struct {
	IncidentLight []float64       `json:"incident_light" doc:"Incident light frequencies in cm^-1"`
	Rows          []ResonanceLine `json:"rows"`
}

// Len returns the number of rows
func (t ResonanceLineTable) Len() int {
	return len(t.Rows)
}

// Positions returns the shared position column
func (t ResonanceLineTable) Positions() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Position
	}
	return out
}

// Column returns the intensities for incident light index k (0-based)
func (t ResonanceLineTable) Column(k int) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Intensities[k]
	}
	return out
}

// MaxGridSteps bounds the number of points of a requested grid
const MaxGridSteps = 100000

// FrequencyGrid describes a uniformly spaced x-axis
type FrequencyGrid struct {
	Min   float64 `json:"min" doc:"First grid point in cm^-1"`
	Max   float64 `json:"max" doc:"Last grid point in cm^-1"`
	Steps int     `json:"steps" minimum:"2" maximum:"100000" doc:"Number of grid points"`
}

// Points samples the grid. The first point is Min and the last point is
// exactly Max.
func (g FrequencyGrid) Points() []float64 {
	if g.Steps <= 0 {
		return []float64{}
	}
	out := make([]float64, g.Steps)
	if g.Steps == 1 {
		out[0] = g.Min
		return out
	}
	step := (g.Max - g.Min) / float64(g.Steps-1)
	for i := range out {
		out[i] = g.Min + float64(i)*step
	}
	out[g.Steps-1] = g.Max
	return out
}

// Spectrum is a sampled curve over a frequency grid
type Spectrum struct {
	Grid   []float64 `json:"grid" doc:"Raman shift in cm^-1"`
	Values []float64 `json:"values" doc:"Raman intensity"`
}

// SpectrumSet groups the three spectra produced for one intensity column
type SpectrumSet struct {
	Label      string    `json:"label,omitempty" doc:"Column label, e.g. the incident light frequency"`
	Lorentzian Spectrum  `json:"lorentzian"`
	Gaussian   Spectrum  `json:"gaussian"`
	Blended    Spectrum  `json:"blended"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Warning codes
const (
	WarnParseMiss          = "parse-miss"
	WarnLengthMismatch     = "length-mismatch"
	WarnBlockCountMismatch = "block-count-mismatch"
	WarnMissingActivity    = "missing-activity"
	WarnNoIncidentLight    = "no-incident-light"
	WarnZeroAreaLine       = "zero-area-line"
)

// Warning is a non-fatal diagnostic raised while extracting or synthesizing
type Warning struct {
	Code    string `json:"code" doc:"Machine readable warning code"`
	Message string `json:"message" doc:"Human-readable description"`
	Line    int    `json:"line,omitempty" doc:"1-based source line, when known"`
}
