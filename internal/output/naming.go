package output

import (
	"math"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Artifact name prefixes. The Energy/Sigma listing has always been written
// as "rr" and the RamAct listing as "nrr".
const (
	NonResonantPrefix = "rr"
	ResonancePrefix   = "nrr"
)

// Column headers
const (
	ShiftHeader     = "Raman Shift (cm^-1)"
	SigmaHeader     = "Sigma"
	IntensityHeader = "Raman Intensity"
)

// Stem returns the file name of p without its last extension. Both slash and
// OS separators are accepted so object keys work too.
func Stem(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

// CrossTableName names the raw discrete line table
func CrossTableName(stem, prefix string) string {
	return stem + "_" + prefix + "cross.csv"
}

// LorentzianTableName names the Lorentzian spectrum table
func LorentzianTableName(stem, prefix string, width float64) string {
	return stem + "_" + prefix + "spec_lorentzian" + formatWidth(width) + ".csv"
}

// GaussianTableName names the Gaussian spectrum table
func GaussianTableName(stem, prefix string, width float64) string {
	return stem + "_" + prefix + "spec_gaussian" + formatWidth(width) + ".csv"
}

// BlendedTableName names the pseudo-Voigt spectrum table
func BlendedTableName(stem, prefix string, lorentzianWidth, gaussianWidth, fraction float64) string {
	return stem + "_" + prefix + "spec_lorentzian" + formatWidth(lorentzianWidth) +
		"_gaussian" + formatWidth(gaussianWidth) +
		"_lorentzianweight" + formatWidth(fraction) + ".csv"
}

// IncidentLightHeader labels one activity column, e.g. "RamAct (20000.0 cm^-1)"
func IncidentLightHeader(freq float64) string {
	return "RamAct (" + PyFloat(freq) + " cm^-1)"
}

// PyFloat formats v the way Python prints a float: shortest round-trip
// digits, always with a decimal point in positional notation and with an
// exponent below 1e-4 or from 1e16 on.
func PyFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	if v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatWidth(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
