package extract

import (
	"bufio"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/RMahshie/ramanspec/pkg/models"
)

// Markers of the transition listing
const (
	StartMarker  = "Information on Transitions"
	EndMarker    = "Final Spectrum"
	energyMarker = "Energy ="
	sigmaMarker  = "Sigma ="
)

var (
	// Energies carry no sign and no exponent.
	energyPattern = regexp.MustCompile(`Energy =\s*([\d.]+)`)
	sigmaPattern  = regexp.MustCompile(`Sigma =\s*([-\d.E+]+)`)
)

const maxLineSize = 1 << 20

type sectionState int

const (
	outsideSection sectionState = iota
	insideSection
	sectionDone
)

// NonResonantResult holds the extracted Energy/Sigma lines
type NonResonantResult struct {
	Table    models.LineTable
	Warnings []models.Warning
}

// NonResonantFile reads path and extracts its Energy/Sigma lines
func NonResonantFile(path string, opts Options) (*NonResonantResult, error) {
	text, err := readLog(path)
	if err != nil {
		return nil, err
	}
	return NonResonant(text, opts)
}

// NonResonant extracts Energy/Sigma pairs between the first start marker and
// the end marker (or end of text). The Nth energy is paired with the Nth
// sigma. A log without a start marker yields an empty table.
func NonResonant(text string, opts Options) (*NonResonantResult, error) {
	res := &NonResonantResult{}
	var pairs linePairer

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	state := outsideSection
	lineNo := 0
	for state != sectionDone && scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.Contains(line, StartMarker):
			state = insideSection
		case strings.Contains(line, EndMarker):
			state = sectionDone
		case state != insideSection:
		case strings.Contains(line, energyMarker):
			if v, ok := matchFloat(energyPattern, line); ok {
				pairs.addEnergy(v)
			} else {
				res.Warnings = append(res.Warnings, warnf(lineNo, models.WarnParseMiss, "no energy value in %q", strings.TrimSpace(line)))
			}
		case strings.Contains(line, sigmaMarker):
			if v, ok := matchFloat(sigmaPattern, line); ok {
				pairs.addSigma(v)
			} else {
				res.Warnings = append(res.Warnings, warnf(lineNo, models.WarnParseMiss, "no sigma value in %q", strings.TrimSpace(line)))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log: %w", err)
	}

	if e, s := pairs.unpaired(); e > 0 || s > 0 {
		if opts.Policy == FailFast {
			return nil, fmt.Errorf("%w: %d energies, %d sigmas", ErrLengthMismatch, len(pairs.lines)+e, len(pairs.lines)+s)
		}
		res.Warnings = append(res.Warnings, warnf(0, models.WarnLengthMismatch,
			"%d energies and %d sigmas left unpaired, truncated to %d lines", e, s, len(pairs.lines)))
	}
	res.Table = models.LineTable{Lines: pairs.lines}
	return res, nil
}

func matchFloat(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// linePairer pairs energies and sigmas by encounter order as they arrive.
type linePairer struct {
	energies []float64
	sigmas   []float64
	lines    []models.DiscreteLine
}

func (p *linePairer) addEnergy(v float64) {
	p.energies = append(p.energies, v)
	p.pair()
}

func (p *linePairer) addSigma(v float64) {
	p.sigmas = append(p.sigmas, v)
	p.pair()
}

func (p *linePairer) pair() {
	for len(p.energies) > 0 && len(p.sigmas) > 0 {
		p.lines = append(p.lines, models.DiscreteLine{Position: p.energies[0], Intensity: p.sigmas[0]})
		p.energies = p.energies[1:]
		p.sigmas = p.sigmas[1:]
	}
}

func (p *linePairer) unpaired() (energies, sigmas int) {
	return len(p.energies), len(p.sigmas)
}
