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

const modesPerBlock = 3

var (
	incidentLightPattern = regexp.MustCompile(`Incident light \(cm\*\*-1\):[ \t]+((?:\d+\.\d+[ \t]*)+)`)
	// Retried when the primary pattern finds nothing.
	incidentLightFallback = regexp.MustCompile(`Incident light \(cm\*\*-1\):[ \t]+((?:\d+\.\d{2}[ \t]*)+)`)

	frequenciesPattern = regexp.MustCompile(`Frequencies --[ \t]+([-\d.]+)(?:[ \t]+([-\d.]+))?(?:[ \t]+([-\d.]+))?`)
	// Activities are captured as opaque tokens and parsed when aligned.
	ramActPattern = regexp.MustCompile(`RamAct Fr=[ \t]*(\d+)--[ \t]*(\S+)(?:[ \t]+(\S+))?(?:[ \t]+(\S+))?`)
)

type blockState int

const (
	outsideBlock blockState = iota
	inBlock
)

// modeBlock is one "Frequencies --" line with the RamAct rows that follow it.
type modeBlock struct {
	line       int
	positions  []string
	activities map[int][]string
}

// ResonanceResult holds the extracted resonance Raman table
type ResonanceResult struct {
	Table    models.ResonanceLineTable
	Warnings []models.Warning
}

// ResonanceFile reads path and extracts its resonance Raman table
func ResonanceFile(path string, opts Options) (*ResonanceResult, error) {
	text, err := readLog(path)
	if err != nil {
		return nil, err
	}
	return Resonance(text, opts)
}

// Resonance extracts mode frequencies and one Raman activity per incident
// light frequency. A log without an incident light header yields an empty
// table and an empty incident light set.
func Resonance(text string, opts Options) (*ResonanceResult, error) {
	res := &ResonanceResult{Table: models.ResonanceLineTable{IncidentLight: []float64{}, Rows: []models.ResonanceLine{}}}

	incident := incidentLight(text)
	if len(incident) == 0 {
		res.Warnings = append(res.Warnings, warnf(0, models.WarnNoIncidentLight, "could not find incident light frequencies"))
		return res, nil
	}
	res.Table.IncidentLight = incident
	k := len(incident)

	blocks, warnings, err := scanBlocks(text, k)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)

	for fr := 1; fr <= k; fr++ {
		found := 0
		for _, b := range blocks {
			if _, ok := b.activities[fr]; ok {
				found++
			}
		}
		if found != len(blocks) {
			res.Warnings = append(res.Warnings, warnf(0, models.WarnBlockCountMismatch,
				"RamAct Fr=%d has %d blocks, expected %d", fr, found, len(blocks)))
		}
	}

	positions, columns, missing, warnings, err := align(blocks, k, opts.Policy)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)

	if opts.Policy == Interpolate {
		for i := range columns {
			interpolate(positions, columns[i], missing[i])
		}
	}

	rows, warnings, err := assemble(positions, columns, opts.Policy)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warnings...)
	res.Table.Rows = rows
	return res, nil
}

func incidentLight(text string) []float64 {
	m := incidentLightPattern.FindStringSubmatch(text)
	if m == nil {
		m = incidentLightFallback.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}
	fields := strings.Fields(m[1])
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// scanBlocks walks the log once. A Frequencies line opens a block and RamAct
// rows attach to the most recent block; RamAct rows for k outside 1..K are
// ignored.
func scanBlocks(text string, k int) ([]*modeBlock, []models.Warning, error) {
	var (
		blocks   []*modeBlock
		warnings []models.Warning
		current  *modeBlock
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	state := outsideBlock
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := frequenciesPattern.FindStringSubmatch(line); m != nil {
			current = &modeBlock{line: lineNo, activities: make(map[int][]string, k)}
			for _, g := range m[1:] {
				if g != "" {
					current.positions = append(current.positions, g)
				}
			}
			blocks = append(blocks, current)
			state = inBlock
			continue
		}

		m := ramActPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		fr, err := strconv.Atoi(m[1])
		if err != nil || fr < 1 || fr > k {
			continue
		}
		switch state {
		case outsideBlock:
			warnings = append(warnings, warnf(lineNo, models.WarnParseMiss, "RamAct Fr=%d row before any Frequencies line, ignored", fr))
		case inBlock:
			if _, dup := current.activities[fr]; dup {
				warnings = append(warnings, warnf(lineNo, models.WarnParseMiss, "duplicate RamAct Fr=%d row in block at line %d, ignored", fr, current.line))
				continue
			}
			var tokens []string
			for _, g := range m[2:] {
				if g != "" {
					tokens = append(tokens, g)
				}
			}
			current.activities[fr] = tokens
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to scan log: %w", err)
	}
	return blocks, warnings, nil
}

// align flattens blocks into a position column and K activity columns. Slots
// whose position cannot be read are dropped together with their activities.
// missing marks activities that were absent or unreadable.
func align(blocks []*modeBlock, k int, policy Policy) ([]float64, [][]float64, [][]bool, []models.Warning, error) {
	var (
		positions []float64
		warnings  []models.Warning
	)
	columns := make([][]float64, k)
	missing := make([][]bool, k)

	for i, b := range blocks {
		for j := 0; j < len(b.positions) && j < modesPerBlock; j++ {
			pos, err := strconv.ParseFloat(b.positions[j], 64)
			if err != nil {
				if policy == FailFast {
					return nil, nil, nil, nil, fmt.Errorf("%w: %q at line %d", ErrUnparseablePosition, b.positions[j], b.line)
				}
				warnings = append(warnings, warnf(b.line, models.WarnParseMiss, "unreadable frequency %q in block %d, mode dropped", b.positions[j], i))
				continue
			}
			positions = append(positions, pos)

			for fr := 1; fr <= k; fr++ {
				v, ok, reason := activity(b, fr, j)
				if !ok {
					if policy == FailFast {
						return nil, nil, nil, nil, fmt.Errorf("%w: Fr=%d block %d position %d: %s", ErrMissingActivity, fr, i, j, reason)
					}
					warnings = append(warnings, warnf(b.line, models.WarnMissingActivity,
						"RamAct Fr=%d block %d position %d: %s, filled by %s", fr, i, j, reason, policy))
				}
				columns[fr-1] = append(columns[fr-1], v)
				missing[fr-1] = append(missing[fr-1], !ok)
			}
		}
	}
	return positions, columns, missing, warnings, nil
}

func activity(b *modeBlock, fr, slot int) (float64, bool, string) {
	tokens, ok := b.activities[fr]
	if !ok {
		return 0, false, "missing block"
	}
	if slot >= len(tokens) {
		return 0, false, "missing value"
	}
	v, err := strconv.ParseFloat(tokens[slot], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Sprintf("unreadable value %q", tokens[slot])
	}
	return v, true, ""
}

// interpolate replaces missing entries with a linear interpolation between
// the nearest known neighbours, weighted by position. Entries beyond the first
// or last known value take that value; a column without known values stays 0.
func interpolate(positions, column []float64, missing []bool) {
	n := len(column)
	for i := 0; i < n; i++ {
		if !missing[i] {
			continue
		}
		prev, next := -1, -1
		for a := i - 1; a >= 0; a-- {
			if !missing[a] {
				prev = a
				break
			}
		}
		for b := i + 1; b < n; b++ {
			if !missing[b] {
				next = b
				break
			}
		}
		switch {
		case prev >= 0 && next >= 0:
			span := positions[next] - positions[prev]
			if span == 0 {
				column[i] = (column[prev] + column[next]) / 2
				continue
			}
			t := (positions[i] - positions[prev]) / span
			column[i] = column[prev] + t*(column[next]-column[prev])
		case prev >= 0:
			column[i] = column[prev]
		case next >= 0:
			column[i] = column[next]
		default:
			column[i] = 0
		}
	}
}

// assemble zips the position and activity columns into rows, truncating to
// the shortest column. Under FailFast any difference is an error.
func assemble(positions []float64, columns [][]float64, policy Policy) ([]models.ResonanceLine, []models.Warning, error) {
	var warnings []models.Warning

	n := len(positions)
	for _, c := range columns {
		if len(c) < n {
			n = len(c)
		}
	}
	if n < len(positions) || anyLonger(columns, n) {
		if policy == FailFast {
			return nil, nil, fmt.Errorf("%w: %d positions, shortest column %d", ErrLengthMismatch, len(positions), n)
		}
		warnings = append(warnings, warnf(0, models.WarnLengthMismatch, "truncating to %d entries due to mismatched lengths", n))
	}

	rows := make([]models.ResonanceLine, n)
	for i := 0; i < n; i++ {
		intensities := make([]float64, len(columns))
		for k, c := range columns {
			intensities[k] = c[i]
		}
		rows[i] = models.ResonanceLine{Position: positions[i], Intensities: intensities}
	}
	return rows, warnings, nil
}

func anyLonger(columns [][]float64, n int) bool {
	for _, c := range columns {
		if len(c) > n {
			return true
		}
	}
	return false
}
