// Package extract reads discrete Raman lines out of Gaussian log text.
//
// Two listings are understood: the Energy/Sigma transition listing between
// "Information on Transitions" and "Final Spectrum" (non-resonant path) and
// the frequency blocks with one "RamAct Fr=k--" row per incident light
// frequency (resonance path). Both scanners are tolerant: a field that cannot
// be read produces a models.Warning instead of an error unless the caller
// asks for FailFast.
package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/RMahshie/ramanspec/pkg/models"
)

var (
	// ErrMissingActivity is returned under FailFast when a Raman activity is
	// absent or unreadable.
	ErrMissingActivity = errors.New("missing raman activity")
	// ErrLengthMismatch is returned under FailFast when extracted columns
	// differ in length.
	ErrLengthMismatch = errors.New("extracted columns differ in length")
	// ErrUnparseablePosition is returned under FailFast when a line position
	// cannot be read.
	ErrUnparseablePosition = errors.New("unparseable line position")
)

// Policy decides what happens to missing or unreadable intensities
type Policy int

const (
	// ZeroFill substitutes 0.0 and keeps the row
	ZeroFill Policy = iota
	// FailFast aborts extraction with an error
	FailFast
	// Interpolate fills from neighbouring rows of the same column
	Interpolate
)

func (p Policy) String() string {
	switch p {
	case ZeroFill:
		return "zero-fill"
	case FailFast:
		return "fail-fast"
	case Interpolate:
		return "interpolate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a configuration string to a Policy. The empty string
// selects ZeroFill.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zero-fill", "zerofill", "zero":
		return ZeroFill, nil
	case "fail-fast", "failfast", "fail":
		return FailFast, nil
	case "interpolate", "interp":
		return Interpolate, nil
	default:
		return ZeroFill, fmt.Errorf("unknown missing-data policy %q", s)
	}
}

// Options configures both extractors
type Options struct {
	Policy Policy
}

func readLog(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	return string(data), nil
}

func warnf(line int, code, format string, args ...any) models.Warning {
	return models.Warning{Code: code, Line: line, Message: fmt.Sprintf(format, args...)}
}
