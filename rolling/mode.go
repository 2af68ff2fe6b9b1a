package rolling

import (
	"fmt"
	"strings"
)

// Mode selects how the model is refitted at each origin.
type Mode int

const (
	// ReestimateOnly keeps the structural order fixed and re-estimates the
	// coefficients on each window.
	ReestimateOnly Mode = iota + 1
	// RecomputeModel reruns full order selection on each window.
	RecomputeModel
)

var modeNames = map[Mode]string{
	ReestimateOnly: "reestimate_only",
	RecomputeModel: "recompute_model",
}

// ParseMode parses "reestimate_only" or "recompute_model". Case is ignored
// and '-' may stand in for '_'.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for m, name := range modeNames {
		if name == norm {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: invalid mode %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
