package models

import (
	"fmt"
	"strings"
)

// Phase is the coarse stage of a single item's transfer
type Phase int

const (
	PhasePreparing Phase = iota
	PhaseDownloading
	PhaseConverting
	PhaseSkipped
	PhaseComplete
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseDownloading:
		return "downloading"
	case PhaseConverting:
		return "converting"
	case PhaseSkipped:
		return "skipped"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ParsePhase converts a phase string to the Phase enum
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "preparing":
		return PhasePreparing, nil
	case "downloading":
		return PhaseDownloading, nil
	case "converting":
		return PhaseConverting, nil
	case "skipped":
		return PhaseSkipped, nil
	case "complete":
		return PhaseComplete, nil
	default:
		return PhasePreparing, fmt.Errorf("unknown phase %q", s)
	}
}

// IsTerminal reports whether no further progress is expected for the item
func (p Phase) IsTerminal() bool {
	return p == PhaseSkipped || p == PhaseComplete
}

// MarshalText encodes the phase as its string form so JSON payloads stay readable
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase from its string form
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
