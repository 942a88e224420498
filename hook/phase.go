package hook

import "fmt"

// Phase is a fixed point in a simulation's lifecycle at which hooks fire.
type Phase string

const (
	// PreSimulation fires before the forward model runs.
	PreSimulation Phase = "PRE_SIMULATION"

	// PostSimulation fires after the forward model has finished.
	PostSimulation Phase = "POST_SIMULATION"

	// PreUpdate fires before an analysis update.
	PreUpdate Phase = "PRE_UPDATE"

	// PostUpdate fires after an analysis update.
	PostUpdate Phase = "POST_UPDATE"
)

// Phases returns every phase in lifecycle order.
func Phases() []Phase {
	return []Phase{PreSimulation, PostSimulation, PreUpdate, PostUpdate}
}

// phaseNames returns the phase names, used as the HOOK_WORKFLOW selection set.
func phaseNames() []string {
	phases := Phases()
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.String()
	}
	return names
}

// IsValid checks if p is one of the known phases.
func (p Phase) IsValid() bool {
	switch p {
	case PreSimulation, PostSimulation, PreUpdate, PostUpdate:
		return true
	}
	return false
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// ParsePhase converts a phase name. Names are case sensitive.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("unknown hook phase %q", s)
	}
	return p, nil
}
