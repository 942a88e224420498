// Package ensemble reads ensemble snapshots: YAML files holding the
// simulated values and observation misfits of every member. A Snapshot
// is the value and misfit source rankings are computed from.
package ensemble

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/ensemble/config"
	"github.com/c360studio/ensemble/ranking"
)

// ErrNoData is returned when a snapshot holds no value for a request.
var ErrNoData = errors.New("no data")

// Node names a configuration node of the snapshot, such as a summary
// vector or a parameter group.
type Node string

// Key implements ranking.Node.
func (n Node) Key() string { return string(n) }

// Series holds one value per member for a node at one report step. A null
// entry marks a member without data.
type Series struct {
	Node   string     `yaml:"node"`
	Key    string     `yaml:"key,omitempty"`
	Index  string     `yaml:"index,omitempty"`
	Step   int        `yaml:"step"`
	Values []*float64 `yaml:"values"`
}

// userKey returns Key, defaulting to the node name.
func (s Series) userKey() string {
	if s.Key == "" {
		return s.Node
	}
	return s.Key
}

// Snapshot is the content of an ensemble snapshot file.
type Snapshot struct {
	Members int      `yaml:"members"`
	Data    []Series `yaml:"data,omitempty"`

	// Misfits maps an observation key to one entry per member. Each entry
	// maps report step to misfit.
	Misfits map[string][]map[int]float64 `yaml:"misfits,omitempty"`
}

// Load reads and validates the snapshot at path. ${VAR:-default}
// references are expanded before parsing.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var s Snapshot
	if err := yaml.Unmarshal([]byte(config.ExpandEnvWithDefaults(string(data))), &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks that every series and misfit list covers exactly Members
// members.
func (s *Snapshot) Validate() error {
	if s.Members <= 0 {
		return fmt.Errorf("members must be positive, got %d", s.Members)
	}
	for i, series := range s.Data {
		if series.Node == "" {
			return fmt.Errorf("data[%d]: node is required", i)
		}
		if len(series.Values) != s.Members {
			return fmt.Errorf("data[%d] %s: expected %d values, got %d", i, series.Node, s.Members, len(series.Values))
		}
	}
	for key, members := range s.Misfits {
		if len(members) != s.Members {
			return fmt.Errorf("misfits %s: expected %d members, got %d", key, s.Members, len(members))
		}
	}
	return nil
}

// EnsembleSize implements ranking.MisfitEnsemble.
func (s *Snapshot) EnsembleSize() int { return s.Members }

// Node returns the node named key.
func (s *Snapshot) Node(key string) ranking.Node { return Node(key) }

// LoadValue implements ranking.ValueStore. An empty userKey selects the
// series stored without an explicit key.
func (s *Snapshot) LoadValue(node ranking.Node, userKey, indexKey string, member, step int) (float64, error) {
	if node == nil {
		return 0, fmt.Errorf("%w: no node", ErrNoData)
	}
	if member < 0 || member >= s.Members {
		return 0, fmt.Errorf("%w: member %d out of range", ErrNoData, member)
	}
	if userKey == "" {
		userKey = node.Key()
	}

	for _, series := range s.Data {
		if series.Node != node.Key() || series.userKey() != userKey || series.Index != indexKey || series.Step != step {
			continue
		}
		if v := series.Values[member]; v != nil {
			return *v, nil
		}
		break
	}
	return 0, fmt.Errorf("%w: %s/%s member %d step %d", ErrNoData, node.Key(), userKey, member, step)
}

// Misfit implements ranking.MisfitEnsemble. With no steps the misfit is
// summed over every step recorded for the member; otherwise every requested
// step must be present.
func (s *Snapshot) Misfit(member int, obsKey string, steps []int) (float64, error) {
	members, ok := s.Misfits[obsKey]
	if !ok {
		return 0, fmt.Errorf("%w: observation %s", ErrNoData, obsKey)
	}
	if member < 0 || member >= len(members) || len(members[member]) == 0 {
		return 0, fmt.Errorf("%w: observation %s member %d", ErrNoData, obsKey, member)
	}

	byStep := members[member]
	total := 0.0
	if len(steps) == 0 {
		for _, m := range byStep {
			total += m
		}
		return total, nil
	}

	for _, step := range steps {
		m, ok := byStep[step]
		if !ok {
			return 0, fmt.Errorf("%w: observation %s member %d step %d", ErrNoData, obsKey, member, step)
		}
		total += m
	}
	return total, nil
}

// ObsKeys returns the observation keys with misfit data, sorted.
func (s *Snapshot) ObsKeys() []string {
	keys := make([]string, 0, len(s.Misfits))
	for k := range s.Misfits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
