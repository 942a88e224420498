// Package ranking stores named rankings of ensemble members and answers
// display, export and permutation queries for them.
//
// Two kinds of ranking exist: DataRanking orders members by one simulated
// value, MisfitRanking orders them by their summed misfit against a set of
// observations. Both implement Ranking, and the Registry only ever talks to
// that interface.
package ranking

import (
	"errors"
	"io"
)

// Common registry errors.
var (
	// ErrNotFound is returned when no ranking is stored under a key.
	ErrNotFound = errors.New("ranking not found")

	// ErrEmptyKey is returned when inserting a ranking with an empty key.
	ErrEmptyKey = errors.New("ranking key must not be empty")
)

// Kind names the ranking variant.
type Kind string

const (
	// KindData orders members by a simulated value.
	KindData Kind = "data"

	// KindMisfit orders members by misfit against observations.
	KindMisfit Kind = "misfit"
)

// Ranking is a precomputed ordering of ensemble members.
type Ranking interface {
	// Kind returns the ranking variant.
	Kind() Kind

	// Display writes a human readable table of the ranking to w.
	Display(w io.Writer) error

	// Permutation returns member indices in ranked order. The slice is a
	// copy owned by the caller.
	Permutation() []int
}

// Node identifies the configuration node a data ranking reads values from.
type Node interface {
	Key() string
}

// ValueStore loads the scalar a data ranking sorts on.
type ValueStore interface {
	// LoadValue returns the value of node (narrowed by userKey and indexKey)
	// for one member at one report step. An error marks the member invalid.
	LoadValue(node Node, userKey, indexKey string, member, step int) (float64, error)
}

// MisfitEnsemble supplies per-member misfits.
type MisfitEnsemble interface {
	// EnsembleSize returns the number of members with misfit data.
	EnsembleSize() int

	// Misfit returns the misfit of member against observation obsKey summed
	// over steps. An error marks the member invalid.
	Misfit(member int, obsKey string, steps []int) (float64, error)
}
