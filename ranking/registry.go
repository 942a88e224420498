package ranking

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Registry maps ranking keys to rankings over an ensemble of fixed size.
//
// The ensemble size is captured at construction and not revisited; data
// rankings added after the ensemble grows or shrinks still use the original
// size. A Registry is not safe for concurrent use.
type Registry struct {
	ensembleSize int
	rankings     map[string]Ranking
}

// NewRegistry creates an empty registry for an ensemble of ensembleSize
// members.
func NewRegistry(ensembleSize int) (*Registry, error) {
	if ensembleSize <= 0 {
		return nil, fmt.Errorf("ensemble size must be positive, got %d", ensembleSize)
	}
	return &Registry{
		ensembleSize: ensembleSize,
		rankings:     make(map[string]Ranking),
	}, nil
}

// EnsembleSize returns the size given at construction.
func (r *Registry) EnsembleSize() int { return r.ensembleSize }

// Add stores ranking under key, replacing any previous ranking.
func (r *Registry) Add(key string, ranking Ranking) error {
	if key == "" {
		return ErrEmptyKey
	}
	r.rankings[key] = ranking
	return nil
}

// AddDataRanking builds a DataRanking over the registry's ensemble and
// stores it under key, replacing any previous ranking.
func (r *Registry) AddDataRanking(key string, sortIncreasing bool, userKey, indexKey string, store ValueStore, node Node, step int) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.Add(key, NewDataRanking(sortIncreasing, r.ensembleSize, userKey, indexKey, store, node, step))
}

// AddMisfitRanking builds a MisfitRanking and stores it under key, replacing
// any previous ranking.
func (r *Registry) AddMisfitRanking(key string, ensemble MisfitEnsemble, obsKeys []string, steps []int) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.Add(key, NewMisfitRanking(ensemble, obsKeys, steps))
}

// Has reports whether a ranking is stored under key.
func (r *Registry) Has(key string) bool {
	_, ok := r.rankings[key]
	return ok
}

// Size returns the number of stored rankings.
func (r *Registry) Size() int { return len(r.rankings) }

// Keys returns the stored keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.rankings))
	for k := range r.rankings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the ranking stored under key.
func (r *Registry) Get(key string) (Ranking, error) {
	ranking, ok := r.rankings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return ranking, nil
}

// Display writes the ranking stored under key to w.
func (r *Registry) Display(key string, w io.Writer) error {
	ranking, err := r.Get(key)
	if err != nil {
		return err
	}
	return ranking.Display(w)
}

// ExportToFile writes the display of the ranking stored under key to path,
// creating missing parent directories. Nothing is created when key is
// absent.
func (r *Registry) ExportToFile(key, path string) (err error) {
	ranking, err := r.Get(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export file: %w", cerr)
		}
	}()

	return ranking.Display(f)
}

// Permutation returns the member ordering of the ranking stored under key.
func (r *Registry) Permutation(key string) ([]int, error) {
	ranking, err := r.Get(key)
	if err != nil {
		return nil, err
	}
	return ranking.Permutation(), nil
}
