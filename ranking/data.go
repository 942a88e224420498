package ranking

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// DataRanking orders members by a single simulated value.
type DataRanking struct {
	sortIncreasing bool
	userKey        string
	indexKey       string
	step           int

	values []float64
	valid  []bool
	perm   []int
}

// NewDataRanking loads the value of every member 0..ensembleSize-1 from
// store and sorts them. Members whose value cannot be loaded are excluded
// from the display and placed after all valid members, in member order.
func NewDataRanking(sortIncreasing bool, ensembleSize int, userKey, indexKey string, store ValueStore, node Node, step int) *DataRanking {
	r := &DataRanking{
		sortIncreasing: sortIncreasing,
		userKey:        userKey,
		indexKey:       indexKey,
		step:           step,
		values:         make([]float64, ensembleSize),
		valid:          make([]bool, ensembleSize),
	}

	for member := 0; member < ensembleSize; member++ {
		v, err := store.LoadValue(node, userKey, indexKey, member, step)
		if err != nil {
			continue
		}
		r.values[member] = v
		r.valid[member] = true
	}

	r.perm = sortedPermutation(r.values, r.valid, sortIncreasing)
	return r
}

// sortedPermutation orders valid indices by value (stable on index) and
// appends the invalid ones.
func sortedPermutation(values []float64, valid []bool, increasing bool) []int {
	perm := make([]int, 0, len(values))
	var invalid []int
	for i := range values {
		if valid[i] {
			perm = append(perm, i)
		} else {
			invalid = append(invalid, i)
		}
	}

	sort.SliceStable(perm, func(a, b int) bool {
		if increasing {
			return values[perm[a]] < values[perm[b]]
		}
		return values[perm[a]] > values[perm[b]]
	})
	return append(perm, invalid...)
}

// Kind implements Ranking.
func (r *DataRanking) Kind() Kind { return KindData }

// Permutation implements Ranking.
func (r *DataRanking) Permutation() []int {
	return append([]int(nil), r.perm...)
}

// SortIncreasing reports the sort direction.
func (r *DataRanking) SortIncreasing() bool { return r.sortIncreasing }

// UserKey returns the key the ranking was built for.
func (r *DataRanking) UserKey() string { return r.userKey }

// IndexKey returns the index the values were narrowed by.
func (r *DataRanking) IndexKey() string { return r.indexKey }

// Step returns the report step the values were loaded at.
func (r *DataRanking) Step() int { return r.step }

// Value returns the loaded value of member and whether it was valid.
func (r *DataRanking) Value(member int) (float64, bool) {
	if member < 0 || member >= len(r.values) {
		return 0, false
	}
	return r.values[member], r.valid[member]
}

// Display implements Ranking.
func (r *DataRanking) Display(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\n\n")
	fmt.Fprintf(bw, "  #    Realization    %12s\n", r.userKey)
	fmt.Fprintf(bw, "----------------------------------\n")
	for i, member := range r.perm {
		if !r.valid[member] {
			continue
		}
		fmt.Fprintf(bw, "%3d    %3d          %14.3f\n", i, member, r.values[member])
	}
	fmt.Fprintf(bw, "----------------------------------\n")
	return bw.Flush()
}
