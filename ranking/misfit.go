package ranking

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// MisfitRanking orders members by total misfit, smallest first.
type MisfitRanking struct {
	obsKeys []string
	steps   []int

	totals []float64
	valid  []bool
	perm   []int
}

// NewMisfitRanking sums the misfit of each member over obsKeys and steps.
// A member for which any observation fails is invalid: it is left out of
// the display and placed last in the permutation.
func NewMisfitRanking(ensemble MisfitEnsemble, obsKeys []string, steps []int) *MisfitRanking {
	size := ensemble.EnsembleSize()
	r := &MisfitRanking{
		obsKeys: append([]string(nil), obsKeys...),
		steps:   append([]int(nil), steps...),
		totals:  make([]float64, size),
		valid:   make([]bool, size),
	}

	for member := 0; member < size; member++ {
		total := 0.0
		ok := true
		for _, key := range r.obsKeys {
			m, err := ensemble.Misfit(member, key, r.steps)
			if err != nil {
				ok = false
				break
			}
			total += m
		}
		r.totals[member] = total
		r.valid[member] = ok
	}

	r.perm = sortedPermutation(r.totals, r.valid, true)
	return r
}

// Kind implements Ranking.
func (r *MisfitRanking) Kind() Kind { return KindMisfit }

// Permutation implements Ranking.
func (r *MisfitRanking) Permutation() []int {
	return append([]int(nil), r.perm...)
}

// ObsKeys returns the observations the ranking was built from.
func (r *MisfitRanking) ObsKeys() []string {
	return append([]string(nil), r.obsKeys...)
}

// Total returns the total misfit of member and whether it was valid.
func (r *MisfitRanking) Total(member int) (float64, bool) {
	if member < 0 || member >= len(r.totals) {
		return 0, false
	}
	return r.totals[member], r.valid[member]
}

// Normalized returns sqrt(total / number of observations).
func (r *MisfitRanking) Normalized(member int) float64 {
	total, ok := r.Total(member)
	if !ok || len(r.obsKeys) == 0 {
		return 0
	}
	return math.Sqrt(total / float64(len(r.obsKeys)))
}

// Display implements Ranking.
func (r *MisfitRanking) Display(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\n\n")
	fmt.Fprintf(bw, "  #    Realization    Normalized misfit    Total misfit\n")
	fmt.Fprintf(bw, "-------------------------------------------------------\n")
	for i, member := range r.perm {
		if !r.valid[member] {
			continue
		}
		fmt.Fprintf(bw, "%3d    %3d                   %10.3f      %10.3f\n",
			i, member, r.Normalized(member), r.totals[member])
	}
	fmt.Fprintf(bw, "-------------------------------------------------------\n")
	return bw.Flush()
}
