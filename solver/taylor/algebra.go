// SPDX-License-Identifier: MIT

package taylor

import (
	"math"
	"sort"
)

// pivotThreshold admits a pivot candidate whose magnitude is at least this
// fraction of the row's largest entry.
const pivotThreshold = 0.1

// reduceSparse brings sparse rows (column -> value) to reduced row echelon form.
// MAIN DESCRIPTION:
//   - Rows are absorbed one at a time into a basis in which every row holds 1
//     at its own pivot column and no entry at any other pivot column.
//   - Rows that vanish after elimination are dependent and dropped.
//
// Implementation:
//   - Stage 1: count how many input rows use each column.
//   - Stage 2: eliminate the pivots already in the basis from the incoming row.
//   - Stage 3: pick its pivot among entries within pivotThreshold of the largest,
//     preferring the column used by the fewest rows (least fill-in), then the
//     smallest column.
//   - Stage 4: normalize and clear the new pivot column from every basis row,
//     found through a column -> rows index.
//
// Returns:
//   - the pivot column of each basis row and the rows themselves.
//
// Complexity:
//   - Time O(Σ fill-in) per absorbed row; Space O(nonzeros of the basis).
//
// Notes:
//   - Input maps are consumed. Entries with |v| ≤ tol are treated as zero.
func reduceSparse(rows []map[int]float64, tol float64) ([]int, []map[int]float64) {
	uses := make(map[int]int)
	for _, r := range rows {
		for c := range r {
			uses[c]++
		}
	}

	var (
		pivots []int
		basis  []map[int]float64
		owner  = make(map[int]int)              // pivot column -> basis row
		holds  = make(map[int]map[int]struct{}) // non-pivot column -> basis rows with an entry there
		hits   []int
	)
	track := func(c, k int) {
		s := holds[c]
		if s == nil {
			s = make(map[int]struct{})
			holds[c] = s
		}
		s[k] = struct{}{}
	}

	for _, v := range rows {
		hits = hits[:0]
		for c := range v {
			if _, ok := owner[c]; ok {
				hits = append(hits, c)
			}
		}
		sort.Ints(hits)
		for _, c := range hits {
			f := v[c]
			r := basis[owner[c]]
			for rc, x := range r {
				nv := v[rc] - f*x
				if math.Abs(nv) <= tol {
					delete(v, rc)
					continue
				}
				v[rc] = nv
			}
			delete(v, c)
		}

		big := 0.0
		for _, x := range v {
			big = math.Max(big, math.Abs(x))
		}
		if big <= tol {
			continue
		}
		p := -1
		for c, x := range v {
			ax := math.Abs(x)
			if ax <= tol {
				delete(v, c)
				continue
			}
			if ax < pivotThreshold*big {
				continue
			}
			if p < 0 || uses[c] < uses[p] || (uses[c] == uses[p] && c < p) {
				p = c
			}
		}
		inv := 1 / v[p]
		for c := range v {
			v[c] *= inv
		}
		v[p] = 1

		for k := range holds[p] {
			r := basis[k]
			f := r[p]
			delete(r, p)
			for c, x := range v {
				if c == p {
					continue
				}
				old, had := r[c]
				nv := old - f*x
				if math.Abs(nv) <= tol {
					if had {
						delete(r, c)
						delete(holds[c], k)
					}
					continue
				}
				r[c] = nv
				if !had {
					track(c, k)
				}
			}
		}
		delete(holds, p)

		k := len(basis)
		basis = append(basis, v)
		pivots = append(pivots, p)
		owner[p] = k
		for c := range v {
			if c != p {
				track(c, k)
			}
		}
	}

	return pivots, basis
}

// sortedColumns returns the keys of row except skip, ascending.
func sortedColumns(row map[int]float64, skip int) []int {
	cols := make([]int, 0, len(row))
	for c := range row {
		if c != skip {
			cols = append(cols, c)
		}
	}
	sort.Ints(cols)

	return cols
}

// tupleKey packs a tuple of indices below d into one integer.
func tupleKey(t []int, d int) int {
	key := 0
	for _, idx := range t {
		key = key*d + idx
	}

	return key
}

// insertSorted writes the nondecreasing prefix with j merged in into dst,
// which must have len(prefix)+1 elements.
func insertSorted(dst, prefix []int, j int) {
	w, placed := 0, false
	for _, v := range prefix {
		if !placed && j < v {
			dst[w] = j
			w++
			placed = true
		}
		dst[w] = v
		w++
	}
	if !placed {
		dst[w] = j
	}
}

// nextPermutation rearranges p into the next lexicographic permutation and
// reports whether one existed. Repeated values yield distinct permutations only.
func nextPermutation(p []int) bool {
	i := len(p) - 2
	for i >= 0 && p[i] >= p[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := len(p) - 1
	for p[j] <= p[i] {
		j--
	}
	p[i], p[j] = p[j], p[i]
	for l, r := i+1, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}

	return true
}
