// SPDX-License-Identifier: MIT

package taylor

// Test bridge: exposes coefficient tuples to taylor_test without widening the
// production API.

// TuplesOf returns the nondecreasing index tuples of one order, in column order.
func TuplesOf(e *Expansion, order int) [][]int {
	return e.blocks[order-1].tuples
}

// Counts returns the full and irreducible coefficient counts.
func Counts(e *Expansion) (full, irreducible int) {
	return e.nFull, e.nIrr
}

// ReduceSparse exposes the sparse row reduction.
func ReduceSparse(rows []map[int]float64, tol float64) ([]int, []map[int]float64) {
	return reduceSparse(rows, tol)
}
