// SPDX-License-Identifier: MIT

// Package taylor is a pure-Go reference implementation of solver.Solver.
//
// The model is the Taylor expansion of the potential energy in atomic
// displacements u (flat index i = 3*atom + component):
//
//	F_i = - Σ_k 1/k! Σ_{j1..jk} Φ_{i j1..jk} u_j1 … u_jk
//
// Φ of order k (k+1 legs) is fully symmetric, so one coefficient is kept per
// nondecreasing index tuple. nbody limits the distinct atoms of a cluster and
// WithCutoff limits their separation. SetConstraint adds the acoustic sum
// rule Σ_b Φ_{i1..ik, 3b+β} = 0 and reduces the coefficients to an
// irreducible basis by row reduction.
//
// Constraints are kept as sparse reduced rows, so memory is dominated by the
// design matrix A of samples·3N rows and one column per irreducible
// coefficient. Without cutoffs the coefficient count of order k grows as
// (3N)^(k+1)/(k+1)!: about 18 thousand harmonic terms for 64 atoms but over a
// million cubic ones, so cubic fits of large supercells need WithCutoff. The
// backend does no space-group analysis.
package taylor

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/forcefit/cell"
	"github.com/katalvlaran/forcefit/solver"
	"github.com/katalvlaran/forcefit/tensor"
)

var (
	// ErrNilCell is returned by the opener for a nil structure.
	ErrNilCell = errors.New("taylor: nil cell")

	// ErrEmptyCell is returned by the opener for a structure without atoms.
	ErrEmptyCell = errors.New("taylor: cell has no atoms")

	// ErrNoCoefficients is returned when the expansion, after constraints, has
	// nothing left to fit.
	ErrNoCoefficients = errors.New("taylor: no free coefficients")
)

// Compile-time assertion.
var _ solver.Solver = (*Expansion)(nil)

// block holds the coefficients of one order.
type block struct {
	order  int
	offset int     // first column in the full coefficient vector
	tuples [][]int // nondecreasing flat index tuples, order+1 legs each
}

// pivotRow expresses one dependent coefficient through irreducible ones:
// p[col] = -Σ_q vals[q]·psi[irr[q]].
type pivotRow struct {
	col  int
	irr  []int
	vals []float64
}

// nonzero is one entry of a column of the design matrix.
type nonzero struct {
	row int
	val float64
}

// Expansion is the stateful solver handle. It is not safe for concurrent use.
type Expansion struct {
	natom     int
	dist      [][]float64 // minimum-image atom distances
	verbosity int
	o         options

	maxOrder int
	blocks   []block
	nFull    int

	// set by SetConstraint
	constrained bool
	freeCols    []int      // full column of each irreducible coefficient
	pivotRows   []pivotRow // dependent coefficients
	nIrr        int

	samples int
	disp    []float64 // samples × 3N
	forces  []float64 // samples × 3N

	fc     []float64 // full coefficient vector, nil until SetFC
	closed bool
}

// Open is the default solver.Opener.
//
// Memory is O(samples·3N·nIrr) for the matrix returned by MatrixElements; see
// the package documentation for coefficient counts and WithCutoff.
func Open(c *cell.Cell, verbosity int) (solver.Solver, error) {
	return OpenWith()(c, verbosity)
}

// OpenWith returns an opener applying opts to every solver it creates.
func OpenWith(opts ...Option) solver.Opener {
	o := gatherOptions(opts)

	return func(c *cell.Cell, verbosity int) (solver.Solver, error) {
		if c == nil {
			return nil, ErrNilCell
		}
		n := c.Len()
		if n == 0 {
			return nil, ErrEmptyCell
		}

		dist := make([][]float64, n)
		for a := 0; a < n; a++ {
			dist[a] = make([]float64, n)
			for b := 0; b < n; b++ {
				d, err := c.Distance(a, b)
				if err != nil {
					return nil, err
				}
				dist[a][b] = d
			}
		}

		return &Expansion{natom: n, dist: dist, verbosity: verbosity, o: o}, nil
	}
}

func (e *Expansion) dim() int { return 3 * e.natom }

// Define enumerates the coefficients of orders 1..maxOrder. A nil nbody means
// solver.DefaultNbody(maxOrder). Redefining drops constraints and coefficients.
func (e *Expansion) Define(maxOrder int, nbody []int) error {
	if e.closed {
		return fmt.Errorf("Define: %w", solver.ErrClosed)
	}
	if maxOrder < 1 {
		return fmt.Errorf("Define: maxOrder %d: %w", maxOrder, solver.ErrBadOrder)
	}
	if nbody == nil {
		nbody = solver.DefaultNbody(maxOrder)
	}
	if len(nbody) != maxOrder {
		return fmt.Errorf("Define: %d nbody entries for maxOrder %d: %w", len(nbody), maxOrder, solver.ErrBadNbody)
	}
	enabled := false
	for k := 1; k <= maxOrder; k++ {
		nb := nbody[k-1]
		if nb < 0 || nb > k+1 {
			return fmt.Errorf("Define: nbody[%d]=%d outside [0,%d]: %w", k-1, nb, k+1, solver.ErrBadNbody)
		}
		enabled = enabled || nb > 0
	}
	if !enabled {
		return fmt.Errorf("Define: every order disabled: %w", solver.ErrBadNbody)
	}

	e.maxOrder = maxOrder
	e.blocks = make([]block, maxOrder)
	e.constrained, e.freeCols, e.pivotRows, e.nIrr, e.fc = false, nil, nil, 0, nil
	offset := 0
	for k := 1; k <= maxOrder; k++ {
		tuples := e.enumerate(k, nbody[k-1])
		e.blocks[k-1] = block{order: k, offset: offset, tuples: tuples}
		offset += len(tuples)
		if e.verbosity > 0 {
			e.o.logger.Info("order defined", "order", k, "nbody", nbody[k-1], "coefficients", len(tuples))
		}
	}
	e.nFull = offset

	return nil
}

// enumerate lists nondecreasing tuples of order+1 flat indices whose distinct
// atoms number at most nb and, with a cutoff, are pairwise within it.
func (e *Expansion) enumerate(order, nb int) [][]int {
	if nb == 0 {
		return nil
	}
	radius, hasCut := e.o.cutoffs[order]
	d := e.dim()

	var (
		out   [][]int
		cur   = make([]int, 0, order+1)
		atoms = make([]int, 0, order+1)
		rec   func(start int)
	)
	rec = func(start int) {
		if len(cur) == order+1 {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for idx := start; idx < d; idx++ {
			a := idx / 3
			fresh := len(atoms) == 0 || atoms[len(atoms)-1] != a
			if fresh {
				// later indices belong to later atoms too
				if len(atoms) == nb {
					break
				}
				if hasCut && !e.within(atoms, a, radius) {
					continue
				}
				atoms = append(atoms, a)
			}
			cur = append(cur, idx)
			rec(idx)
			cur = cur[:len(cur)-1]
			if fresh {
				atoms = atoms[:len(atoms)-1]
			}
		}
	}
	rec(0)

	return out
}

func (e *Expansion) within(atoms []int, a int, radius float64) bool {
	for _, b := range atoms {
		if e.dist[a][b] > radius {
			return false
		}
	}

	return true
}

// SetConstraint applies the acoustic sum rule and switches to the irreducible basis.
// MAIN DESCRIPTION:
//   - Translational invariance requires Σ_b Φ(i1..ik, 3b+β) = 0 for every
//     sorted prefix i1..ik and component β. Those linear relations are reduced
//     per order and split the coefficients into irreducible (free) ones and
//     dependent ones expressed through them.
//
// Implementation:
//   - Stage 1: build the sparse sum-rule rows of each order (sumRuleRows).
//   - Stage 2: reduce them (reduceSparse); pivot columns become dependent.
//   - Stage 3: number the remaining columns as irreducible coefficients and
//     store every pivot row over those numbers.
//
// Behavior highlights:
//   - MatrixElements and SetFC work in the irreducible basis afterwards.
//   - Previously installed force constants are dropped.
//
// Errors:
//   - solver.ErrClosed, solver.ErrNotDefined.
//   - ErrNoCoefficients when no irreducible coefficient remains.
//
// Complexity:
//   - Space O(nonzeros of the reduced rows); no dense projection is formed.
//
// Notes:
//   - Orders disabled through nbody contribute nothing.
func (e *Expansion) SetConstraint() error {
	if e.closed {
		return fmt.Errorf("SetConstraint: %w", solver.ErrClosed)
	}
	if e.blocks == nil {
		return fmt.Errorf("SetConstraint: %w", solver.ErrNotDefined)
	}

	var (
		freeCols  []int
		pivotRows []pivotRow
	)
	for _, b := range e.blocks {
		if len(b.tuples) == 0 {
			continue
		}
		pivots, reduced := reduceSparse(e.sumRuleRows(b), e.o.pivotTol)

		irrOf := make([]int, len(b.tuples)) // block column -> irreducible index, -1 for pivots
		for _, p := range pivots {
			irrOf[p] = -1
		}
		for l := range b.tuples {
			if irrOf[l] < 0 {
				continue
			}
			irrOf[l] = len(freeCols)
			freeCols = append(freeCols, b.offset+l)
		}
		for r, p := range pivots {
			row := reduced[r]
			cols := sortedColumns(row, p)
			pr := pivotRow{col: b.offset + p, irr: make([]int, len(cols)), vals: make([]float64, len(cols))}
			for q, c := range cols {
				pr.irr[q], pr.vals[q] = irrOf[c], row[c]
			}
			pivotRows = append(pivotRows, pr)
		}
		if e.verbosity > 0 {
			e.o.logger.Info("sum rule applied", "order", b.order,
				"constraints", len(pivots), "irreducible", len(b.tuples)-len(pivots))
		}
	}
	if len(freeCols) == 0 {
		return fmt.Errorf("SetConstraint: %w", ErrNoCoefficients)
	}

	e.constrained, e.freeCols, e.pivotRows, e.nIrr, e.fc = true, freeCols, pivotRows, len(freeCols), nil

	return nil
}

// sumRuleRows returns one sparse row per (sorted prefix, β): the coefficients of
// Σ_b Φ(prefix, 3b+β) over the block's columns. Empty rows are dropped.
func (e *Expansion) sumRuleRows(b block) []map[int]float64 {
	d := e.dim()
	col := make(map[int]int, len(b.tuples))
	for l, t := range b.tuples {
		col[tupleKey(t, d)] = l
	}

	var rows []map[int]float64
	prefix := make([]int, b.order)
	tuple := make([]int, b.order+1)
	var rec func(pos, start int)
	rec = func(pos, start int) {
		if pos < b.order {
			for idx := start; idx < d; idx++ {
				prefix[pos] = idx
				rec(pos+1, idx)
			}
			return
		}
		for beta := 0; beta < 3; beta++ {
			var row map[int]float64
			for atom := 0; atom < e.natom; atom++ {
				insertSorted(tuple, prefix, 3*atom+beta)
				l, ok := col[tupleKey(tuple, d)]
				if !ok {
					continue
				}
				if row == nil {
					row = make(map[int]float64, e.natom)
				}
				row[l]++
			}
			if row != nil {
				rows = append(rows, row)
			}
		}
	}
	rec(0, 0)

	return rows
}

// SetDisplacementsForces copies (samples, atoms, 3) tensors whose atom axis
// must equal the structure size.
func (e *Expansion) SetDisplacementsForces(disp, forces *tensor.Tensor) error {
	if e.closed {
		return fmt.Errorf("SetDisplacementsForces: %w", solver.ErrClosed)
	}
	for _, t := range []*tensor.Tensor{disp, forces} {
		if err := tensor.ValidateShape(t, tensor.Any, tensor.Any, 3); err != nil {
			return fmt.Errorf("SetDisplacementsForces: %w", err)
		}
		if t.Dim(1) != e.natom {
			return fmt.Errorf("SetDisplacementsForces: %d atoms, structure has %d: %w",
				t.Dim(1), e.natom, solver.ErrAtomCount)
		}
	}
	if !tensor.SameShape(disp, forces) {
		return fmt.Errorf("SetDisplacementsForces: %v vs %v: %w",
			disp.Shape(), forces.Shape(), tensor.ErrInvalidShape)
	}

	e.samples = disp.Dim(0)
	e.disp = disp.Data()
	e.forces = forces.Data()

	return nil
}

// MatrixElements builds A (samples·3N rows, one per observed force component)
// and b (the forces). Rows are ordered sample, atom, component.
func (e *Expansion) MatrixElements() (*mat.Dense, *mat.VecDense, error) {
	if e.closed {
		return nil, nil, fmt.Errorf("MatrixElements: %w", solver.ErrClosed)
	}
	if e.blocks == nil {
		return nil, nil, fmt.Errorf("MatrixElements: %w", solver.ErrNotDefined)
	}
	if e.disp == nil {
		return nil, nil, fmt.Errorf("MatrixElements: %w", solver.ErrNoData)
	}
	if e.nFull == 0 {
		return nil, nil, fmt.Errorf("MatrixElements: %w", ErrNoCoefficients)
	}

	rows := e.samples * e.dim()
	cols := e.designColumns()
	rhs := mat.NewVecDense(len(e.forces), append([]float64(nil), e.forces...))

	if !e.constrained {
		a := mat.NewDense(rows, e.nFull, nil)
		for j, col := range cols {
			for _, z := range col {
				a.Set(z.row, j, z.val)
			}
		}
		return a, rhs, nil
	}

	// A·Z column by column: a free column minus the pivot columns that
	// depend on it, weighted by the reduced rows.
	a := mat.NewDense(rows, e.nIrr, nil)
	raw := a.RawMatrix()
	for g, f := range e.freeCols {
		for _, z := range cols[f] {
			raw.Data[z.row*raw.Stride+g] += z.val
		}
	}
	for _, pr := range e.pivotRows {
		for _, z := range cols[pr.col] {
			off := z.row * raw.Stride
			for q, g := range pr.irr {
				raw.Data[off+g] -= pr.vals[q] * z.val
			}
		}
	}

	return a, rhs, nil
}

// designColumns returns the nonzero entries of the unreduced design matrix,
// one slice per coefficient.
func (e *Expansion) designColumns() [][]nonzero {
	d := e.dim()
	cols := make([][]nonzero, e.nFull)
	for s := 0; s < e.samples; s++ {
		u := e.disp[s*d : (s+1)*d]
		for _, b := range e.blocks {
			for l, t := range b.tuples {
				for p := range t {
					if p > 0 && t[p] == t[p-1] {
						continue
					}
					if v := legCoefficient(t, p, u); v != 0 {
						cols[b.offset+l] = append(cols[b.offset+l], nonzero{row: s*d + t[p], val: v})
					}
				}
			}
		}
	}

	return cols
}

// legCoefficient is the derivative of the energy term of tuple t with respect
// to the leg at position skip: -Π_{q≠skip} u[t[q]] / Π mult!, the multiplicities
// taken over the remaining legs.
func legCoefficient(t []int, skip int, u []float64) float64 {
	prod, denom := 1.0, 1.0
	run, prev := 0, -1
	for q, idx := range t {
		if q == skip {
			continue
		}
		prod *= u[idx]
		if idx == prev {
			run++
			denom *= float64(run)
		} else {
			run, prev = 1, idx
		}
	}

	return -prod / denom
}

// SetFC installs psi, in the irreducible basis when constraints are set.
func (e *Expansion) SetFC(psi *mat.VecDense) error {
	if e.closed {
		return fmt.Errorf("SetFC: %w", solver.ErrClosed)
	}
	if e.blocks == nil {
		return fmt.Errorf("SetFC: %w", solver.ErrNotDefined)
	}
	want := e.nFull
	if e.constrained {
		want = e.nIrr
	}
	if psi == nil || psi.Len() != want {
		got := 0
		if psi != nil {
			got = psi.Len()
		}
		return fmt.Errorf("SetFC: length %d, want %d: %w", got, want, solver.ErrPsiLength)
	}
	for i := 0; i < psi.Len(); i++ {
		if v := psi.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("SetFC: psi[%d]: %w", i, tensor.ErrNaNInf)
		}
	}

	if !e.constrained {
		e.fc = mat.Col(nil, 0, psi)
		return nil
	}
	full := make([]float64, e.nFull)
	for g, f := range e.freeCols {
		full[f] = psi.AtVec(g)
	}
	for _, pr := range e.pivotRows {
		var v float64
		for q, g := range pr.irr {
			v -= pr.vals[q] * psi.AtVec(g)
		}
		full[pr.col] = v
	}
	e.fc = full

	return nil
}

// FC returns the entries of one order. ModeAll expands each coefficient to
// every distinct permutation of its indices.
func (e *Expansion) FC(order int, mode solver.Mode) ([]solver.Entry, error) {
	if e.closed {
		return nil, fmt.Errorf("FC: %w", solver.ErrClosed)
	}
	if e.blocks == nil {
		return nil, fmt.Errorf("FC: %w", solver.ErrNotDefined)
	}
	if e.fc == nil {
		return nil, fmt.Errorf("FC: %w", solver.ErrNoFC)
	}
	if order < 1 || order > e.maxOrder {
		return nil, fmt.Errorf("FC: order %d outside [1,%d]: %w", order, e.maxOrder, solver.ErrBadOrder)
	}
	if mode != solver.ModeAll && mode != solver.ModeIrreducible {
		return nil, fmt.Errorf("FC: %v: %w", mode, solver.ErrUnknownMode)
	}

	b := e.blocks[order-1]
	out := make([]solver.Entry, 0, len(b.tuples))
	for l, t := range b.tuples {
		v := e.fc[b.offset+l]
		perm := append([]int(nil), t...)
		for {
			out = append(out, solver.Entry{Value: v, Indices: append([]int(nil), perm...)})
			if mode == solver.ModeIrreducible || !nextPermutation(perm) {
				break
			}
		}
	}

	return out, nil
}

// Close drops all state. Further calls return solver.ErrClosed.
func (e *Expansion) Close() error {
	e.closed = true
	e.blocks, e.disp, e.forces, e.fc, e.dist = nil, nil, nil, nil, nil
	e.constrained, e.freeCols, e.pivotRows, e.nIrr = false, nil, nil, 0

	return nil
}
