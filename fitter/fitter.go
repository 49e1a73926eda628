// SPDX-License-Identifier: MIT

// Package fitter drives a force-constant solver for one structure and one
// displacement-force dataset.
//
// MatrixElements returns the least-squares system A·psi ≈ b. Run solves it
// with the Moore–Penrose pseudo-inverse, hands psi back to a fresh solver and
// reshapes the solver's flat (value, indices) entries into dense tensors of
// shape (N,) + (N,)*k + (3,)*(k+1) for orders k = 1..maxOrder.
//
// Every call opens and closes its own solver through solver.With; nothing is
// shared between calls.
package fitter

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/forcefit/cell"
	"github.com/katalvlaran/forcefit/dataset"
	"github.com/katalvlaran/forcefit/solver"
	"github.com/katalvlaran/forcefit/tensor"
)

var (
	// ErrNilInput is returned by New for a nil dataset or cell.
	ErrNilInput = errors.New("fitter: nil dataset or cell")

	// ErrSingular is returned when the least-squares matrix has no singular
	// value above the rcond cutoff, or cannot be factorized.
	ErrSingular = errors.New("fitter: least-squares matrix is numerically singular")

	// ErrEntryArity is returned for a solver entry whose index count is not order+1.
	ErrEntryArity = errors.New("fitter: force-constant entry has wrong number of indices")
)

const (
	opMatrixElements = "MatrixElements"
	opRun            = "Run"
)

// Fitter holds one dataset and one structure. It is immutable after New.
type Fitter struct {
	ds   *dataset.DispForce
	cell *cell.Cell
	o    options
}

// New returns a Fitter for ds and c.
func New(ds *dataset.DispForce, c *cell.Cell, opts ...Option) (*Fitter, error) {
	if ds == nil || c == nil {
		return nil, ErrNilInput
	}

	return &Fitter{ds: ds, cell: c, o: gatherOptions(opts)}, nil
}

// LogLevel returns the verbosity forwarded to the solver.
func (f *Fitter) LogLevel() int { return f.o.logLevel }

// MatrixElements returns A and b such that force-constant coefficients psi
// minimizing |A·psi - b| reproduce the dataset under the solver's constraints.
// A has one row per observed force component. A nil nbody selects
// solver.DefaultNbody(maxOrder).
//
// Errors from the solver are returned wrapped, unchanged in kind.
func (f *Fitter) MatrixElements(maxOrder int, nbody []int) (*mat.Dense, *mat.VecDense, error) {
	if nbody == nil {
		nbody = solver.DefaultNbody(maxOrder)
	}

	var (
		a *mat.Dense
		b *mat.VecDense
	)
	err := solver.With(f.o.open, f.cell, f.o.logLevel, func(s solver.Solver) error {
		if err := s.Define(maxOrder, nbody); err != nil {
			return err
		}
		if err := s.SetConstraint(); err != nil {
			return err
		}
		if err := s.SetDisplacementsForces(f.ds.Displacements(), f.ds.Forces()); err != nil {
			return err
		}
		var err error
		a, b, err = s.MatrixElements()
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", opMatrixElements, err)
	}

	if f.o.logLevel > 0 {
		r, c := a.Dims()
		f.o.logger.Info("matrix elements", slog.Int("rows", r), slog.Int("cols", c))
	}

	return a, b, nil
}

// Run fits force constants up to order maxOrder+1 and returns one dense tensor
// per order 1..maxOrder.
// MAIN DESCRIPTION:
//   - Solve the least-squares system of MatrixElements with the pseudo-inverse
//     and reshape the solver's flat entries into dense tensors.
//
// Implementation:
//   - Stage 1: build A and b through MatrixElements (first solver scope).
//   - Stage 2: psi = pinv(A)·b via a thin SVD truncated at rcond·σ_max.
//   - Stage 3: open a second solver, repeat Define and SetConstraint, install psi.
//   - Stage 4: pull every order in ModeAll and scatter it with reshapeFC.
//
// Behavior highlights:
//   - Orders disabled through nbody come back as zero tensors of the full shape.
//   - A nil nbody selects solver.DefaultNbody(maxOrder).
//
// Returns:
//   - tensors of shape FCShape(N, N, k) for k = 1..maxOrder.
//
// Errors:
//   - solver errors wrapped unchanged in kind; ErrSingular from the pseudo-inverse.
//
// Complexity:
//   - Time O(m·n·min(m,n)) for the SVD of the m×n matrix A.
//   - Space O(m·n) for A and its factors, plus N^(k+1)·3^(k+1) per dense tensor.
func (f *Fitter) Run(maxOrder int, nbody []int) ([]*tensor.Tensor, error) {
	if nbody == nil {
		nbody = solver.DefaultNbody(maxOrder)
	}

	a, b, err := f.MatrixElements(maxOrder, nbody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opRun, err)
	}
	psi, rank, err := pinvSolve(a, b, f.o.rcond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opRun, err)
	}
	if f.o.logLevel > 0 {
		f.o.logger.Info("least squares",
			slog.Int("rank", rank),
			slog.Float64("residual", Residual(a, b, psi)))
	}

	var fcs []*tensor.Tensor
	err = solver.With(f.o.open, f.cell, f.o.logLevel, func(s solver.Solver) error {
		if err := s.Define(maxOrder, nbody); err != nil {
			return err
		}
		if err := s.SetConstraint(); err != nil {
			return err
		}
		if err := s.SetFC(psi); err != nil {
			return err
		}
		var err error
		fcs, err = f.extract(s, maxOrder)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opRun, err)
	}

	return fcs, nil
}

// extract pulls every order from s in ModeAll and reshapes it.
func (f *Fitter) extract(s solver.Solver, maxOrder int) ([]*tensor.Tensor, error) {
	natom := f.cell.Len()
	atomList := make([]int, natom)
	for i := range atomList {
		atomList[i] = i
	}

	fcs := make([]*tensor.Tensor, 0, maxOrder)
	for order := 1; order <= maxOrder; order++ {
		entries, err := s.FC(order, solver.ModeAll)
		if err != nil {
			return nil, err
		}
		fc, err := reshapeFC(atomList, natom, order, entries)
		if err != nil {
			return nil, err
		}
		f.o.logger.Debug("force constants extracted", slog.Int("order", order), slog.Int("entries", len(entries)))
		fcs = append(fcs, fc)
	}

	return fcs, nil
}

// pinvSolve returns psi = pinv(A)·b, the minimum-norm least-squares solution,
// and the effective rank used.
func pinvSolve(a *mat.Dense, b *mat.VecDense, rcond float64) (*mat.VecDense, int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, ErrSingular
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, 0, ErrSingular
	}

	var psi mat.VecDense
	svd.SolveVecTo(&psi, b, rank)

	return &psi, rank, nil
}

// Residual returns |A·psi - b|₂.
func Residual(a mat.Matrix, b, psi mat.Vector) float64 {
	var r mat.VecDense
	r.MulVec(a, psi)
	r.SubVec(&r, b)

	return floats.Norm(mat.Col(nil, 0, &r), 2)
}
