// SPDX-License-Identifier: MIT

// Package solver declares the force-constant solver collaborator consumed by
// the fitter, and the scoped acquisition helper With.
//
// A Solver is stateful and may hold native resources, so it is only ever used
// inside With: opened for one structure, configured, queried, and closed on
// every exit path. Nothing is cached between scopes.
//
// Call order inside a scope:
//
//	Define -> SetConstraint -> SetDisplacementsForces -> MatrixElements
//	Define -> SetConstraint -> SetFC -> FC(order, mode)
package solver

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/forcefit/cell"
	"github.com/katalvlaran/forcefit/tensor"
)

// Sentinel errors shared by Solver implementations.
var (
	// ErrBadOrder is returned by Define for maxOrder < 1, or by FC for an order
	// outside [1, maxOrder].
	ErrBadOrder = errors.New("solver: invalid order")

	// ErrBadNbody is returned by Define for a malformed nbody selection.
	ErrBadNbody = errors.New("solver: invalid nbody selection")

	// ErrNotDefined is returned when a call needs Define first.
	ErrNotDefined = errors.New("solver: expansion not defined")

	// ErrNoData is returned by MatrixElements before SetDisplacementsForces.
	ErrNoData = errors.New("solver: displacements and forces not set")

	// ErrNoFC is returned by FC before SetFC.
	ErrNoFC = errors.New("solver: force constants not set")

	// ErrAtomCount is returned when dataset atoms differ from the structure.
	ErrAtomCount = errors.New("solver: dataset atom count differs from structure")

	// ErrPsiLength is returned by SetFC for a coefficient vector of the wrong length.
	ErrPsiLength = errors.New("solver: coefficient vector length mismatch")

	// ErrUnknownMode is returned by FC for an unsupported extraction mode.
	ErrUnknownMode = errors.New("solver: unknown extraction mode")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("solver: use of closed solver")

	// ErrNilOpener is returned by With when no opener is supplied.
	ErrNilOpener = errors.New("solver: nil opener")
)

// Mode selects which force-constant entries FC reports.
type Mode int

const (
	// ModeAll reports every index permutation of every coefficient.
	ModeAll Mode = iota

	// ModeIrreducible reports one nondecreasing index tuple per coefficient.
	ModeIrreducible
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeAll:
		return "all"
	case ModeIrreducible:
		return "irreducible"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Entry is one force-constant element. Indices are flat atom/component
// indices, 3*atom + component, one per leg (order+1 legs).
type Entry struct {
	Value   float64
	Indices []int
}

// Solver is the force-constant fitting collaborator.
type Solver interface {
	// Define sets the expansion: orders 1..maxOrder, nbody[k-1] limiting the
	// distinct atoms of order k clusters (0 disables the order).
	Define(maxOrder int, nbody []int) error

	// SetConstraint enables translational-invariance constraints. Matrix and
	// coefficient vectors are expressed in the constrained basis afterwards.
	SetConstraint() error

	// SetDisplacementsForces loads (samples, atoms, 3) measurement tensors.
	SetDisplacementsForces(disp, forces *tensor.Tensor) error

	// MatrixElements returns A and b so that psi minimizing |A·psi - b| are the
	// force-constant coefficients.
	MatrixElements() (*mat.Dense, *mat.VecDense, error)

	// SetFC installs a solved coefficient vector.
	SetFC(psi *mat.VecDense) error

	// FC returns the entries of the given order.
	FC(order int, mode Mode) ([]Entry, error)

	// Close releases the solver. It is safe to call more than once.
	Close() error
}

// Opener acquires a Solver scoped to a structure. verbosity 0 is silent.
type Opener func(c *cell.Cell, verbosity int) (Solver, error)

// With opens a solver for c, passes it to fn and closes it on every exit path,
// including a panic in fn. A Close error is joined with fn's error.
func With(open Opener, c *cell.Cell, verbosity int, fn func(Solver) error) (err error) {
	if open == nil {
		return ErrNilOpener
	}
	s, err := open(c, verbosity)
	if err != nil {
		return fmt.Errorf("With: open: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("With: close: %w", cerr))
		}
	}()

	return fn(s)
}

// DefaultNbody returns [2, 3, …, maxOrder+1]: every order k keeps clusters of
// up to k+1 atoms. It returns nil for maxOrder < 1.
func DefaultNbody(maxOrder int) []int {
	if maxOrder < 1 {
		return nil
	}
	nb := make([]int, maxOrder)
	for i := range nb {
		nb[i] = i + 2
	}

	return nb
}
