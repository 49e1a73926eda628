package solver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/forcefit/cell"
	"github.com/katalvlaran/forcefit/solver"
	"github.com/katalvlaran/forcefit/tensor"
)

// stub counts Close calls and can fail Close.
type stub struct {
	closed   int
	closeErr error
}

func (s *stub) Define(int, []int) error { return nil }
func (s *stub) SetConstraint() error { return nil }
func (s *stub) SetDisplacementsForces(_, _ *tensor.Tensor) error { return nil }
func (s *stub) MatrixElements() (*mat.Dense, *mat.VecDense, error) { return nil, nil, nil }
func (s *stub) SetFC(*mat.VecDense) error { return nil }
func (s *stub) FC(int, solver.Mode) ([]solver.Entry, error) { return nil, nil }
func (s *stub) Close() error {
	s.closed++
	return s.closeErr
}

func opener(s *stub) solver.Opener {
	return func(*cell.Cell, int) (solver.Solver, error) { return s, nil }
}

func TestWith_ClosesOnSuccess(t *testing.T) {
	s := &stub{}
	err := solver.With(opener(s), nil, 0, func(solver.Solver) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 1, s.closed)
}

func TestWith_ClosesOnError(t *testing.T) {
	s := &stub{}
	boom := errors.New("boom")
	err := solver.With(opener(s), nil, 0, func(solver.Solver) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, s.closed)
}

func TestWith_ClosesOnPanic(t *testing.T) {
	s := &stub{}
	require.Panics(t, func() {
		_ = solver.With(opener(s), nil, 0, func(solver.Solver) error { panic("fit") })
	})
	require.Equal(t, 1, s.closed)
}

func TestWith_JoinsCloseError(t *testing.T) {
	closeErr := errors.New("release failed")
	boom := errors.New("boom")
	s := &stub{closeErr: closeErr}
	err := solver.With(opener(s), nil, 0, func(solver.Solver) error { return boom })
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, closeErr)
}

func TestWith_OpenFailure(t *testing.T) {
	openErr := errors.New("no handle")
	called := false
	err := solver.With(func(*cell.Cell, int) (solver.Solver, error) { return nil, openErr }, nil, 0,
		func(solver.Solver) error {
			called = true
			return nil
		})
	require.ErrorIs(t, err, openErr)
	require.False(t, called)

	require.ErrorIs(t, solver.With(nil, nil, 0, nil), solver.ErrNilOpener)
}

func TestDefaultNbody(t *testing.T) {
	require.Equal(t, []int{2}, solver.DefaultNbody(1))
	require.Equal(t, []int{2, 3, 4}, solver.DefaultNbody(3))
	require.Nil(t, solver.DefaultNbody(0))
}

func TestModeString(t *testing.T) {
	require.Equal(t, "all", solver.ModeAll.String())
	require.Equal(t, "irreducible", solver.ModeIrreducible.String())
	require.Equal(t, "Mode(7)", solver.Mode(7).String())
}
