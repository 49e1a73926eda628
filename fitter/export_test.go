package fitter

import (
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/forcefit/solver"
	"github.com/katalvlaran/forcefit/tensor"
)

// ReshapeFC exposes reshapeFC to the black-box tests.
func ReshapeFC(atomList []int, natom, order int, entries []solver.Entry) (*tensor.Tensor, error) {
	return reshapeFC(atomList, natom, order, entries)
}

// PinvSolve exposes pinvSolve to the black-box tests.
func PinvSolve(a *mat.Dense, b *mat.VecDense, rcond float64) (*mat.VecDense, int, error) {
	return pinvSolve(a, b, rcond)
}
