// SPDX-License-Identifier: MIT

package fitter

import (
	"fmt"
	"slices"

	"github.com/katalvlaran/forcefit/solver"
	"github.com/katalvlaran/forcefit/tensor"
)

// FCShape returns the dense shape of an order-k force-constant tensor for
// natom atoms with leading axis lead: (lead,) + (natom,)*k + (3,)*(k+1).
func FCShape(lead, natom, order int) []int {
	shape := make([]int, 0, 2*order+2)
	shape = append(shape, lead)
	for q := 0; q < order; q++ {
		shape = append(shape, natom)
	}
	for q := 0; q <= order; q++ {
		shape = append(shape, 3)
	}

	return shape
}

// reshapeFC scatters flat entries into a zero tensor of FCShape(len(atomList), natom, order).
//
// It returns:
//   - fc  : the dense tensor, zero wherever no entry landed
//   - err : ErrEntryArity for an entry without order+1 indices,
//     tensor.ErrOutOfRange for an index past natom
//
// Steps:
//  1. Allocate the zero tensor.
//  2. For each entry, map the leading atom idx/3 through atomList; skip the
//     entry when it is not listed.
//  3. Split the remaining indices into atoms idx/3 and components idx%3 and
//     write the value at (slot, atoms..., components...).
//
// Complexity:
//
//	Time:   O(E·(k + len(atomList))) for E entries.
//	Memory: O(len(atomList)·natom^k·3^(k+1)).
func reshapeFC(atomList []int, natom, order int, entries []solver.Entry) (*tensor.Tensor, error) {
	fc, err := tensor.New(FCShape(len(atomList), natom, order)...)
	if err != nil {
		return nil, err
	}

	sel := make([]int, 2*order+2)
	for n, en := range entries {
		if len(en.Indices) != order+1 {
			return nil, fmt.Errorf("entry %d has %d indices, order %d: %w", n, len(en.Indices), order, ErrEntryArity)
		}
		slot := slices.Index(atomList, en.Indices[0]/3)
		if slot < 0 {
			continue
		}
		sel[0] = slot
		for q := 1; q <= order; q++ {
			sel[q] = en.Indices[q] / 3
		}
		for q := 0; q <= order; q++ {
			sel[order+1+q] = en.Indices[q] % 3
		}
		if err = fc.Set(en.Value, sel...); err != nil {
			return nil, fmt.Errorf("entry %d %v: %w", n, en.Indices, err)
		}
	}

	return fc, nil
}
