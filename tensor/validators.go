// SPDX-License-Identifier: MIT
// Package: tensor
//
// Purpose:
//  - Single source of truth for shape checks shared by dataset and solver code.
//  - Return sentinels wrapped with a validator tag so call sites can match via errors.Is.

package tensor

import "fmt"

// Any matches every length of an axis in ValidateShape.
const Any = -1

func validatorErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// ValidateNotNil returns ErrNilTensor if t is nil.
func ValidateNotNil(t *Tensor) error {
	if t == nil {
		return validatorErrorf("ValidateNotNil", ErrNilTensor)
	}

	return nil
}

// ValidateShape checks that t is non-nil and that its shape matches want, axis
// by axis. An axis given as Any accepts every length.
//
// Errors: ErrNilTensor, ErrInvalidShape (rank or axis mismatch).
// Complexity: O(rank).
func ValidateShape(t *Tensor, want ...int) error {
	if err := ValidateNotNil(t); err != nil {
		return validatorErrorf("ValidateShape", err)
	}
	if len(t.shape) != len(want) {
		return fmt.Errorf("ValidateShape: rank %d, want %d: %w", len(t.shape), len(want), ErrInvalidShape)
	}
	for a, w := range want {
		if w != Any && t.shape[a] != w {
			return fmt.Errorf("ValidateShape: axis %d is %d, want %d: %w", a, t.shape[a], w, ErrInvalidShape)
		}
	}

	return nil
}
