// SPDX-License-Identifier: MIT

// Package tensor provides a small dense N-dimensional float64 array used to
// carry displacement/force samples and force-constant tensors.
//
// Storage is a single row-major buffer with precomputed strides, so the flat
// offset of idx is Σ idx[a]*strides[a]. Public accessors never panic on user
// input: At and Set return ErrOutOfRange (wrapped with method context) and Set
// rejects NaN/±Inf with ErrNaNInf.
//
// Complexity quicksheet:
//   - New: O(Π shape) zero-init; At/Set: O(rank); Clone/Reshape/Slice: O(Len).
//
// Usage:
//
//	fc, err := tensor.New(n, n, 3, 3)
//	if err != nil {
//		return err
//	}
//	_ = fc.Set(1.5, 0, 1, 2, 2)
package tensor
