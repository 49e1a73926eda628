// SPDX-License-Identifier: MIT

// Package tensor - dense storage (row-major) & safe accessors.
//
// Purpose:
//   - Provide a contiguous row-major buffer with explicit strides.
//   - Guarantee safety at the public surface: At/Set return errors instead of panicking.
//   - Keep walks deterministic (fixed last-axis-fastest order, no map iteration).

package tensor

import (
	"fmt"
	"math"
)

// ---------- error context tags ----------

const (
	ctxNew      = "New"
	ctxFromData = "FromData"
	ctxAt       = "At"
	ctxSet      = "Set"
	ctxReshape  = "Reshape"
	ctxSlice    = "SliceLast"
)

// tensorErrorf wraps a sentinel with method context and the offending index tuple.
func tensorErrorf(method string, idx []int, err error) error {
	return fmt.Errorf("Tensor.%s%v: %w", method, idx, err)
}

// Tensor is a dense row-major float64 array of arbitrary rank ≥ 1.
//   - shape holds the axis lengths (all > 0).
//   - strides[a] is the flat distance between neighbours along axis a.
//   - data has length Π shape.
type Tensor struct {
	shape          []int
	strides        []int
	data           []float64
	validateNaNInf bool // Set rejects NaN/Inf when true
}

// New allocates a zero-filled tensor with the given shape.
//
// Errors:
//   - ErrInvalidShape if shape is empty or any axis is ≤ 0.
//
// Complexity: Time O(Π shape), Space O(Π shape).
func New(shape ...int) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, tensorErrorf(ctxNew, shape, err)
	}

	return &Tensor{
		shape:          append([]int(nil), shape...),
		strides:        stridesOf(shape),
		data:           make([]float64, n),
		validateNaNInf: true,
	}, nil
}

// FromData builds a tensor holding a copy of data laid out row-major with the
// given shape. Non-finite values are accepted here; AllFinite reports them.
//
// Errors:
//   - ErrInvalidShape for a bad shape.
//   - ErrDataLength if len(data) != Π shape.
func FromData(data []float64, shape ...int) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, tensorErrorf(ctxFromData, shape, err)
	}
	if len(data) != n {
		return nil, tensorErrorf(ctxFromData, shape, ErrDataLength)
	}

	buf := make([]float64, n)
	copy(buf, data)

	return &Tensor{
		shape:          append([]int(nil), shape...),
		strides:        stridesOf(shape),
		data:           buf,
		validateNaNInf: true,
	}, nil
}

// volume returns Π shape or ErrInvalidShape.
func volume(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, ErrInvalidShape
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, ErrInvalidShape
		}
		n *= d
	}

	return n, nil
}

// stridesOf computes row-major strides (last axis contiguous).
func stridesOf(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for a := len(shape) - 1; a >= 0; a-- {
		strides[a] = acc
		acc *= shape[a]
	}

	return strides
}

// Shape returns a copy of the axis lengths.
func (t *Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.shape) }

// Len returns the number of stored elements (Π shape).
func (t *Tensor) Len() int { return len(t.data) }

// Dim returns the length of axis a, or 0 when a is not an axis.
func (t *Tensor) Dim(a int) int {
	if a < 0 || a >= len(t.shape) {
		return 0
	}

	return t.shape[a]
}

// Data returns a copy of the flat row-major buffer.
func (t *Tensor) Data() []float64 {
	out := make([]float64, len(t.data))
	copy(out, t.data)

	return out
}

// offset validates idx and returns its flat position.
func (t *Tensor) offset(method string, idx []int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, tensorErrorf(method, idx, ErrOutOfRange)
	}
	off := 0
	for a, i := range idx {
		if i < 0 || i >= t.shape[a] {
			return 0, tensorErrorf(method, idx, ErrOutOfRange)
		}
		off += i * t.strides[a]
	}

	return off, nil
}

// At returns the element at idx.
//
// Errors:
//   - ErrOutOfRange on rank mismatch or an index outside its axis.
func (t *Tensor) At(idx ...int) (float64, error) {
	off, err := t.offset(ctxAt, idx)
	if err != nil {
		return 0, err
	}

	return t.data[off], nil
}

// Set stores v at idx.
//
// Errors:
//   - ErrOutOfRange on a bad index.
//   - ErrNaNInf when v is not finite.
func (t *Tensor) Set(v float64, idx ...int) error {
	off, err := t.offset(ctxSet, idx)
	if err != nil {
		return err
	}
	if t.validateNaNInf && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return tensorErrorf(ctxSet, idx, ErrNaNInf)
	}
	t.data[off] = v

	return nil
}

// Clone returns an independent deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		shape:          append([]int(nil), t.shape...),
		strides:        append([]int(nil), t.strides...),
		data:           t.Data(),
		validateNaNInf: t.validateNaNInf,
	}
}

// Reshape returns a copy of t viewed with a new shape of equal volume.
//
// Errors:
//   - ErrInvalidShape for a bad shape, ErrDataLength for a volume mismatch.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, tensorErrorf(ctxReshape, shape, err)
	}
	if n != len(t.data) {
		return nil, tensorErrorf(ctxReshape, shape, ErrDataLength)
	}

	return &Tensor{
		shape:          append([]int(nil), shape...),
		strides:        stridesOf(shape),
		data:           t.Data(),
		validateNaNInf: t.validateNaNInf,
	}, nil
}

// SliceLast copies the half-open range [lo, hi) of the last axis, keeping all
// leading axes. It is how a (…, 6) table is split into two (…, 3) halves.
//
// Errors:
//   - ErrOutOfRange unless 0 ≤ lo < hi ≤ last axis length.
func (t *Tensor) SliceLast(lo, hi int) (*Tensor, error) {
	last := t.shape[len(t.shape)-1]
	if lo < 0 || hi > last || lo >= hi {
		return nil, tensorErrorf(ctxSlice, []int{lo, hi}, ErrOutOfRange)
	}

	width := hi - lo
	rows := len(t.data) / last
	out := make([]float64, 0, rows*width)
	for r := 0; r < rows; r++ {
		out = append(out, t.data[r*last+lo:r*last+hi]...)
	}

	shape := append([]int(nil), t.shape...)
	shape[len(shape)-1] = width

	return &Tensor{
		shape:          shape,
		strides:        stridesOf(shape),
		data:           out,
		validateNaNInf: t.validateNaNInf,
	}, nil
}

// AllFinite reports whether no element is NaN or ±Inf.
func (t *Tensor) AllFinite() bool {
	for _, v := range t.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// SameShape reports whether t and u have identical axis lengths.
func SameShape(t, u *Tensor) bool {
	if t == nil || u == nil || len(t.shape) != len(u.shape) {
		return false
	}
	for a := range t.shape {
		if t.shape[a] != u.shape[a] {
			return false
		}
	}

	return true
}
