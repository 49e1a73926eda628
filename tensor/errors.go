// SPDX-License-Identifier: MIT

package tensor

import "errors"

// Every message is prefixed with "tensor: ..." for grep-ability. Callers match
// with errors.Is; methods wrap with their own context tag.
var (
	// ErrInvalidShape is returned when a shape is empty or has a non-positive axis.
	ErrInvalidShape = errors.New("tensor: invalid shape")

	// ErrOutOfRange indicates an index outside its axis, or an index tuple whose
	// length differs from the tensor rank.
	ErrOutOfRange = errors.New("tensor: index out of range")

	// ErrDataLength signals that a flat buffer does not match Π shape.
	ErrDataLength = errors.New("tensor: data length does not match shape")

	// ErrNaNInf signals a NaN or ±Inf value offered to Set.
	ErrNaNInf = errors.New("tensor: NaN or Inf encountered")

	// ErrNilTensor indicates that a nil *Tensor was used.
	ErrNilTensor = errors.New("tensor: nil tensor")
)
