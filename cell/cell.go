// SPDX-License-Identifier: MIT

// Package cell describes a periodic crystal structure: three lattice vectors,
// fractional atomic points and integer species numbers.
//
// A Cell is validated once by New and is read-only afterwards; every accessor
// returns a copy so callers cannot mutate shared state.
//
// Conventions:
//   - Lattice rows are the basis vectors a, b, c.
//   - Cartesian position r = f · L for a fractional row vector f.
package cell

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors, one per structural violation, checked in this order:
// numbers/points length -> point width -> lattice shape -> finiteness.
var (
	// ErrNumbersPointsMismatch is returned when len(numbers) != len(points).
	ErrNumbersPointsMismatch = errors.New("cell: shapes of numbers and points are inconsistent")

	// ErrPointsDim is returned when a point row does not have exactly 3 coordinates.
	ErrPointsDim = errors.New("cell: second dimension of points has to be 3")

	// ErrLatticeShape is returned when the lattice is not 3×3.
	ErrLatticeShape = errors.New("cell: shape of lattice has to be (3, 3)")

	// ErrNonFinite is returned when a lattice or point coordinate is NaN or ±Inf.
	ErrNonFinite = errors.New("cell: NaN or Inf coordinate")

	// ErrAtomIndex is returned by per-atom accessors for an index outside [0, Len()).
	ErrAtomIndex = errors.New("cell: atom index out of range")
)

// Cell is an immutable crystal structure.
type Cell struct {
	lattice [3][3]float64
	points  [][3]float64
	numbers []int
}

// New validates and copies lattice, points and numbers into a Cell.
//
// Errors (first violation wins):
//   - ErrNumbersPointsMismatch, ErrPointsDim, ErrLatticeShape, ErrNonFinite.
//
// Complexity: O(N).
func New(lattice [][]float64, points [][]float64, numbers []int) (*Cell, error) {
	if len(numbers) != len(points) {
		return nil, fmt.Errorf("New: %d numbers, %d points: %w", len(numbers), len(points), ErrNumbersPointsMismatch)
	}
	for i, p := range points {
		if len(p) != 3 {
			return nil, fmt.Errorf("New: point %d has %d coordinates: %w", i, len(p), ErrPointsDim)
		}
	}
	if len(lattice) != 3 {
		return nil, fmt.Errorf("New: lattice has %d rows: %w", len(lattice), ErrLatticeShape)
	}
	for i, row := range lattice {
		if len(row) != 3 {
			return nil, fmt.Errorf("New: lattice row %d has %d columns: %w", i, len(row), ErrLatticeShape)
		}
	}

	c := &Cell{
		points:  make([][3]float64, len(points)),
		numbers: append([]int(nil), numbers...),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !finite(lattice[i][j]) {
				return nil, fmt.Errorf("New: lattice[%d][%d]: %w", i, j, ErrNonFinite)
			}
			c.lattice[i][j] = lattice[i][j]
		}
	}
	for i, p := range points {
		for j := 0; j < 3; j++ {
			if !finite(p[j]) {
				return nil, fmt.Errorf("New: points[%d][%d]: %w", i, j, ErrNonFinite)
			}
			c.points[i][j] = p[j]
		}
	}

	return c, nil
}

// MustNew is New for fixed fixtures; it panics on error.
func MustNew(lattice [][]float64, points [][]float64, numbers []int) *Cell {
	c, err := New(lattice, points, numbers)
	if err != nil {
		panic(err)
	}

	return c
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Len returns the number of atoms.
func (c *Cell) Len() int { return len(c.numbers) }

// Lattice returns a copy of the basis vectors (rows).
func (c *Cell) Lattice() [3][3]float64 { return c.lattice }

// Points returns a copy of the fractional coordinates.
func (c *Cell) Points() [][3]float64 { return append([][3]float64(nil), c.points...) }

// Numbers returns a copy of the species numbers.
func (c *Cell) Numbers() []int { return append([]int(nil), c.numbers...) }

// Cartesian returns the Cartesian position of atom i.
func (c *Cell) Cartesian(i int) ([3]float64, error) {
	if i < 0 || i >= len(c.points) {
		return [3]float64{}, fmt.Errorf("Cartesian(%d): %w", i, ErrAtomIndex)
	}

	return c.toCartesian(c.points[i]), nil
}

func (c *Cell) toCartesian(f [3]float64) [3]float64 {
	var r [3]float64
	for j := 0; j < 3; j++ {
		r[j] = f[0]*c.lattice[0][j] + f[1]*c.lattice[1][j] + f[2]*c.lattice[2][j]
	}

	return r
}

// Distance returns the minimum-image distance between atoms i and j. The
// fractional difference is wrapped into [-0.5, 0.5) per axis, which is exact
// for the near-orthogonal supercells this package targets.
func (c *Cell) Distance(i, j int) (float64, error) {
	if i < 0 || i >= len(c.points) || j < 0 || j >= len(c.points) {
		return 0, fmt.Errorf("Distance(%d,%d): %w", i, j, ErrAtomIndex)
	}

	var d [3]float64
	for k := 0; k < 3; k++ {
		x := c.points[j][k] - c.points[i][k]
		d[k] = x - math.Floor(x+0.5)
	}
	r := c.toCartesian(d)

	return math.Sqrt(r[0]*r[0] + r[1]*r[1] + r[2]*r[2]), nil
}
