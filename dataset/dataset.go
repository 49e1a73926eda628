// SPDX-License-Identifier: MIT

// Package dataset loads displacement-force measurement tables.
//
// A table is whitespace-delimited text with six columns per row
// (ux uy uz fx fy fz); consecutive blocks of atomsPerSample rows form one
// sample. The result is a DispForce holding two (samples, atoms, 3) tensors.
//
// Files ending in ".xz" are decompressed transparently; anything else is read
// as plain bytes.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/katalvlaran/forcefit/tensor"
)

// tableColumns is the row width: 3 displacement + 3 force components.
const tableColumns = 6

var (
	// ErrShapeMismatch is returned when displacements and forces differ in shape
	// or are not (samples, atoms, 3).
	ErrShapeMismatch = errors.New("dataset: displacements and forces shapes are inconsistent")

	// ErrParse is returned for a token that is not a floating-point number.
	ErrParse = errors.New("dataset: malformed number")

	// ErrColumns is returned for a row without exactly six values.
	ErrColumns = errors.New("dataset: row must have 6 columns")

	// ErrRowCount is returned when the row count is not a multiple of atoms per sample.
	ErrRowCount = errors.New("dataset: row count is not a multiple of atoms per sample")

	// ErrEmpty is returned for a table with no rows.
	ErrEmpty = errors.New("dataset: empty table")
)

// DispForce is an immutable displacement-force dataset.
type DispForce struct {
	displacements *tensor.Tensor
	forces        *tensor.Tensor
}

// New builds a dataset from two (samples, atoms, 3) tensors of identical shape.
// Both are copied.
func New(displacements, forces *tensor.Tensor) (*DispForce, error) {
	if err := tensor.ValidateShape(displacements, tensor.Any, tensor.Any, 3); err != nil {
		return nil, fmt.Errorf("New: displacements: %w: %w", ErrShapeMismatch, err)
	}
	if err := tensor.ValidateShape(forces, tensor.Any, tensor.Any, 3); err != nil {
		return nil, fmt.Errorf("New: forces: %w: %w", ErrShapeMismatch, err)
	}
	if !tensor.SameShape(displacements, forces) {
		return nil, fmt.Errorf("New: %v vs %v: %w", displacements.Shape(), forces.Shape(), ErrShapeMismatch)
	}

	return &DispForce{displacements: displacements.Clone(), forces: forces.Clone()}, nil
}

// Displacements returns a copy of the (samples, atoms, 3) displacements.
func (d *DispForce) Displacements() *tensor.Tensor { return d.displacements.Clone() }

// Forces returns a copy of the (samples, atoms, 3) forces.
func (d *DispForce) Forces() *tensor.Tensor { return d.forces.Clone() }

// NumSamples returns the number of displacement snapshots.
func (d *DispForce) NumSamples() int { return d.displacements.Dim(0) }

// NumAtoms returns the number of atoms per snapshot.
func (d *DispForce) NumAtoms() int { return d.displacements.Dim(1) }

// Read parses a plain-text table from r.
//
// Errors: ErrParse, ErrColumns, ErrRowCount, ErrEmpty, or the reader's error.
func Read(r io.Reader, opts ...Option) (*DispForce, error) {
	o := gatherOptions(opts)

	flat, rows, err := parseTable(r)
	if err != nil {
		return nil, fmt.Errorf("Read: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("Read: %w", ErrEmpty)
	}
	if rows%o.atomsPerSample != 0 {
		return nil, fmt.Errorf("Read: %d rows, %d atoms per sample: %w", rows, o.atomsPerSample, ErrRowCount)
	}

	rowTable, err := tensor.FromData(flat, rows, tableColumns)
	if err != nil {
		return nil, fmt.Errorf("Read: %w", err)
	}
	table, err := rowTable.Reshape(rows/o.atomsPerSample, o.atomsPerSample, tableColumns)
	if err != nil {
		return nil, fmt.Errorf("Read: %w", err)
	}
	disp, err := table.SliceLast(0, 3)
	if err != nil {
		return nil, fmt.Errorf("Read: %w", err)
	}
	forces, err := table.SliceLast(3, tableColumns)
	if err != nil {
		return nil, fmt.Errorf("Read: %w", err)
	}

	o.logger.Debug("dataset parsed",
		slog.Int("samples", rows/o.atomsPerSample),
		slog.Int("atoms_per_sample", o.atomsPerSample))

	return &DispForce{displacements: disp, forces: forces}, nil
}

// ReadFile opens path read-only and parses it with Read, decompressing when
// the name ends in ".xz". The file is closed on every path.
func ReadFile(path string, opts ...Option) (ds *DispForce, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadFile: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("ReadFile: %w", cerr)
		}
	}()

	var r io.Reader = bufio.NewReader(f)
	if filepath.Ext(path) == xzSuffix {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("ReadFile: %s: %w", path, err)
		}
		r = xr
	}

	ds, err = Read(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("ReadFile: %s: %w", path, err)
	}

	return ds, nil
}

// parseTable reads rows of six floats. Text from '#' to the end of a line is
// a comment; lines left blank are skipped.
func parseTable(r io.Reader) ([]float64, int, error) {
	var (
		flat []float64
		rows int
		line int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != tableColumns {
			return nil, 0, fmt.Errorf("line %d: %d values: %w", line, len(fields), ErrColumns)
		}
		for _, tok := range fields {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("line %d: %q: %w", line, tok, ErrParse)
			}
			flat = append(flat, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, 0, err
	}

	return flat, rows, nil
}
