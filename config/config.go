// SPDX-License-Identifier: MIT

// Package config reads a YAML run description and turns it into a structure,
// a dataset and a ready fitter.
//
//	dataset: FORCE_SETS_NaCl.xz   # relative to the YAML file
//	atoms_per_sample: 64
//	lattice: [[11.4, 0, 0], [0, 11.4, 0], [0, 0, 11.4]]
//	points: [[0, 0, 0], ...]
//	numbers: [11, ...]
//	maxorder: 2
//	nbody: [2, 3]                 # optional
//	cutoff: {2: 5.0}              # optional, order -> radius
//	rcond: 1e-15                  # optional
//	log_level: 0
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/forcefit/cell"
	"github.com/katalvlaran/forcefit/dataset"
	"github.com/katalvlaran/forcefit/fitter"
	"github.com/katalvlaran/forcefit/solver/taylor"
	"github.com/katalvlaran/forcefit/tensor"
)

var (
	// ErrNoDataset is returned when the dataset path is empty.
	ErrNoDataset = errors.New("config: dataset path is empty")

	// ErrMaxOrder is returned when maxorder < 1.
	ErrMaxOrder = errors.New("config: maxorder must be >= 1")

	// ErrNbody is returned when nbody is set with a length other than maxorder.
	ErrNbody = errors.New("config: nbody length must equal maxorder")

	// ErrAtomsPerSample is returned when atoms_per_sample < 0.
	ErrAtomsPerSample = errors.New("config: atoms_per_sample must be >= 0")

	// ErrCutoff is returned for a cutoff outside [1,maxorder] or without a
	// finite positive radius.
	ErrCutoff = errors.New("config: invalid cutoff")

	// ErrLogLevel is returned when log_level < 0.
	ErrLogLevel = errors.New("config: log_level must be >= 0")

	// ErrRcond is returned when rcond < 0.
	ErrRcond = errors.New("config: rcond must be >= 0")
)

// Cfg holds the parameters of one fit. It can be built by New or by hand; a
// hand-built Cfg should be validated with Check.
type Cfg struct {
	// Dataset is the displacement-force table, optionally xz-compressed.
	// A relative path is resolved against the directory of the YAML file.
	Dataset string `yaml:"dataset"`

	// AtomsPerSample is the number of table rows per snapshot. Zero selects
	// dataset.DefaultAtomsPerSample.
	AtomsPerSample int `yaml:"atoms_per_sample"`

	Lattice [][]float64 `yaml:"lattice"`
	Points  [][]float64 `yaml:"points"`
	Numbers []int       `yaml:"numbers"`

	// MaxOrder is the highest expansion order k.
	MaxOrder int `yaml:"maxorder"`

	// Nbody limits the distinct atoms per order. Empty means the default.
	Nbody []int `yaml:"nbody"`

	// Cutoff maps an order to a pair-distance radius. Cubic fits of large
	// supercells need one; see the taylor package documentation.
	Cutoff map[int]float64 `yaml:"cutoff"`

	// Rcond overrides fitter.DefaultRcond when positive.
	Rcond float64 `yaml:"rcond"`

	LogLevel int `yaml:"log_level"`

	dir string
}

// New opens and decodes the YAML file at path, then calls Check.
func New(path string) (*Cfg, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.dir = filepath.Dir(path)

	return c, nil
}

// Decode reads a Cfg from r and calls Check. Unknown keys are rejected.
// Relative dataset paths are resolved against the working directory.
func Decode(r io.Reader) (*Cfg, error) {
	var c Cfg
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}

	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}

	return &c, nil
}

// Check reports the first field that does not meet its requirements.
// Structure fields are validated by Load through cell.New.
func (c *Cfg) Check() error {
	if c.Dataset == "" {
		return ErrNoDataset
	}
	if c.MaxOrder < 1 {
		return ErrMaxOrder
	}
	if len(c.Nbody) != 0 && len(c.Nbody) != c.MaxOrder {
		return fmt.Errorf("%d entries for maxorder %d: %w", len(c.Nbody), c.MaxOrder, ErrNbody)
	}
	if c.AtomsPerSample < 0 {
		return ErrAtomsPerSample
	}
	for order, radius := range c.Cutoff {
		if order < 1 || order > c.MaxOrder || !(radius > 0) || math.IsInf(radius, 0) {
			return fmt.Errorf("order %d radius %g: %w", order, radius, ErrCutoff)
		}
	}
	if c.LogLevel < 0 {
		return ErrLogLevel
	}
	if c.Rcond < 0 {
		return ErrRcond
	}

	return nil
}

// DatasetPath returns the dataset path resolved against the YAML directory.
func (c *Cfg) DatasetPath() string {
	if filepath.IsAbs(c.Dataset) || c.dir == "" {
		return c.Dataset
	}

	return filepath.Join(c.dir, c.Dataset)
}

// Load checks c, reads the dataset and builds the structure.
func (c *Cfg) Load(logger *slog.Logger) (*dataset.DispForce, *cell.Cell, error) {
	if err := c.Check(); err != nil {
		return nil, nil, fmt.Errorf("Load: %w", err)
	}
	st, err := cell.New(c.Lattice, c.Points, c.Numbers)
	if err != nil {
		return nil, nil, fmt.Errorf("Load: %w", err)
	}

	opts := []dataset.Option{dataset.WithLogger(logger)}
	if c.AtomsPerSample > 0 {
		opts = append(opts, dataset.WithAtomsPerSample(c.AtomsPerSample))
	}
	ds, err := dataset.ReadFile(c.DatasetPath(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("Load: %w", err)
	}

	return ds, st, nil
}

// Fitter loads the inputs and returns a fitter configured from c. A nil
// logger keeps everything silent.
func (c *Cfg) Fitter(logger *slog.Logger) (*fitter.Fitter, error) {
	ds, st, err := c.Load(logger)
	if err != nil {
		return nil, err
	}

	var topts []taylor.Option
	orders := make([]int, 0, len(c.Cutoff))
	for order := range c.Cutoff {
		orders = append(orders, order)
	}
	sort.Ints(orders)
	for _, order := range orders {
		topts = append(topts, taylor.WithCutoff(order, c.Cutoff[order]))
	}
	topts = append(topts, taylor.WithLogger(logger))

	fopts := []fitter.Option{
		fitter.WithLogLevel(c.LogLevel),
		fitter.WithLogger(logger),
		fitter.WithOpener(taylor.OpenWith(topts...)),
	}
	if c.Rcond > 0 {
		fopts = append(fopts, fitter.WithRcond(c.Rcond))
	}

	return fitter.New(ds, st, fopts...)
}

// Run fits the force constants described by c.
func (c *Cfg) Run(logger *slog.Logger) ([]*tensor.Tensor, error) {
	f, err := c.Fitter(logger)
	if err != nil {
		return nil, err
	}

	var nbody []int
	if len(c.Nbody) > 0 {
		nbody = c.Nbody
	}

	return f.Run(c.MaxOrder, nbody)
}
