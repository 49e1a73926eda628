// SPDX-License-Identifier: MIT

package taylor

import (
	"io"
	"log/slog"
	"math"
)

// DefaultPivotTolerance is the magnitude below which a constraint-matrix entry
// is treated as zero during row reduction.
const DefaultPivotTolerance = 1e-10

const (
	panicCutoffOrder  = "taylor: WithCutoff: order must be >= 1"
	panicCutoffRadius = "taylor: WithCutoff: radius must be finite and > 0"
	panicPivotTol     = "taylor: WithPivotTolerance: tol must be finite and > 0"
)

// Option configures the backend returned by OpenWith.
type Option func(*options)

type options struct {
	cutoffs  map[int]float64 // order -> radius; absent means unlimited
	logger   *slog.Logger
	pivotTol float64
}

func gatherOptions(opts []Option) options {
	o := options{
		cutoffs:  map[int]float64{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		pivotTol: DefaultPivotTolerance,
	}
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

// WithCutoff keeps an order's clusters only when every pair of distinct atoms
// in the cluster lies within radius (minimum image). Panics on order < 1 or a
// non-positive radius.
func WithCutoff(order int, radius float64) Option {
	if order < 1 {
		panic(panicCutoffOrder)
	}
	if math.IsNaN(radius) || math.IsInf(radius, 0) || radius <= 0 {
		panic(panicCutoffRadius)
	}

	return func(o *options) { o.cutoffs[order] = radius }
}

// WithLogger routes verbosity > 0 summaries to l. A nil l is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPivotTolerance overrides DefaultPivotTolerance.
func WithPivotTolerance(tol float64) Option {
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		panic(panicPivotTol)
	}

	return func(o *options) { o.pivotTol = tol }
}
