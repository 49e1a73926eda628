// SPDX-License-Identifier: MIT

package fitter

import (
	"io"
	"log/slog"
	"math"

	"github.com/katalvlaran/forcefit/solver"
	"github.com/katalvlaran/forcefit/solver/taylor"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultLogLevel keeps the solver and the fitter silent.
	DefaultLogLevel = 0

	// DefaultRcond is the relative singular-value cutoff of the pseudo-inverse:
	// values ≤ DefaultRcond·σ_max are treated as zero.
	DefaultRcond = 1e-15
)

const (
	panicLogLevel = "fitter: WithLogLevel: level must be >= 0"
	panicOpener   = "fitter: WithOpener: opener must be non-nil"
	panicRcond    = "fitter: WithRcond: rcond must be finite and >= 0"
)

// Option configures a Fitter.
type Option func(*options)

type options struct {
	logLevel int
	logger   *slog.Logger
	open     solver.Opener
	rcond    float64
}

func gatherOptions(opts []Option) options {
	o := options{
		logLevel: DefaultLogLevel,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		open:     taylor.Open,
		rcond:    DefaultRcond,
	}
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

// WithLogLevel sets the verbosity forwarded to the solver. Levels above zero
// also enable the fitter's Info summaries.
func WithLogLevel(level int) Option {
	if level < 0 {
		panic(panicLogLevel)
	}

	return func(o *options) { o.logLevel = level }
}

// WithLogger routes fitter logs to l. A nil l is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOpener replaces the default taylor backend.
func WithOpener(open solver.Opener) Option {
	if open == nil {
		panic(panicOpener)
	}

	return func(o *options) { o.open = open }
}

// WithRcond overrides DefaultRcond.
func WithRcond(rcond float64) Option {
	if math.IsNaN(rcond) || math.IsInf(rcond, 0) || rcond < 0 {
		panic(panicRcond)
	}

	return func(o *options) { o.rcond = rcond }
}
