// SPDX-License-Identifier: MIT

package dataset

import (
	"io"
	"log/slog"
)

// DefaultAtomsPerSample is the supercell size of the bundled NaCl 2×2×2
// example (64 atoms per displacement snapshot).
const DefaultAtomsPerSample = 64

// xzSuffix selects xz decompression in ReadFile.
const xzSuffix = ".xz"

const panicAtomsPerSample = "dataset: WithAtomsPerSample: n must be > 0"

// Option mutates reader options.
type Option func(*options)

type options struct {
	atomsPerSample int
	logger         *slog.Logger
}

func gatherOptions(opts []Option) options {
	o := options{
		atomsPerSample: DefaultAtomsPerSample,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		fn(&o)
	}

	return o
}

// WithAtomsPerSample sets the number of table rows forming one sample.
// Panics when n ≤ 0.
func WithAtomsPerSample(n int) Option {
	if n <= 0 {
		panic(panicAtomsPerSample)
	}

	return func(o *options) { o.atomsPerSample = n }
}

// WithLogger routes parse summaries to l at Debug level. A nil l is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
