// Package tensor_test provides benchmarks for the hot accessors, using a
// force-constant sized tensor.
package tensor_test

import (
	"testing"

	"github.com/katalvlaran/forcefit/tensor"
)

// sink to defeat dead-code elimination
var sinkF float64

func BenchmarkSetAt(b *testing.B) {
	b.ReportAllocs()
	const n = 64
	x, err := tensor.New(n, n, 3, 3)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a := i % n
		if err = x.Set(float64(i), a, n-1-a, 1, 2); err != nil {
			b.Fatal(err)
		}
		v, err := x.At(a, n-1-a, 1, 2)
		if err != nil {
			b.Fatal(err)
		}
		sinkF = v
	}
}
