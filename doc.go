// Package forcefit fits interatomic force constants of a periodic structure to
// displacement-force data.
//
// What is forcefit?
//
//	A pure-Go pipeline from a table of displaced supercells to dense
//	force-constant tensors:
//		• tensor/ : row-major float64 N-d arrays with checked indexing
//		• cell/   : lattice, fractional positions, species, minimum-image distances
//		• dataset/: six-column displacement-force tables, plain or .xz
//		• solver/ : the force-constant solver contract and its scoped lifetime
//		• solver/taylor/: symmetric Taylor expansion with the acoustic sum rule
//		• fitter/ : least-squares system, pseudo-inverse fit, dense reshaping
//		• config/ : YAML run descriptions
//
// The fit for maximum order k returns one tensor per order j = 1..k with shape
//
//	(N,) + (N,)*j + (3,)*(j+1)
//
// where N is the number of atoms. Entry [i, a1..aj, α0..αj] couples the force
// on atom i along α0 to displacements of atoms a1..aj along α1..αj.
//
// Quick example:
//
//	ds, _ := dataset.ReadFile("FORCE_SETS.xz", dataset.WithAtomsPerSample(64))
//	fit, _ := fitter.New(ds, c)
//	fcs, _ := fit.Run(2, nil) // harmonic (N,N,3,3) and cubic (N,N,N,3,3,3)
//
//	go get github.com/katalvlaran/forcefit
package forcefit
