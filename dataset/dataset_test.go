package dataset_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/katalvlaran/forcefit/dataset"
	"github.com/katalvlaran/forcefit/tensor"
)

// table renders samples*atoms rows where the value in column c of row r is
// r*10 + c, so every cell is recognisable after the reshape.
func table(samples, atoms int) string {
	var b strings.Builder
	b.WriteString("# ux uy uz fx fy fz\n")
	for r := 0; r < samples*atoms; r++ {
		for c := 0; c < 6; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%g", float64(r*10+c))
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func TestRead_SplitsColumns(t *testing.T) {
	const samples, atoms = 3, 4
	ds, err := dataset.Read(strings.NewReader(table(samples, atoms)), dataset.WithAtomsPerSample(atoms))
	require.NoError(t, err)
	require.Equal(t, samples, ds.NumSamples())
	require.Equal(t, atoms, ds.NumAtoms())

	disp, forces := ds.Displacements(), ds.Forces()
	require.Equal(t, []int{samples, atoms, 3}, disp.Shape())
	require.Equal(t, []int{samples, atoms, 3}, forces.Shape())

	for s := 0; s < samples; s++ {
		for a := 0; a < atoms; a++ {
			row := s*atoms + a
			for c := 0; c < 3; c++ {
				u, err := disp.At(s, a, c)
				require.NoError(t, err)
				f, err := forces.At(s, a, c)
				require.NoError(t, err)
				assert.Equal(t, float64(row*10+c), u)
				assert.Equal(t, float64(row*10+c+3), f)
			}
		}
	}
}

func TestRead_TrailingComments(t *testing.T) {
	in := "0.1 0 0 -1 0 0 # first atom\n  # indented comment\n0 0.2 0 0 -2 0#tight\n"
	ds, err := dataset.Read(strings.NewReader(in), dataset.WithAtomsPerSample(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0, 0, 0, 0.2, 0}, ds.Displacements().Data())
	assert.Equal(t, []float64{-1, 0, 0, 0, -2, 0}, ds.Forces().Data())
}

func TestRead_DefaultAtomsPerSample(t *testing.T) {
	ds, err := dataset.Read(strings.NewReader(table(2, dataset.DefaultAtomsPerSample)))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 64, 3}, ds.Displacements().Shape())
}

func TestRead_Errors(t *testing.T) {
	cases := []struct {
		name string
		text string
		want error
	}{
		{"empty", "\n# nothing\n", dataset.ErrEmpty},
		{"columns", "1 2 3 4 5\n", dataset.ErrColumns},
		{"parse", "1 2 3 4 5 x\n", dataset.ErrParse},
		{"row count", table(1, 3), dataset.ErrRowCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dataset.Read(strings.NewReader(tc.text), dataset.WithAtomsPerSample(2))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestReadFile_PlainAndXZAgree(t *testing.T) {
	dir := t.TempDir()
	text := table(2, 4)

	plain := filepath.Join(dir, "FORCE_SETS")
	require.NoError(t, os.WriteFile(plain, []byte(text), 0o600))

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	packed := filepath.Join(dir, "FORCE_SETS.xz")
	require.NoError(t, os.WriteFile(packed, buf.Bytes(), 0o600))

	a, err := dataset.ReadFile(plain, dataset.WithAtomsPerSample(4))
	require.NoError(t, err)
	b, err := dataset.ReadFile(packed, dataset.WithAtomsPerSample(4))
	require.NoError(t, err)

	assert.Equal(t, a.Displacements().Data(), b.Displacements().Data())
	assert.Equal(t, a.Forces().Data(), b.Forces().Data())
	assert.Equal(t, a.Forces().Shape(), b.Forces().Shape())
}

func TestReadFile_NotXZ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xz")
	require.NoError(t, os.WriteFile(path, []byte(table(1, 1)), 0o600))

	_, err := dataset.ReadFile(path, dataset.WithAtomsPerSample(1))
	require.Error(t, err, "plain text behind an .xz suffix must not parse")
}

func TestReadFile_Missing(t *testing.T) {
	_, err := dataset.ReadFile(filepath.Join(t.TempDir(), "absent"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNew_ShapeChecks(t *testing.T) {
	u, err := tensor.New(2, 4, 3)
	require.NoError(t, err)
	f, err := tensor.New(2, 5, 3)
	require.NoError(t, err)
	_, err = dataset.New(u, f)
	require.ErrorIs(t, err, dataset.ErrShapeMismatch)

	bad, err := tensor.New(2, 4, 6)
	require.NoError(t, err)
	_, err = dataset.New(bad, bad)
	require.ErrorIs(t, err, dataset.ErrShapeMismatch)

	_, err = dataset.New(nil, u)
	require.ErrorIs(t, err, tensor.ErrNilTensor)

	ds, err := dataset.New(u, u)
	require.NoError(t, err)
	assert.Equal(t, 4, ds.NumAtoms())
}

func TestWithAtomsPerSample_PanicsOnNonPositive(t *testing.T) {
	require.Panics(t, func() { dataset.WithAtomsPerSample(0) })
}
