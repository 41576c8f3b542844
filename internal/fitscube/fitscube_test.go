package fitscube

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/model"
)

func testHeader() cube.Header {
	return cube.Header{Cards: []cube.Card{
		{Name: "NAXIS", Value: 3},
		{Name: "CTYPE1", Value: "RA---SIN"},
		{Name: "CDELT1", Value: -2.5e-5},
		{Name: "CRPIX1", Value: 2.0},
		{Name: "CTYPE3", Value: "FREQ"},
		{Name: "CDELT3", Value: 1.2e5, Comment: "Hz"},
		{Name: "CTYPE4", Value: "STOKES"},
		{Name: "RESTFRQ", Value: 2.3e11},
	}}
}

func ramp(nv, ny, nx int) *cube.Cube {
	c := cube.New(nv, ny, nx)
	for i := range c.Data {
		c.Data[i] = float64(i) * 0.5
	}
	return c
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	c := ramp(3, 2, 4)
	c.Invalidate(1, 1, 2)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testHeader(), c))

	raw, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, raw.NV)
	assert.Equal(t, 2, raw.NY)
	assert.Equal(t, 4, raw.NX)

	idx := c.Index(1, 1, 2)
	for i, v := range raw.Data {
		if i == idx {
			assert.True(t, math.IsNaN(v))
			continue
		}
		assert.Equal(t, c.Data[i], v, "entry %d", i)
	}

	cdelt, ok := raw.Header.Float("CDELT1")
	require.True(t, ok)
	assert.InDelta(t, -2.5e-5, cdelt, 1e-20)
	assert.Equal(t, "FREQ", raw.Header.String("CTYPE3"))
	assert.False(t, raw.Header.Has("CTYPE4"))
}

func TestReadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.fits"))
	assert.ErrorContains(t, err, "open cube")
}

func TestDecode_NotFITS(t *testing.T) {
	t.Parallel()

	_, err := Decode(bytes.NewReader([]byte("not a fits file")))
	assert.Error(t, err)
}

func TestStructural(t *testing.T) {
	t.Parallel()

	for _, k := range []string{"SIMPLE", "bitpix", "NAXIS", "NAXIS3", "HISTORY", "CTYPE4", "CRVAL4", "BSCALE"} {
		assert.True(t, structural(k), k)
	}
	for _, k := range []string{"CTYPE3", "BMAJ", "RESTFRQ", "OBJECT", "CDELT1"} {
		assert.False(t, structural(k), k)
	}
}

func TestFileOrder(t *testing.T) {
	t.Parallel()

	c := ramp(3, 1, 1)
	assert.Same(t, c, FileOrder(c, false))
	assert.Equal(t, []float64{1, 0.5, 0}, FileOrder(c, true).Data)
}

func TestWriteProducts(t *testing.T) {
	t.Parallel()

	obs := &cube.Observation{Header: testHeader(), Flipped: true}
	p := model.Products{
		Model:            ramp(3, 1, 2),
		Residual:         ramp(3, 1, 2),
		BeforeConvolving: ramp(3, 1, 2),
		BeforeScaling:    ramp(3, 1, 2),
	}
	head := filepath.Join(t.TempDir(), "best")
	paths, err := WriteProducts(head, obs, p)
	require.NoError(t, err)
	require.Len(t, paths, 4)
	assert.Equal(t, head+".beforescaling.fits", paths[3])

	f, err := os.Open(head + ".model.fits")
	require.NoError(t, err)
	defer f.Close()
	raw, err := Decode(f)
	require.NoError(t, err)
	// Channel 0 in the file is the last model channel.
	assert.Equal(t, []float64{2, 2.5}, raw.Data[:2])
}
