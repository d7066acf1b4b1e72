package internal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardThreshold(t *testing.T) {
	in := []float64{-3, -1, 0.5, 1, 2}
	out := HardThreshold(in, 1)

	assert.Equal(t, []float64{-3, 0, 0, 1, 2}, out)
	assert.Equal(t, []float64{-3, -1, 0.5, 1, 2}, in, "input must not be modified")
}

func TestUniversalThreshold(t *testing.T) {
	// MAD({-1, 1}) = 1
	u := UniversalThreshold([]float64{-1, 1}, 128)
	want := 1 / 0.6745 * math.Sqrt(2*math.Log(128))
	assert.InDelta(t, want, u, 1e-12)

	assert.Equal(t, 0.0, UniversalThreshold([]float64{5, 5, 5}, 10))
}

func TestDenoise_PreservesLength(t *testing.T) {
	for _, n := range []int{2, 3, 7, 64, 127, 128} {
		out, err := Denoise(testSignal(n), DefaultDenoiseOptions())
		require.NoError(t, err)
		assert.Len(t, out, n)
	}
}

func TestDenoise_ZerosArePassedThrough(t *testing.T) {
	x := make([]float64, 128)
	out, err := Denoise(x, DefaultDenoiseOptions())
	require.NoError(t, err)
	for _, v := range out {
		assert.Equal(t, 0.0, v)
	}
}

func TestDenoise_DegenerateThresholdKeepsInput(t *testing.T) {
	// На линейном ряду детализация haar постоянна, MAD = 0, порог вырожден
	x := make([]float64, 33)
	for i := range x {
		x[i] = 3*float64(i) - 7
	}
	out, err := Denoise(x, DefaultDenoiseOptions())
	require.NoError(t, err)
	assert.InDeltaSlice(t, x, out, 1e-9)
}

func TestDenoise_RemovesFineNoise(t *testing.T) {
	n := 128
	rng := rand.New(rand.NewSource(42))
	clean := make([]float64, n)
	noisy := make([]float64, n)
	for i := range clean {
		clean[i] = math.Sin(2 * math.Pi * float64(i) / 128)
		noisy[i] = clean[i] + 0.2*rng.NormFloat64()
	}

	out, err := Denoise(noisy, DefaultDenoiseOptions())
	require.NoError(t, err)

	errNoisy, errOut := 0.0, 0.0
	for i := range clean {
		errNoisy += (noisy[i] - clean[i]) * (noisy[i] - clean[i])
		errOut += (out[i] - clean[i]) * (out[i] - clean[i])
	}
	assert.Less(t, errOut, errNoisy)
}

func TestDenoise_MultiLevelDb2(t *testing.T) {
	opts := DenoiseOptions{Wavelet: Daubechies2(), Level: 3, Mode: ModeSymmetric}
	out, err := Denoise(testSignal(101), opts)
	require.NoError(t, err)
	assert.Len(t, out, 101)
	assert.True(t, IsFinite(out))
}

func TestDenoise_Errors(t *testing.T) {
	_, err := Denoise([]float64{1}, DefaultDenoiseOptions())
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = Denoise([]float64{1, math.NaN(), 3}, DefaultDenoiseOptions())
	assert.ErrorIs(t, err, ErrNotAvailable)
}
