package internal

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumWindow(w []float64) (float64, error) {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s, nil
}

func TestRollingApply_LeadingNaN(t *testing.T) {
	out := RollingApply([]float64{1, 2, 3, 4, 5}, 3, sumWindow)
	require.Len(t, out, 5)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 6.0, out[2])
	assert.Equal(t, 9.0, out[3])
	assert.Equal(t, 12.0, out[4])
}

func TestRollingApply_NaNInWindow(t *testing.T) {
	out := RollingApply([]float64{1, math.NaN(), 3, 4, 5, 6}, 2, sumWindow)

	assert.True(t, math.IsNaN(out[1]))
	assert.True(t, math.IsNaN(out[2]))
	assert.Equal(t, 7.0, out[3])
	assert.Equal(t, 11.0, out[5])
}

func TestRollingApply_ErrorBecomesNaN(t *testing.T) {
	boom := errors.New("boom")
	fn := func(w []float64) (float64, error) {
		if w[len(w)-1] == 3 {
			return 0, boom
		}
		return w[len(w)-1], nil
	}

	out := RollingApply([]float64{1, 2, 3, 4}, 1, fn)
	assert.Equal(t, 1.0, out[0])
	assert.Equal(t, 2.0, out[1])
	assert.True(t, math.IsNaN(out[2]))
	assert.Equal(t, 4.0, out[3])
}

func TestRollingApply_ShortSeries(t *testing.T) {
	out := RollingApply([]float64{1, 2}, 3, sumWindow)
	require.Len(t, out, 2)
	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))

	assert.Empty(t, RollingApply(nil, 3, sumWindow))
}

func TestRollingApplyParallel_MatchesSequential(t *testing.T) {
	values := testSignal(300)
	values[50] = math.NaN()

	seq := RollingApply(values, 16, sumWindow)
	for _, workers := range []int{2, 3, 7, 64, 1000} {
		par := RollingApplyParallel(values, 16, workers, sumWindow)
		require.Len(t, par, len(seq))
		for i := range seq {
			if math.IsNaN(seq[i]) {
				assert.True(t, math.IsNaN(par[i]), "workers=%d i=%d", workers, i)
				continue
			}
			assert.Equal(t, seq[i], par[i], "workers=%d i=%d", workers, i)
		}
	}
}

func TestRollingEvaluator_Observer(t *testing.T) {
	var (
		mu     sync.Mutex
		seen   = map[int]bool{}
		failed int
	)
	e := RollingEvaluator{
		Window:  3,
		Workers: 4,
		Observer: func(i int, _ time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()
			seen[i] = true
			if err != nil {
				failed++
			}
		},
	}

	values := []float64{1, 2, 3, 4, math.NaN(), 6, 7, 8, 9, 10}
	e.Apply(values, sumWindow)

	assert.Len(t, seen, 8)
	assert.Equal(t, 3, failed)
}
