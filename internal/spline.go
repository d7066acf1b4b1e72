package internal

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	// splineTolerance — допустимое относительное отклонение RSS от заданного s.
	splineTolerance = 1e-3
	splineMaxIter   = 200
)

// Spline — кубический сглаживающий сплайн y(x) с естественными краевыми
// условиями либо, при большом сглаживании, один кубический полином.
//
// Вне диапазона узлов значение продолжается крайним кубическим куском.
// Такая экстраполяция ненадёжна и тем хуже, чем дальше точка от узлов.
type Spline struct {
	x     []float64
	f     []float64 // значения в узлах
	gamma []float64 // вторые производные в узлах, на краях 0

	// Полиномиальный режим: коэффициенты по переменной u = (x-center)/scale
	poly          []float64
	center, scale float64

	rss float64
}

// IsPolynomial — сплайн вырожден в один кубический полином.
func (s *Spline) IsPolynomial() bool {
	return s.poly != nil
}

// Residual — сумма квадратов остатков на узлах.
func (s *Spline) Residual() float64 {
	return s.rss
}

// At вычисляет значение сплайна в точке t, в том числе за последним узлом.
func (s *Spline) At(t float64) float64 {
	if s.poly != nil {
		u := (t - s.center) / s.scale
		return ((s.poly[3]*u+s.poly[2])*u+s.poly[1])*u + s.poly[0]
	}

	n := len(s.x)
	k := sort.SearchFloat64s(s.x, t) - 1
	if k < 0 {
		k = 0
	}
	if k > n-2 {
		k = n - 2
	}

	h := s.x[k+1] - s.x[k]
	dl := t - s.x[k]
	dr := s.x[k+1] - t
	linear := (dl*s.f[k+1] + dr*s.f[k]) / h
	return linear - dl*dr/6*((1+dl/h)*s.gamma[k+1]+(1+dr/h)*s.gamma[k])
}

// FitSmoothingSpline строит кубический сглаживающий сплайн, у которого сумма
// квадратов остатков равна smoothing (с относительной точностью 1e-3).
// smoothing = 0 даёт интерполяцию. Если smoothing не меньше остатка
// кубического полинома МНК, возвращается сам полином.
//
// Узлы x должны строго возрастать, точек должно быть не меньше 4.
func FitSmoothingSpline(x, y []float64, smoothing float64) (*Spline, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("smoothing spline: x and y lengths differ: %d != %d", n, len(y))
	}
	if n < 4 {
		return nil, fmt.Errorf("smoothing spline: need at least 4 points, got %d: %w", n, ErrInsufficientData)
	}
	if !IsFinite(x) || !IsFinite(y) {
		return nil, fmt.Errorf("smoothing spline: %w", ErrNotAvailable)
	}
	if math.IsNaN(smoothing) || smoothing < 0 {
		return nil, fmt.Errorf("smoothing spline: invalid smoothing factor %v", smoothing)
	}
	for i := 1; i < n; i++ {
		if x[i] <= x[i-1] {
			return nil, fmt.Errorf("smoothing spline: knots must be strictly increasing: %w", ErrDegenerateFit)
		}
	}

	poly, err := fitCubicPolynomial(x, y)
	if err == nil && poly.rss <= smoothing {
		return poly, nil
	}

	sys := newReinschSystem(x, y)
	if smoothing == 0 {
		return sys.fit(0)
	}

	// RSS(lambda) монотонно растёт от 0 до остатка прямой: ищем lambda
	// бисекцией в логарифмической шкале.
	lo, hi := 1.0, 1.0
	best, err := sys.fit(hi)
	if err != nil {
		return nil, err
	}
	for i := 0; best.rss < smoothing && i < 40; i++ {
		lo, hi = hi, hi*10
		if best, err = sys.fit(hi); err != nil {
			return nil, err
		}
	}
	if best.rss < smoothing {
		return best, nil
	}
	if lo == hi {
		for i := 0; i < 40; i++ {
			lo /= 10
			low, err := sys.fit(lo)
			if err != nil {
				return nil, err
			}
			if low.rss <= smoothing {
				break
			}
			hi, best = lo, low
		}
	}

	for i := 0; i < splineMaxIter; i++ {
		if math.Abs(best.rss-smoothing) <= splineTolerance*smoothing {
			break
		}
		mid := math.Sqrt(lo * hi)
		cur, err := sys.fit(mid)
		if err != nil {
			return nil, err
		}
		if cur.rss > smoothing {
			hi = mid
		} else {
			lo = mid
		}
		best = cur
	}
	return best, nil
}

// reinschSystem хранит ленточные матрицы Q и R алгоритма Райнша.
// Столбец j матрицы Q имеет ненулевые элементы a[j], b[j], c[j] в строках j, j+1, j+2.
type reinschSystem struct {
	x, y    []float64
	h       []float64
	a, b, c []float64
	rhs     *mat.VecDense // Q^T y
}

func newReinschSystem(x, y []float64) *reinschSystem {
	n := len(x)
	m := n - 2
	s := &reinschSystem{
		x: x,
		y: y,
		h: make([]float64, n-1),
		a: make([]float64, m),
		b: make([]float64, m),
		c: make([]float64, m),
	}
	for i := range s.h {
		s.h[i] = x[i+1] - x[i]
	}
	rhs := make([]float64, m)
	for j := 0; j < m; j++ {
		s.a[j] = 1 / s.h[j]
		s.c[j] = 1 / s.h[j+1]
		s.b[j] = -s.a[j] - s.c[j]
		rhs[j] = s.a[j]*y[j] + s.b[j]*y[j+1] + s.c[j]*y[j+2]
	}
	s.rhs = mat.NewVecDense(m, rhs)
	return s
}

// fit решает (R + lambda*Q^T Q) gamma = Q^T y и возвращает сплайн
// со значениями f = y - lambda*Q*gamma.
func (s *reinschSystem) fit(lambda float64) (*Spline, error) {
	n := len(s.x)
	m := n - 2

	band := mat.NewSymBandDense(m, 2, nil)
	for j := 0; j < m; j++ {
		band.SetSymBand(j, j, (s.h[j]+s.h[j+1])/3+lambda*(s.a[j]*s.a[j]+s.b[j]*s.b[j]+s.c[j]*s.c[j]))
		if j+1 < m {
			band.SetSymBand(j, j+1, s.h[j+1]/6+lambda*(s.b[j]*s.a[j+1]+s.c[j]*s.b[j+1]))
		}
		if j+2 < m {
			band.SetSymBand(j, j+2, lambda*s.c[j]*s.a[j+2])
		}
	}

	var chol mat.BandCholesky
	if ok := chol.Factorize(band); !ok {
		return nil, fmt.Errorf("smoothing spline: system is not positive definite: %w", ErrDegenerateFit)
	}
	var gamma mat.VecDense
	if err := chol.SolveVecTo(&gamma, s.rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("smoothing spline: %w", err)
		}
	}

	qg := make([]float64, n)
	for j := 0; j < m; j++ {
		g := gamma.AtVec(j)
		qg[j] += s.a[j] * g
		qg[j+1] += s.b[j] * g
		qg[j+2] += s.c[j] * g
	}

	sp := &Spline{
		x:     s.x,
		f:     make([]float64, n),
		gamma: make([]float64, n),
	}
	for i := range sp.f {
		r := lambda * qg[i]
		sp.f[i] = s.y[i] - r
		sp.rss += r * r
	}
	for j := 0; j < m; j++ {
		sp.gamma[j+1] = gamma.AtVec(j)
	}
	return sp, nil
}

// fitCubicPolynomial — кубический полином МНК по нормированной переменной.
func fitCubicPolynomial(x, y []float64) (*Spline, error) {
	n := len(x)
	center := (x[0] + x[n-1]) / 2
	scale := (x[n-1] - x[0]) / 2

	v := mat.NewDense(n, 4, nil)
	for i, xi := range x {
		u := (xi - center) / scale
		v.Set(i, 0, 1)
		v.Set(i, 1, u)
		v.Set(i, 2, u*u)
		v.Set(i, 3, u*u*u)
	}

	var coef mat.VecDense
	if err := coef.SolveVec(v, mat.NewVecDense(n, y)); err != nil {
		return nil, fmt.Errorf("cubic polynomial fit: %w", err)
	}

	sp := &Spline{
		x:      x,
		poly:   []float64{coef.AtVec(0), coef.AtVec(1), coef.AtVec(2), coef.AtVec(3)},
		center: center,
		scale:  scale,
	}
	for i, xi := range x {
		r := y[i] - sp.At(xi)
		sp.rss += r * r
	}
	return sp, nil
}
