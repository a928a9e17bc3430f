package Poisson1D

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
)

// Manufactured solution u = (x - x^2) e^x of -u'' = (x^2 + 3x) e^x on [0,1]
// with homogeneous Dirichlet ends.
func Exact(x float64) float64  { return (x - x*x) * math.Exp(x) }
func Source(x float64) float64 { return (x*x + 3*x) * math.Exp(x) }

// IntegralExact is the integral of Exact over [0,1].
var IntegralExact = 3 - math.E

const (
	ObservableName = "integral_u"
	MaxErrorName   = "max_error"
)

type Poisson struct {
	K       int // Number of elements
	Tol     float64
	MaxIter int
	A       *sparse.CSR
	B       []float64
}

func NewPoisson(K int) (p *Poisson, err error) {
	if K < 2 {
		err = fmt.Errorf("poisson 1D needs at least 2 elements, got %d", K)
		return
	}
	p = &Poisson{
		K:       K,
		Tol:     1.e-12,
		MaxIter: 10 * K,
	}
	p.assemble()
	return
}

// assemble builds the second order central difference operator on the K-1
// interior nodes.
func (p *Poisson) assemble() {
	var (
		n   = p.K - 1
		h   = 1. / float64(p.K)
		ih2 = 1. / (h * h)
		dok = sparse.NewDOK(n, n)
	)
	p.B = make([]float64, n)
	for i := 0; i < n; i++ {
		dok.Set(i, i, 2*ih2)
		if i > 0 {
			dok.Set(i, i-1, -ih2)
		}
		if i < n-1 {
			dok.Set(i, i+1, -ih2)
		}
		p.B[i] = Source(float64(i+1) * h)
	}
	p.A = dok.ToCSR()
}

// Solve runs conjugate gradient and returns the fields of a run record.
func (p *Poisson) Solve(ctx context.Context) (fields map[string]float64, err error) {
	var (
		start = time.Now()
		n     = len(p.B)
		h     = 1. / float64(p.K)
		x     = make([]float64, n)
		r     = make([]float64, n)
		d     = make([]float64, n)
		Ad    = make([]float64, n)
		bnorm = floats.Norm(p.B, 2)
		iter  int
	)
	copy(r, p.B)
	copy(d, r)
	rr := floats.Dot(r, r)
	for iter = 0; math.Sqrt(rr) > p.Tol*bnorm; iter++ {
		if iter == p.MaxIter {
			err = fmt.Errorf("conjugate gradient did not converge in %d iterations, residual %g",
				iter, math.Sqrt(rr)/bnorm)
			return
		}
		if iter%64 == 0 {
			if err = ctx.Err(); err != nil {
				return
			}
		}
		mulVec(Ad, p.A, d)
		alpha := rr / floats.Dot(d, Ad)
		floats.AddScaled(x, alpha, d)
		floats.AddScaled(r, -alpha, Ad)
		rrNew := floats.Dot(r, r)
		floats.AddScaledTo(d, r, rrNew/rr, d)
		rr = rrNew
	}
	var maxErr float64
	for i, u := range x {
		maxErr = math.Max(maxErr, math.Abs(u-Exact(float64(i+1)*h)))
	}
	fields = map[string]float64{
		"total_elements": float64(p.K),
		"iterations":     float64(iter),
		"total_time":     time.Since(start).Seconds(),
		ObservableName:   h * floats.Sum(x), // trapezoid rule, end values are zero
		MaxErrorName:     maxErr,
	}
	return
}

func mulVec(dst []float64, A *sparse.CSR, x []float64) {
	for i := range dst {
		dst[i] = 0
	}
	A.DoNonZero(func(i, j int, v float64) {
		dst[i] += v * x[j]
	})
}
