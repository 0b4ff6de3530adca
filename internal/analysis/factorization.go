package analysis

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/patricesweeney/analysis-jobs/pkg/table"
)

const (
	maxFactors           = 3
	factorizationSeed    = 42
	factorizationMaxIter = 200
	factorizationTol     = 1e-4

	// progress is reported and cancellation checked every checkEvery iterations
	checkEvery = 10

	epsilon = 1e-10
)

// Factorization runs a non-negative matrix factorization X ≈ WH over the
// numeric columns of a table. Missing values count as zero and negative
// values are clamped to zero.
type Factorization struct {
	maxIter int
	seed    uint64
}

func NewFactorization() *Factorization {
	return &Factorization{maxIter: factorizationMaxIter, seed: factorizationSeed}
}

func (f *Factorization) Analyze(ctx context.Context, t *table.Table, progress ProgressFunc) (Result, error) {
	columns, values := t.NumericMatrix()
	if len(columns) < 2 {
		return Result{
			"type":  string(PoissonFactorization),
			"error": "Need at least 2 numeric columns",
		}, nil
	}
	if len(values) == 0 {
		return Result{
			"type":  string(PoissonFactorization),
			"error": "Need at least 1 row of numeric data",
		}, nil
	}

	x := mat.NewDense(len(values), len(columns), nil)
	for i, row := range values {
		for j, v := range row {
			if math.IsInf(v, 0) {
				return Result{
					"type":  string(PoissonFactorization),
					"error": "Input contains infinite values",
				}, nil
			}
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			x.Set(i, j, v)
		}
	}

	k := min(maxFactors, len(columns))
	_, h, recErr, err := f.factorize(ctx, x, k, progress)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(recErr) || math.IsInf(recErr, 0) {
		return Result{
			"type":  string(PoissonFactorization),
			"error": "Factorization did not converge to finite values",
		}, nil
	}

	weights := make([][]float64, k)
	for i := range weights {
		weights[i] = mat.Row(nil, i, h)
	}

	return Result{
		"type":                 string(PoissonFactorization),
		"n_factors":            k,
		"reconstruction_error": recErr,
		"factor_weights":       weights,
		"factor_columns":       columns,
	}, nil
}

// factorize applies Lee-Seung multiplicative updates for the Frobenius loss.
// The returned error value is the Frobenius norm of X - WH.
func (f *Factorization) factorize(ctx context.Context, x *mat.Dense, k int, progress ProgressFunc) (*mat.Dense, *mat.Dense, float64, error) {
	n, m := x.Dims()
	w, h := f.initFactors(x, k)

	prevErr := reconstructionError(x, w, h)
	// receivers keep their shape across iterations
	var numH, gramW, denH, numW, gramH, denW mat.Dense
	for it := 1; it <= f.maxIter; it++ {
		// H <- H * (W'X) / (W'W H)
		numH.Mul(w.T(), x)
		gramW.Mul(w.T(), w)
		denH.Mul(&gramW, h)
		updateInPlace(h, &numH, &denH, k, m)

		// W <- W * (X H') / (W H H')
		numW.Mul(x, h.T())
		gramH.Mul(h, h.T())
		denW.Mul(w, &gramH)
		updateInPlace(w, &numW, &denW, n, k)

		if it%checkEvery != 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}
		progress(float64(it) / float64(f.maxIter))

		curErr := reconstructionError(x, w, h)
		if prevErr == 0 || (prevErr-curErr)/prevErr < factorizationTol {
			prevErr = curErr
			break
		}
		prevErr = curErr
	}

	return w, h, reconstructionError(x, w, h), nil
}

// initFactors draws both factors from |N(0,1)| scaled so that WH has the
// same mean as X.
func (f *Factorization) initFactors(x *mat.Dense, k int) (*mat.Dense, *mat.Dense) {
	n, m := x.Dims()
	mean := mat.Sum(x) / float64(n*m)
	scale := math.Sqrt(mean / float64(k))

	rng := rand.New(rand.NewPCG(f.seed, f.seed))
	h := mat.NewDense(k, m, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < m; j++ {
			h.Set(i, j, scale*math.Abs(rng.NormFloat64()))
		}
	}
	w := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			w.Set(i, j, scale*math.Abs(rng.NormFloat64()))
		}
	}
	return w, h
}

func updateInPlace(dst *mat.Dense, num, den mat.Matrix, rows, cols int) {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(i, j, dst.At(i, j)*num.At(i, j)/(den.At(i, j)+epsilon))
		}
	}
}

func reconstructionError(x, w, h *mat.Dense) float64 {
	var approx, diff mat.Dense
	approx.Mul(w, h)
	diff.Sub(x, &approx)
	return mat.Norm(&diff, 2)
}
