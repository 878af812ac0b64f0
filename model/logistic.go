// Package model fits and evaluates the win classifier on feature tables.
package model

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNotFitted   = errors.New("model is not fitted")
	ErrSingleClass = errors.New("training labels contain a single class")
)

// Classifier is a binary classifier over feature matrices. Labels are 0 or 1.
type Classifier interface {
	Fit(X mat.Matrix, y []float64) error
	PredictProba(X mat.Matrix) ([]float64, error)
}

// LogisticRegression is an L2-regularized logistic regression fit by
// L-BFGS on standardized columns. The bias is not penalized.
type LogisticRegression struct {
	L2            float64
	MaxIterations int

	mean, scale []float64
	weights     []float64
	bias        float64
}

func NewLogisticRegression(l2 float64, maxIterations int) *LogisticRegression {
	return &LogisticRegression{L2: l2, MaxIterations: maxIterations}
}

// Weights returns the fitted weights, one per standardized column.
func (lr *LogisticRegression) Weights() []float64 { return lr.weights }
func (lr *LogisticRegression) Bias() float64      { return lr.bias }

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

func (lr *LogisticRegression) standardize(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	for i := range out {
		row := make([]float64, c)
		for j := range row {
			row[j] = (X.At(i, j) - lr.mean[j]) / lr.scale[j]
		}
		out[i] = row
	}
	return out
}

func (lr *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	r, c := X.Dims()
	if r != len(y) {
		return fmt.Errorf("%d rows but %d labels", r, len(y))
	}
	pos := floats.Sum(y)
	if r == 0 || pos == 0 || pos == float64(r) {
		return ErrSingleClass
	}

	lr.mean = make([]float64, c)
	lr.scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m, s := stat.MeanStdDev(col, nil)
		if s == 0 || math.IsNaN(s) {
			s = 1
		}
		lr.mean[j], lr.scale[j] = m, s
	}
	Z := lr.standardize(X)
	n := float64(r)

	// x[:c] are the weights, x[c] is the bias.
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w, b := x[:c], x[c]
			loss := 0.0
			for i, z := range Z {
				t := floats.Dot(w, z) + b
				loss += softplus(t) - y[i]*t
			}
			return loss/n + 0.5*lr.L2*floats.Dot(w, w)/n
		},
		Grad: func(grad, x []float64) {
			w, b := x[:c], x[c]
			for k := range grad {
				grad[k] = 0
			}
			for i, z := range Z {
				d := sigmoid(floats.Dot(w, z)+b) - y[i]
				floats.AddScaled(grad[:c], d, z)
				grad[c] += d
			}
			floats.AddScaled(grad[:c], lr.L2, w)
			floats.Scale(1/n, grad)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   lr.MaxIterations,
		GradientThreshold: 1e-8,
	}
	res, err := optimize.Minimize(problem, make([]float64, c+1), settings, &optimize.LBFGS{})
	if err != nil {
		if res == nil {
			return fmt.Errorf("fitting logistic regression: %w", err)
		}
		// A line search that can't make progress still leaves the best
		// point found.
		log.Debug().Err(err).Msg("optimizer-stopped-early")
	}
	lr.weights = append([]float64(nil), res.X[:c]...)
	lr.bias = res.X[c]
	log.Debug().Str("status", res.Status.String()).Int("iterations", res.Stats.MajorIterations).
		Float64("loss", res.F).Msg("fit-logistic-regression")
	return nil
}

func (lr *LogisticRegression) PredictProba(X mat.Matrix) ([]float64, error) {
	if lr.weights == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if r == 0 {
		return []float64{}, nil
	}
	if c != len(lr.weights) {
		return nil, fmt.Errorf("model has %d features, input has %d", len(lr.weights), c)
	}
	Z := lr.standardize(X)
	p := make([]float64, len(Z))
	for i, z := range Z {
		p[i] = sigmoid(floats.Dot(lr.weights, z) + lr.bias)
	}
	return p, nil
}

func (lr *LogisticRegression) Predict(X mat.Matrix, threshold float64) ([]int, error) {
	return Predict(lr, X, threshold)
}

// Predict thresholds the probabilities of c into 0/1 labels.
func Predict(c Classifier, X mat.Matrix, threshold float64) ([]int, error) {
	p, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return Threshold(p, threshold), nil
}

func Threshold(proba []float64, threshold float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= threshold {
			out[i] = 1
		}
	}
	return out
}
