package model

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/pokewin/pokewin/stats"
)

// CVReport summarizes a cross-validation run.
type CVReport struct {
	Folds        []Metrics
	MeanAccuracy float64
	StdAccuracy  float64
	// CILow and CIHigh bound the mean accuracy at 95% confidence.
	CILow, CIHigh float64
	MeanAUC       float64
}

func (r *CVReport) String() string {
	return fmt.Sprintf("%d folds: accuracy %.4f ± %.4f (95%% CI %.4f-%.4f), mean auc %.4f",
		len(r.Folds), r.MeanAccuracy, r.StdAccuracy, r.CILow, r.CIHigh, r.MeanAUC)
}

// CrossValidate fits a fresh classifier from factory on each of k
// stratified folds and scores it on the held-out rows at a 0.5 threshold.
// Folds run in parallel.
func CrossValidate(ctx context.Context, factory func() Classifier, X mat.Matrix,
	y []float64, k int, seed uint64) (*CVReport, error) {

	r, _ := X.Dims()
	if r != len(y) {
		return nil, fmt.Errorf("%d rows but %d labels", r, len(y))
	}
	if k < 2 || k > r {
		return nil, fmt.Errorf("cannot make %d folds of %d rows", k, r)
	}
	folds := StratifiedKFold(y, k, seed)
	results := make([]Metrics, k)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for f, held := range folds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			Xtr, ytr := Subset(X, y, complement(r, held))
			Xte, yte := Subset(X, y, held)
			c := factory()
			if err := c.Fit(Xtr, ytr); err != nil {
				return fmt.Errorf("fold %d: %w", f, err)
			}
			p, err := c.PredictProba(Xte)
			if err != nil {
				return fmt.Errorf("fold %d: %w", f, err)
			}
			results[f] = Evaluate(yte, p, 0.5)
			log.Debug().Int("fold", f).Str("metrics", results[f].String()).Msg("fold-done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc, auc := &stats.Statistic{}, &stats.Statistic{}
	for _, m := range results {
		acc.Push(m.Accuracy)
		if !math.IsNaN(m.AUC) {
			auc.Push(m.AUC)
		}
	}
	half := stats.ZVal(95) * acc.StandardError()
	return &CVReport{
		Folds:        results,
		MeanAccuracy: acc.Mean(),
		StdAccuracy:  acc.Stdev(),
		CILow:        acc.Mean() - half,
		CIHigh:       acc.Mean() + half,
		MeanAUC:      auc.Mean(),
	}, nil
}
