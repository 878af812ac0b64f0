package stats

import (
	"fmt"
	"io"
	"math"

	"github.com/aybabtme/uniplot/histogram"
)

// ColumnSummary describes the spread of one feature column.
type ColumnSummary struct {
	Name     string
	Count    int
	Mean     float64
	Stdev    float64
	Min, Max float64
}

func (c ColumnSummary) String() string {
	return fmt.Sprintf("%-24s n=%-6d mean=%10.4f sd=%10.4f min=%10.4f max=%10.4f",
		c.Name, c.Count, c.Mean, c.Stdev, c.Min, c.Max)
}

// Summarize computes a ColumnSummary for each column of rows. NaN cells are
// not counted.
func Summarize(columns []string, rows [][]float64) []ColumnSummary {
	out := make([]ColumnSummary, len(columns))
	for j, name := range columns {
		s := &Statistic{}
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			v := r[j]
			if math.IsNaN(v) {
				continue
			}
			s.Push(v)
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		if s.Iterations() == 0 {
			lo, hi = 0, 0
		}
		out[j] = ColumnSummary{Name: name, Count: s.Iterations(), Mean: s.Mean(),
			Stdev: s.Stdev(), Min: lo, Max: hi}
	}
	return out
}

// FeatureHistogram prints an ASCII histogram of one feature's values.
func FeatureHistogram(w io.Writer, name string, values []float64, bins int) error {
	if _, err := fmt.Fprintf(w, "%s\n", name); err != nil {
		return err
	}
	if len(values) == 0 {
		_, err := fmt.Fprintln(w, "  (no values)")
		return err
	}
	h := histogram.Hist(bins, values)
	return histogram.Fprint(w, h, histogram.Linear(40))
}
