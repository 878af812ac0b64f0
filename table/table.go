// Package table holds a corpus's feature rows as one rectangular table, and
// moves it to and from CSV and gonum matrices.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"github.com/pokewin/pokewin/features"
)

const (
	IDColumn    = "battle_id"
	LabelColumn = "player_won"
)

var (
	ErrSchemaMismatch = errors.New("feature columns differ")
	ErrMixedLabels    = errors.New("some rows have a label and some do not")
)

// Row is one battle's features.
type Row struct {
	BattleID string
	Label    int
	Values   []float64
}

// Table is a feature table. Every row has len(Columns) values. Label is
// only meaningful when HasLabel is set.
type Table struct {
	Columns  []string
	HasLabel bool
	Rows     []Row
}

// FromResult builds a table from an extraction result. The table is
// labelled when every row is and unlabelled when none is; anything in
// between is ErrMixedLabels.
func FromResult(res *features.Result) (*Table, error) {
	labelled := lo.CountBy(res.Rows, func(r features.Row) bool { return r.HasLabel })
	if labelled > 0 && labelled < len(res.Rows) {
		return nil, fmt.Errorf("%w: %d of %d rows have no usable %s", ErrMixedLabels,
			len(res.Rows)-labelled, len(res.Rows), LabelColumn)
	}
	t := &Table{
		Columns:  append([]string(nil), res.Schema.Names()...),
		HasLabel: labelled > 0,
		Rows:     make([]Row, len(res.Rows)),
	}
	for i, r := range res.Rows {
		t.Rows[i] = Row{BattleID: r.BattleID, Label: r.Label, Values: append([]float64(nil), r.Values...)}
	}
	return t, nil
}

// FillMissing replaces every NaN or infinite cell with 0 and returns how
// many cells it changed.
func (t *Table) FillMissing() int {
	n := 0
	for _, r := range t.Rows {
		for i, v := range r.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				r.Values[i] = 0
				n++
			}
		}
	}
	return n
}

// CheckCompatible makes sure a model fit on train can be applied to test.
func CheckCompatible(train, test *Table) error {
	if len(train.Columns) != len(test.Columns) {
		return fmt.Errorf("%w: train has %d, test has %d", ErrSchemaMismatch,
			len(train.Columns), len(test.Columns))
	}
	for i := range train.Columns {
		if train.Columns[i] != test.Columns[i] {
			return fmt.Errorf("%w: column %d is %s in train, %s in test", ErrSchemaMismatch,
				i, train.Columns[i], test.Columns[i])
		}
	}
	return nil
}

func (t *Table) Len() int { return len(t.Rows) }

func (t *Table) IDs() []string {
	return lo.Map(t.Rows, func(r Row, _ int) string { return r.BattleID })
}

func (t *Table) Labels() []float64 {
	return lo.Map(t.Rows, func(r Row, _ int) float64 { return float64(r.Label) })
}

// Matrix copies the values into a rows x columns matrix.
func (t *Table) Matrix() *mat.Dense {
	if len(t.Rows) == 0 || len(t.Columns) == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(t.Rows), len(t.Columns), nil)
	for i, r := range t.Rows {
		m.SetRow(i, r.Values)
	}
	return m
}

// Column returns a copy of one column's values.
func (t *Table) Column(name string) ([]float64, bool) {
	j := lo.IndexOf(t.Columns, name)
	if j < 0 {
		return nil, false
	}
	return lo.Map(t.Rows, func(r Row, _ int) float64 { return r.Values[j] }), true
}

// WriteCSV writes a header of battle_id, the feature columns and, for a
// labelled table, player_won.
func (t *Table) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	cw := csv.NewWriter(bw)
	header := append([]string{IDColumn}, t.Columns...)
	if t.HasLabel {
		header = append(header, LabelColumn)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for _, r := range t.Rows {
		if len(r.Values) != len(t.Columns) {
			return fmt.Errorf("row %s has %d values, want %d", r.BattleID, len(r.Values), len(t.Columns))
		}
		rec[0] = r.BattleID
		for i, v := range r.Values {
			rec[i+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if t.HasLabel {
			rec[len(rec)-1] = strconv.Itoa(r.Label)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadCSV reads what WriteCSV writes. A trailing player_won column marks the
// table as labelled.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty feature file")
	}
	if err != nil {
		return nil, err
	}
	if len(header) == 0 || header[0] != IDColumn {
		return nil, fmt.Errorf("first column must be %s", IDColumn)
	}
	t := &Table{HasLabel: header[len(header)-1] == LabelColumn}
	last := len(header)
	if t.HasLabel {
		last--
	}
	t.Columns = append([]string(nil), header[1:last]...)
	cr.FieldsPerRecord = len(header)

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := Row{BattleID: rec[0], Values: make([]float64, len(t.Columns))}
		for i := range t.Columns {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, t.Columns[i], err)
			}
			row.Values[i] = v
		}
		if t.HasLabel {
			row.Label, err = strconv.Atoi(rec[last])
			if err != nil {
				return nil, fmt.Errorf("line %d, %s: %w", line, LabelColumn, err)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
