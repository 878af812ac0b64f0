package model

import (
	"encoding/binary"
	"sort"

	"gonum.org/v1/gonum/mat"
	"lukechampine.com/frand"
)

// rng is a deterministic generator for the given seed.
func rng(seed uint64) *frand.RNG {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}

// byClass splits the row indices into negatives and positives, each
// shuffled.
func byClass(y []float64, r *frand.RNG) (neg, pos []int) {
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	r.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })
	r.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	return neg, pos
}

// StratifiedKFold deals the rows into k folds so that each fold has about
// the same share of each class. Each returned fold lists its held-out rows
// in increasing order.
func StratifiedKFold(y []float64, k int, seed uint64) [][]int {
	neg, pos := byClass(y, rng(seed))
	folds := make([][]int, k)
	i := 0
	for _, class := range [][]int{neg, pos} {
		for _, row := range class {
			folds[i%k] = append(folds[i%k], row)
			i++
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds
}

// TrainValidationSplit holds out about frac of each class for validation.
func TrainValidationSplit(y []float64, frac float64, seed uint64) (train, val []int) {
	neg, pos := byClass(y, rng(seed))
	for _, class := range [][]int{neg, pos} {
		nVal := int(frac*float64(len(class)) + 0.5)
		val = append(val, class[:nVal]...)
		train = append(train, class[nVal:]...)
	}
	sort.Ints(train)
	sort.Ints(val)
	return train, val
}

// complement returns the indices in [0, n) that are not in held, which must
// be sorted.
func complement(n int, held []int) []int {
	out := make([]int, 0, n-len(held))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(held) && held[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// Subset copies the given rows of X and y. No rows gives an empty matrix.
func Subset(X mat.Matrix, y []float64, rows []int) (*mat.Dense, []float64) {
	_, c := X.Dims()
	if len(rows) == 0 || c == 0 {
		return &mat.Dense{}, nil
	}
	sub := mat.NewDense(len(rows), c, nil)
	ys := make([]float64, len(rows))
	for k, i := range rows {
		for j := 0; j < c; j++ {
			sub.Set(k, j, X.At(i, j))
		}
		if y != nil {
			ys[k] = y[i]
		}
	}
	return sub, ys
}
