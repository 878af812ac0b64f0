package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/pokewin/pokewin/table"
)

func TestRoundTrip(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "features.db"))
	is.NoErr(err)
	defer s.Close()

	train := &table.Table{
		Columns:  []string{"ko_diff", "tempo_balance"},
		HasLabel: true,
		Rows: []table.Row{
			{BattleID: "1", Label: 1, Values: []float64{-1, 0.25}},
			{BattleID: "2", Label: 0, Values: []float64{2, -1.0 / 30}},
		},
	}
	is.NoErr(s.SaveTable(ctx, "train", train))
	back, err := s.LoadTable(ctx, "train")
	is.NoErr(err)
	is.Equal(back, train)

	// saving again replaces the rows
	train.Rows = train.Rows[:1]
	is.NoErr(s.SaveTable(ctx, "train", train))
	back, err = s.LoadTable(ctx, "train")
	is.NoErr(err)
	is.Equal(len(back.Rows), 1)

	test := &table.Table{Columns: []string{"ko_diff", "tempo_balance"},
		Rows: []table.Row{{BattleID: "9", Values: []float64{0, 0}}}}
	is.NoErr(s.SaveTable(ctx, "test", test))
	back, err = s.LoadTable(ctx, "test")
	is.NoErr(err)
	is.True(!back.HasLabel)

	names, err := s.Tables(ctx)
	is.NoErr(err)
	is.Equal(names, []string{"test", "train"})
}

func TestLoadMissingTable(t *testing.T) {
	is := is.New(t)
	s, err := Open(filepath.Join(t.TempDir(), "features.db"))
	is.NoErr(err)
	defer s.Close()
	_, err = s.LoadTable(context.Background(), "nope")
	is.True(errors.Is(err, ErrNoTable))
}

func TestIsBusy(t *testing.T) {
	is := is.New(t)
	is.True(isBusy(errors.New("database is locked (5) (SQLITE_BUSY)")))
	is.True(!isBusy(errors.New("no such table")))
}
