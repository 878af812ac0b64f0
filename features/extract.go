package features

import (
	"context"
	"runtime"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pokewin/pokewin/battle"
)

// Result is the outcome of extracting a whole corpus.
type Result struct {
	Schema *Schema
	// Rows are in corpus order; battles that yielded no row are absent.
	Rows []Row
	// Skipped counts battles with nothing inside the cutoff window.
	Skipped int
}

type job struct {
	idx int
	b   *battle.Battle
}

type extracted struct {
	idx int
	row Row
	ok  bool
}

// ExtractAll runs the extractor over a corpus on a pool of workers. Battles
// are dispatched to workers by a hash of their id; output order follows the
// input regardless.
func ExtractAll(ctx context.Context, ex *Extractor, battles []*battle.Battle, workers int) (*Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(battles) && len(battles) > 0 {
		workers = len(battles)
	}
	log.Debug().Int("battles", len(battles)).Int("workers", workers).Msg("extracting")

	g, gctx := errgroup.WithContext(ctx)
	jobChans := make([]chan job, workers)
	results := make(chan extracted, workers)
	var workersWg sync.WaitGroup

	for i := 0; i < workers; i++ {
		jobChans[i] = make(chan job, 128)
		workersWg.Add(1)
		jobChan := jobChans[i]
		g.Go(func() error {
			defer workersWg.Done()
			for j := range jobChan {
				row, ok := ex.Extract(j.b)
				select {
				case results <- extracted{idx: j.idx, row: row, ok: ok}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workersWg.Wait()
		close(results)
	}()

	// Dispatcher
	g.Go(func() error {
		defer func() {
			for _, ch := range jobChans {
				close(ch)
			}
		}()
		for i, b := range battles {
			if err := gctx.Err(); err != nil {
				return err
			}
			w := xxhash.Sum64String(b.ID) % uint64(workers)
			select {
			case jobChans[w] <- job{idx: i, b: b}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	slots := make([]extracted, len(battles))
	for r := range results {
		slots[r.idx] = r
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Schema: ex.Schema(), Rows: make([]Row, 0, len(battles))}
	tiers := make(map[string]int)
	for _, s := range slots {
		if !s.ok {
			res.Skipped++
			continue
		}
		res.Rows = append(res.Rows, s.row)
		tiers[s.row.RosterTier]++
	}
	log.Info().Int("rows", len(res.Rows)).Int("skipped", res.Skipped).
		Interface("roster-tiers", tiers).Msg("extraction-done")
	return res, nil
}
