package battle

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

const (
	initialBufSize = 1 << 20  // 1 MiB
	maxLineSize    = 64 << 20 // a single battle never comes close
)

// Scanner streams battles out of newline-delimited JSON, one record per line.
type Scanner struct {
	s    *bufio.Scanner
	curr *Battle
	line int
	err  error
}

// NewScanner reads records from r. Blank lines are skipped.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, initialBufSize), maxLineSize)
	return &Scanner{s: s}
}

// Scan advances to the next record. False = EOF or error.
func (sc *Scanner) Scan() bool {
	if sc.err != nil {
		return false
	}
	for sc.s.Scan() {
		sc.line++
		data := bytes.TrimSpace(sc.s.Bytes())
		if len(data) == 0 {
			continue
		}
		b := &Battle{}
		if err := json.Unmarshal(data, b); err != nil {
			sc.err = fmt.Errorf("line %d: %w", sc.line, err)
			return false
		}
		sc.curr = b
		return true
	}
	if err := sc.s.Err(); err != nil {
		sc.err = fmt.Errorf("line %d: %w", sc.line+1, err)
	}
	return false
}

func (sc *Scanner) Battle() *Battle { return sc.curr }
func (sc *Scanner) Err() error      { return sc.err }
func (sc *Scanner) Line() int       { return sc.line }

// Load reads every record from r.
func Load(r io.Reader) ([]*Battle, error) {
	sc := NewScanner(r)
	var battles []*Battle
	for sc.Scan() {
		battles = append(battles, sc.Battle())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return battles, nil
}

// LoadFile reads a whole corpus into memory. The extraction needs every
// battle materialized up front, so a warning is logged when the file alone
// is bigger than memFraction of system memory. A zero memFraction turns the
// check off.
func LoadFile(path string, memFraction float64) ([]*Battle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if memFraction > 0 {
		if fi, err := f.Stat(); err == nil {
			total := memory.TotalMemory()
			if total > 0 && float64(fi.Size()) > memFraction*float64(total) {
				log.Warn().Str("path", path).Int64("file-bytes", fi.Size()).
					Uint64("system-bytes", total).
					Msg("corpus-file-large-relative-to-memory")
			}
		}
	}

	battles, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("battles", len(battles)).Msg("loaded-corpus")
	return battles, nil
}
