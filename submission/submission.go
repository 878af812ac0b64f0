// Package submission writes predictions in the battle_id,player_won format.
package submission

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Write writes one line per battle after the header.
func Write(w io.Writer, ids []string, preds []int) error {
	if len(ids) != len(preds) {
		return fmt.Errorf("%d battle ids but %d predictions", len(ids), len(preds))
	}
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write([]string{"battle_id", "player_won"}); err != nil {
		return err
	}
	for i, id := range ids {
		if err := cw.Write([]string{id, strconv.Itoa(preds[i])}); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile writes the submission to path, creating its directory.
func WriteFile(path string, ids []string, preds []int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, ids, preds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
