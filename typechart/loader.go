package typechart

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadYAML reads a chart from YAML of the form
//
//	fire:
//	  grass: 2
//	  water: 0.5
//
// Pairs that are not listed stay neutral.
func LoadYAML(r io.Reader) (*Chart, error) {
	var entries map[string]map[string]float64
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if err == io.EOF {
			return New(nil), nil
		}
		return nil, fmt.Errorf("decoding type chart: %w", err)
	}
	for atk, row := range entries {
		for def, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("negative multiplier for %s -> %s: %v", atk, def, v)
			}
		}
	}
	return New(entries), nil
}

// LoadFile reads a YAML chart from path. An empty path yields the default
// generation 1 chart.
func LoadFile(path string) (*Chart, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := LoadYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("attack-types", len(c.entries)).Msg("loaded-type-chart")
	return c, nil
}
