// Package content provides the read-only prompt tables the engine draws from.
package content

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jxucoder/truthordare/model"
)

var (
	// ErrMissingMode is returned when a content file omits one of the modes.
	ErrMissingMode = errors.New("content: missing mode")
	// ErrUnknownMode is returned when a content file names a mode that does not exist.
	ErrUnknownMode = errors.New("content: unknown mode")
)

// Store looks up candidate prompts. Lookup never fails: an absent or empty
// pool yields an empty slice.
type Store interface {
	Lookup(mode model.Mode, t model.EntryType) []string
}

// Pool holds the candidate prompts of one mode.
type Pool struct {
	Truths     []string `json:"truths" yaml:"truths"`
	Challenges []string `json:"challenges" yaml:"challenges"`
}

// Table maps every mode to its pool. A Table is never modified after it is
// loaded, so it is safe for concurrent use.
type Table map[model.Mode]Pool

// Lookup returns a copy of the pool for mode and t.
func (t Table) Lookup(mode model.Mode, typ model.EntryType) []string {
	p, ok := t[mode]
	if !ok {
		return nil
	}
	switch typ {
	case model.TypeTruth:
		return slices.Clone(p.Truths)
	case model.TypeChallenge:
		return slices.Clone(p.Challenges)
	}
	return nil
}

// Counts returns the number of truths and challenges for mode.
func (t Table) Counts(mode model.Mode) (truths, challenges int) {
	p := t[mode]
	return len(p.Truths), len(p.Challenges)
}

// Format is the encoding of a content file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the format from the file extension. Anything that
// is not .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Parse decodes and validates a content table.
func Parse(data []byte, format Format) (Table, error) {
	raw := map[string]Pool{}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding yaml content: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding json content: %w", err)
		}
	}
	return build(raw)
}

// LoadFile reads a JSON or YAML content file.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

func build(raw map[string]Pool) (Table, error) {
	table := make(Table, len(raw))
	for key, pool := range raw {
		m := model.Mode(key)
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, key)
		}
		table[m] = Pool{
			Truths:     clean(pool.Truths),
			Challenges: clean(pool.Challenges),
		}
	}
	for _, m := range model.Modes() {
		if _, ok := table[m]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingMode, m)
		}
	}
	return table, nil
}

// clean trims every prompt and drops blank ones.
func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

//go:embed content.json
var defaultContent []byte

var loadDefault = sync.OnceValues(func() (Table, error) {
	return Parse(defaultContent, FormatJSON)
})

// Default returns the bundled content table.
func Default() Table {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("content: bundled table is invalid: %v", err))
	}
	return t
}
