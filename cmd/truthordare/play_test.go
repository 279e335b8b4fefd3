package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxucoder/truthordare/content"
	"github.com/jxucoder/truthordare/engine"
	"github.com/jxucoder/truthordare/model"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

var immediate = engine.SchedulerFunc(func(_ time.Duration, f func()) { f() })

var playTable = content.Table{
	model.ModeParty:  {Truths: []string{"party truth"}, Challenges: []string{"party challenge"}},
	model.ModeCouple: {Truths: []string{"couple truth"}},
	model.ModeFamily: {},
	model.ModeSolo:   {},
}

func playScript(t *testing.T, script string) string {
	t.Helper()
	eng := engine.New(playTable,
		engine.WithScheduler(immediate),
		engine.WithRand(fixedSource(0)),
	)
	var out bytes.Buffer
	require.NoError(t, newShell(eng, strings.NewReader(script), &out, nil).run())
	return out.String()
}

func TestShellDraws(t *testing.T) {
	out := playScript(t, "t\nc\nr\nquit\n")

	assert.Contains(t, out, "TRUTH: party truth")
	assert.Contains(t, out, "CHALLENGE: party challenge")
	// A random draw with source 0 flips to truth.
	assert.Equal(t, 2, strings.Count(out, "TRUTH: party truth"))
	assert.Contains(t, out, "Turns: 3")
}

func TestShellSpinSelectsSeat(t *testing.T) {
	out := playScript(t, "spin c\nq\n")

	// Source 0 spins exactly 1080 degrees, which lands on P1.
	assert.Contains(t, out, "Spinning the bottle...")
	assert.Contains(t, out, "seat P1")
	assert.Contains(t, out, "CHALLENGE: party challenge")
}

func TestShellModeSwitchAndPlaceholder(t *testing.T) {
	out := playScript(t, "couple\nc\nfamily\nt\nquit\n")

	assert.Contains(t, out, "[couple] turn 0")
	assert.Contains(t, out, model.PlaceholderText)
	assert.Contains(t, out, "[family] turn 0")
	assert.Contains(t, out, "Turns: 0")
}

func TestShellResetAndErrors(t *testing.T) {
	out := playScript(t, "t\nreset\nspin x\ndance\n\nmanual\n")

	assert.Contains(t, out, "Pick truth, challenge or random to start.")
	assert.Contains(t, out, `unknown prompt type "x"`)
	assert.Contains(t, out, `unknown command "dance"`)
	assert.Contains(t, out, "USER MANUAL")
}

func TestShortType(t *testing.T) {
	tests := []struct {
		key  string
		want model.EntryType
		ok   bool
	}{
		{"t", model.TypeTruth, true},
		{"truth", model.TypeTruth, true},
		{"c", model.TypeChallenge, true},
		{"dare", model.TypeChallenge, true},
		{"r", model.TypeAny, true},
		{"random", model.TypeAny, true},
		{"", "", false},
		{"party", "", false},
	}
	for _, tt := range tests {
		got, ok := shortType(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}
