// Package model defines the core domain types shared across all truthordare packages.
// It has zero dependencies on other truthordare packages.
package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMode      = errors.New("invalid mode")
	ErrInvalidEntryType = errors.New("invalid entry type")
)

// Mode is the audience context that selects which prompt pools apply.
type Mode string

const (
	ModeParty  Mode = "party"
	ModeCouple Mode = "couple"
	ModeFamily Mode = "family"
	ModeSolo   Mode = "solo"
)

// Modes returns every mode in display order.
func Modes() []Mode {
	return []Mode{ModeParty, ModeCouple, ModeFamily, ModeSolo}
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeParty, ModeCouple, ModeFamily, ModeSolo:
		return true
	}
	return false
}

// ParseMode converts user input into a Mode, ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// EntryType is the category of a prompt.
type EntryType string

const (
	// TypeAny asks the engine to pick truth or challenge at random.
	TypeAny       EntryType = ""
	TypeTruth     EntryType = "truth"
	TypeChallenge EntryType = "challenge"
)

// Valid reports whether t is truth or challenge. TypeAny is not a valid
// entry type, only a valid draw request.
func (t EntryType) Valid() bool {
	return t == TypeTruth || t == TypeChallenge
}

// ParseEntryType converts user input into an EntryType. "dare" is accepted
// as an alias for challenge, and "random" or "" yield TypeAny.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random", "any":
		return TypeAny, nil
	case "truth":
		return TypeTruth, nil
	case "challenge", "dare":
		return TypeChallenge, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, s)
}

// PlaceholderText is shown when the pool for the requested mode and type is empty.
const PlaceholderText = "No prompts available for this mode yet..."

// PromptEntry is a single drawn prompt.
type PromptEntry struct {
	Text        string    `json:"text"`
	Type        EntryType `json:"type"`
	Placeholder bool      `json:"placeholder,omitempty"`
}

// SessionState is the observable state of one game screen.
type SessionState struct {
	Mode         Mode         `json:"mode"`
	Current      *PromptEntry `json:"current"`
	IsGenerating bool         `json:"is_generating"`
	TurnCount    int          `json:"turn_count"`
	SelectedSeat string       `json:"selected_seat,omitempty"`
	// Rotation is the accumulated bottle angle in degrees.
	Rotation float64 `json:"rotation"`
}

// Idle reports whether no entry is being shown.
func (s SessionState) Idle() bool { return s.Current == nil }

// Clone returns a copy that shares no memory with s.
func (s SessionState) Clone() SessionState {
	if s.Current != nil {
		cur := *s.Current
		s.Current = &cur
	}
	return s
}

// SeatCount is the number of seats around the bottle arena.
const SeatCount = 8

// Seats returns the seat labels clockwise from the top of the arena.
func Seats() []string {
	return []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"}
}

// Truncate shortens a string to maxLen runes, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 3 {
		r := []rune(s)
		if len(r) <= maxLen {
			return s
		}
		return string(r[:maxLen])
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
