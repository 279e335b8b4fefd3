// Package manual holds the static user manual shown on the settings screen.
package manual

import (
	"fmt"
	"io"
	"strings"
)

// Title and Subtitle head the manual.
const (
	Title    = "USER MANUAL"
	Subtitle = "Everything you need to run a great Truth or Dare session."
)

// Section is a titled list of points.
type Section struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

var sections = []Section{
	{
		Title: "HOW TO PLAY",
		Points: []string{
			"Choose your vibe: Party, Couple, Family, or Solo.",
			"Tap SPIN + TRUTH, SPIN + CHALLENGE, or SPIN + RANDOM TURN.",
			"Bottle stops on a seat label. That player responds in real life.",
			"Press SPIN NEXT TURN to continue the game flow.",
		},
	},
	{
		Title: "GAME RULES",
		Points: []string{
			"Respect everyone at all times.",
			"No dangerous, illegal, or harmful challenges.",
			"Skip any prompt if the group is uncomfortable.",
			"Keep it fun, safe, and inclusive.",
		},
	},
	{
		Title: "APP NOTES",
		Points: []string{
			"Offline-first: works without login and without server setup.",
			"Turn counter helps track session momentum.",
		},
	},
}

// Sections returns a copy of the manual sections.
func Sections() []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = Section{Title: s.Title, Points: append([]string(nil), s.Points...)}
	}
	return out
}

// Render writes the manual as plain text.
func Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", Title, Subtitle)
	for _, s := range sections {
		fmt.Fprintf(&b, "\n%s\n", s.Title)
		for _, p := range s.Points {
			fmt.Fprintf(&b, "  • %s\n", p)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
