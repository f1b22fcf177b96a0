// Package cue holds the ordered script-cue catalog used for matching and
// playback navigation.
package cue

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Cue pairs a spoken trigger phrase with a target audio clip.
type Cue struct {
	ID          int      `json:"id"`
	MatchText   string   `json:"match_text"`
	AudioRef    string   `json:"audio_ref"`
	FirstTokens []string `json:"first_tokens,omitempty"`
}

// Catalog is the ordered, immutable set of script cues. Order defines
// next/previous navigation. Built once at startup; never mutated after.
type Catalog struct {
	cues       []Cue
	byID       map[int]int // id -> index
	matchTexts []string
	lower      cases.Caser
}

// Load reads the catalog from a JSON file. A missing or malformed file is an
// error the caller should treat as fatal.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cue file: %w", err)
	}

	var cues []Cue
	if err := json.Unmarshal(data, &cues); err != nil {
		return nil, fmt.Errorf("unmarshal cue file %s: %w", path, err)
	}

	return New(cues)
}

// New builds a catalog from an ordered cue list, validating id uniqueness.
func New(cues []Cue) (*Catalog, error) {
	c := &Catalog{
		cues:       cues,
		byID:       make(map[int]int, len(cues)),
		matchTexts: make([]string, len(cues)),
		lower:      cases.Lower(language.Und),
	}

	for i, cue := range cues {
		if _, dup := c.byID[cue.ID]; dup {
			return nil, fmt.Errorf("duplicate cue id %d", cue.ID)
		}
		c.byID[cue.ID] = i
		c.matchTexts[i] = c.Normalize(cue.MatchText)
	}

	return c, nil
}

// Len returns the number of cues.
func (c *Catalog) Len() int {
	return len(c.cues)
}

// At returns the cue at index i. i must be in [0, Len).
func (c *Catalog) At(i int) Cue {
	return c.cues[i]
}

// ByID looks up a cue by its id, ignoring catalog order.
func (c *Catalog) ByID(id int) (Cue, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Cue{}, false
	}
	return c.cues[i], true
}

// IndexOf returns the catalog index of the cue with the given id, or -1.
func (c *Catalog) IndexOf(id int) int {
	i, ok := c.byID[id]
	if !ok {
		return -1
	}
	return i
}

// MatchTexts returns the normalized match phrases in catalog order. The
// returned slice is shared; callers must not modify it.
func (c *Catalog) MatchTexts() []string {
	return c.matchTexts
}

// Normalize lower-cases and trims a phrase for matching.
func (c *Catalog) Normalize(s string) string {
	return strings.TrimSpace(c.lower.String(s))
}
