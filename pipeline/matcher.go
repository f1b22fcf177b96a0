package pipeline

import (
	"log/slog"
	"time"

	"github.com/stagecue/stagecue/config"
	"github.com/stagecue/stagecue/cue"
	"github.com/stagecue/stagecue/match"
)

// Matcher turns transcripts into play requests. Automatic triggers are
// suppressed inside the cooldown window; manual commands bypass the matcher
// entirely and are never suppressed.
type Matcher struct {
	catalog   *cue.Catalog
	scorer    match.Scorer
	policy    string
	threshold int
	cooldown  time.Duration
	state     *State
	prefixes  [][]string
	logger    *slog.Logger
}

// NewMatcher builds a matcher over the catalog. For the exact-prefix policy,
// a cue's explicit first tokens are used when present; otherwise the first
// two tokens of its match phrase.
func NewMatcher(catalog *cue.Catalog, scorer match.Scorer, policy string, threshold int, cooldown time.Duration, state *State) *Matcher {
	m := &Matcher{
		catalog:   catalog,
		scorer:    scorer,
		policy:    policy,
		threshold: threshold,
		cooldown:  cooldown,
		state:     state,
		logger:    slog.With("component", "matcher"),
	}
	m.prefixes = make([][]string, catalog.Len())
	for i := 0; i < catalog.Len(); i++ {
		c := catalog.At(i)
		if len(c.FirstTokens) > 0 {
			m.prefixes[i] = c.FirstTokens
		} else {
			m.prefixes[i] = match.PrefixTokens(catalog.Normalize(c.MatchText), 2)
		}
	}
	return m
}

// Handle evaluates one transcript and returns an automatic play request when
// a cue fires.
func (m *Matcher) Handle(t Transcript) (Request, bool) {
	m.state.RecordSpoken(t.Text)

	if elapsed := m.state.SinceTrigger(); elapsed < m.cooldown {
		m.logger.Debug("cooldown active, ignoring transcript",
			"text", t.Text,
			"remaining", m.cooldown-elapsed)
		return Request{}, false
	}

	query := m.catalog.Normalize(t.Text)
	if query == "" {
		return Request{}, false
	}

	var index int
	var score float64
	switch m.policy {
	case config.PolicyExactPrefix:
		index = match.ExactPrefix(match.PrefixTokens(query, 2), m.prefixes)
		score = 100
	default:
		var raw int
		_, raw, index = m.scorer.BestMatch(query, m.catalog.MatchTexts())
		score = float64(raw)
		m.state.RecordScore(score)
		if index >= 0 && raw < m.threshold {
			m.logger.Debug("best match below threshold",
				"text", t.Text,
				"candidate", m.catalog.At(index).MatchText,
				"score", raw,
				"threshold", m.threshold)
			index = -1
		}
	}
	if index < 0 {
		return Request{}, false
	}

	matched := m.catalog.At(index)
	m.state.RecordMatch(matched.ID, score)
	// Restart the cooldown at acceptance so transcripts already in flight
	// cannot double-fire before the arbiter picks the request up.
	m.state.TouchTrigger()
	m.logger.Info("cue matched",
		"cue_id", matched.ID,
		"match_text", matched.MatchText,
		"spoken", t.Text,
		"score", score)
	return Request{Action: ActionPlayIndex, Source: SourceAuto, Index: index}, true
}
