// Package match computes the correspondence between a script version's
// existing elements and the entities detected in its revision.  Pure and
// deterministic: no I/O, no retained state, and fuzzy ties break by pool
// order, so callers supply existing elements in a stable order (creation
// time, then id).
package match

import (
	"regexp"
	"strings"

	"github.com/scenedex/scenedex/internal/detect"
	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// FuzzyThreshold is the minimum similarity for a non-exact correspondence to
// be surfaced as FUZZY rather than treating the detected entity as NEW.
const FuzzyThreshold = 0.7

// Status classifies one detected entity's correspondence outcome.
type Status string

const (
	// StatusExact means an unconsumed existing element shares the detected
	// entity's normalized name.
	StatusExact Status = "EXACT"

	// StatusFuzzy means the best unconsumed element scored at or above
	// FuzzyThreshold without an exact name match.
	StatusFuzzy Status = "FUZZY"

	// StatusNew means no existing element corresponds.
	StatusNew Status = "NEW"
)

// MatchResult pairs one detected entity with its correspondence outcome.
// OldElementID is set for EXACT and FUZZY; Similarity is 1 for EXACT and the
// scored value for FUZZY.
type MatchResult struct {
	Detected     detect.DetectedEntity
	Status       Status
	OldElementID common.ID
	Similarity   float64
}

// MissingEntity is an existing element no detected entity consumed.
type MissingEntity struct {
	ID   common.ID
	Name string
	Type detect.EntityType
}

// Result is the full matcher output: one MatchResult per detected entity in
// input order, plus the leftover pool in pool order.
type Result struct {
	Matches []MatchResult
	Missing []MissingEntity
}

var parentheticalSuffixRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// pooled is one matchable existing element with its normalized key and
// consumption flag, local to a single Match call.
type pooled struct {
	el       *element.Element
	key      string
	consumed bool
}

// NormalizeName produces the matching identity of a name: trailing
// parentheticals stripped, upper-cased, whitespace collapsed.
func NormalizeName(name string) string {
	s := strings.TrimSpace(name)
	for {
		stripped := strings.TrimSpace(parentheticalSuffixRe.ReplaceAllString(s, ""))
		if stripped == s || stripped == "" {
			break
		}
		s = stripped
	}
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// Match computes the correspondence between existing elements and freshly
// detected entities.
//
// ARCHIVED elements are excluded entirely.  Each pooled element is consumed
// by at most one detected entity: exact normalized-name matches first, then
// the highest-scoring fuzzy candidate at or above FuzzyThreshold, then the
// entity is NEW.  Type never participates in matching identity.  Pooled
// elements left unconsumed are reported missing.
func Match(existing []*element.Element, detected []detect.DetectedEntity) Result {
	pool := make([]*pooled, 0, len(existing))
	byKey := make(map[string][]*pooled)
	for _, el := range existing {
		if el == nil || el.IsArchived() {
			continue
		}
		p := &pooled{el: el, key: NormalizeName(el.Name)}
		pool = append(pool, p)
		byKey[p.key] = append(byKey[p.key], p)
	}

	res := Result{Matches: make([]MatchResult, 0, len(detected))}

	for _, d := range detected {
		key := NormalizeName(d.Name)

		if exact := firstUnconsumed(byKey[key]); exact != nil {
			exact.consumed = true
			res.Matches = append(res.Matches, MatchResult{
				Detected:     d,
				Status:       StatusExact,
				OldElementID: exact.el.ID,
				Similarity:   1,
			})
			continue
		}

		var best *pooled
		bestScore := 0.0
		for _, p := range pool {
			if p.consumed {
				continue
			}
			score := Similarity(key, p.key)
			if score > bestScore {
				best = p
				bestScore = score
			}
		}

		if best != nil && bestScore >= FuzzyThreshold {
			best.consumed = true
			res.Matches = append(res.Matches, MatchResult{
				Detected:     d,
				Status:       StatusFuzzy,
				OldElementID: best.el.ID,
				Similarity:   bestScore,
			})
			continue
		}

		res.Matches = append(res.Matches, MatchResult{Detected: d, Status: StatusNew})
	}

	for _, p := range pool {
		if !p.consumed {
			res.Missing = append(res.Missing, MissingEntity{
				ID:   p.el.ID,
				Name: p.el.Name,
				Type: p.el.Type,
			})
		}
	}
	return res
}

// firstUnconsumed returns the earliest-pooled candidate still available.
func firstUnconsumed(candidates []*pooled) *pooled {
	for _, p := range candidates {
		if !p.consumed {
			return p
		}
	}
	return nil
}
