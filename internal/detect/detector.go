package detect

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/scenedex/scenedex/pkg/errors"
)

var (
	// sluglineRe matches a scene heading after trimming: INT., EXT.,
	// INT./EXT. or I/E. followed by at least one space.
	sluglineRe = regexp.MustCompile(`(?i)^(INT\.\/EXT\.|I\/E\.|INT\.|EXT\.)\s+`)

	// trailingParenRe strips one trailing parenthetical such as "(V.O.)".
	trailingParenRe = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

	// contdRe strips a trailing continued marker that may remain after the
	// first parenthetical strip, e.g. "JOHN (CONT'D)".
	contdRe = regexp.MustCompile(`(?i)\s*\(\s*CONT.?D\.?\s*\)\s*$`)

	// characterCueRe matches an upper-case character cue: first character an
	// upper-case letter, remainder upper-case letters, spaces, periods,
	// apostrophes, hyphens, or commas.
	characterCueRe = regexp.MustCompile(`^[A-Z][A-Z .'\-,]+$`)

	// embeddedCapsRe finds runs of 3+ consecutive upper-case letters,
	// optionally continued by further words of 2+ upper-case letters.
	embeddedCapsRe = regexp.MustCompile(`[A-Z]{3,}(?:\s+[A-Z]{2,})*`)
)

// entityKey is the per-pass identity of a detected entity: its normalized
// name (upper-cased, whitespace-collapsed, parenthetical suffixes already
// stripped by the caller).
func entityKey(name string) string {
	return strings.Join(strings.Fields(strings.ToUpper(name)), " ")
}

// pass accumulates detection state for a single invocation.  It is created
// per call and discarded at return.
type pass struct {
	seen     map[string]int // entity key → index into entities
	entities []DetectedEntity
	scenes   []SceneInfo
}

func newPass() *pass {
	return &pass{seen: make(map[string]int)}
}

// add records an entity occurrence.  Only the first occurrence of a given
// normalized name is kept; later occurrences are ignored entirely.
func (p *pass) add(name string, typ EntityType, page int, raw string) {
	key := entityKey(name)
	if key == "" {
		return
	}
	if _, ok := p.seen[key]; ok {
		return
	}
	p.seen[key] = len(p.entities)
	p.entities = append(p.entities, DetectedEntity{
		Name:                name,
		Type:                typ,
		HighlightPage:       page,
		HighlightText:       strings.TrimSpace(raw),
		SuggestedDepartment: DepartmentForType(typ),
	})
}

// openScene closes the current scene (if any) and opens a new one at the
// given location.
func (p *pass) openScene(location string) {
	p.scenes = append(p.scenes, SceneInfo{
		SceneNumber: len(p.scenes) + 1,
		Location:    location,
	})
}

// recordCharacter appends a character name to the currently open scene,
// skipping duplicates.  A character cue before the first slugline is recorded
// as an entity but belongs to no scene.
func (p *pass) recordCharacter(name string) {
	if len(p.scenes) == 0 {
		return
	}
	scene := &p.scenes[len(p.scenes)-1]
	for _, existing := range scene.Characters {
		if existing == name {
			return
		}
	}
	scene.Characters = append(scene.Characters, name)
}

// result sorts entities ascending by highlight page, then lexicographically
// by name within a page, and returns the final detection output.
func (p *pass) result() Result {
	sort.SliceStable(p.entities, func(i, j int) bool {
		a, b := p.entities[i], p.entities[j]
		if a.HighlightPage != b.HighlightPage {
			return a.HighlightPage < b.HighlightPage
		}
		return a.Name < b.Name
	})
	return Result{Entities: p.entities, Scenes: p.scenes}
}

// cleanSlugline trims a scene heading and strips a trailing colon.
func cleanSlugline(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}

// cleanCharacterCue strips a trailing parenthetical, then a trailing
// continued marker, from a candidate character cue.
func cleanCharacterCue(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimSpace(trailingParenRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(contdRe.ReplaceAllString(s, ""))
	return s
}

// isCharacterCue reports whether a cleaned line qualifies as a character cue.
func isCharacterCue(cleaned string) bool {
	if len(cleaned) < 2 {
		return false
	}
	return characterCueRe.MatchString(cleaned)
}

// scanEmbeddedProps finds embedded all-caps runs in a mixed-case line and
// records each non-noise candidate as an OTHER entity.  Single words shorter
// than three letters never qualify by construction of the pattern.
func scanEmbeddedProps(p *pass, line string, page int) {
	for _, cand := range embeddedCapsRe.FindAllString(line, -1) {
		cand = strings.TrimSpace(cand)
		if cand == "" || IsNoise(cand) || sluglineRe.MatchString(cand) {
			continue
		}
		p.add(cand, EntityOther, page, line)
	}
}

// Detect runs the page-text strategy over an ordered page sequence.
//
// Classification per line, in priority order: slugline (opens a scene and
// emits a LOCATION), character cue (emits a CHARACTER and records it in the
// open scene), then embedded all-caps prop scanning (emits OTHER entities).
// Entities are deduplicated by normalized name with first-occurrence
// page/text retained, and the output is ordered by page then name.
func Detect(pages []PageText) (Result, error) {
	for _, pg := range pages {
		if pg.PageNumber < 1 {
			return Result{}, errors.ParseFailed("page numbers must be 1-based").
				WithDetail("got page " + strconv.Itoa(pg.PageNumber))
		}
	}

	p := newPass()
	for _, pg := range pages {
		for _, line := range strings.Split(pg.Text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}

			if sluglineRe.MatchString(trimmed) {
				loc := cleanSlugline(trimmed)
				p.add(loc, EntityLocation, pg.PageNumber, trimmed)
				p.openScene(loc)
				continue
			}

			cleaned := cleanCharacterCue(trimmed)
			if isCharacterCue(cleaned) {
				if IsNoise(cleaned) {
					continue
				}
				p.add(cleaned, EntityCharacter, pg.PageNumber, trimmed)
				p.recordCharacter(cleaned)
				continue
			}

			scanEmbeddedProps(p, trimmed, pg.PageNumber)
		}
	}
	return p.result(), nil
}
