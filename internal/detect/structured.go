package detect

import (
	"strings"
)

// ParagraphType classifies a structured-document paragraph.
type ParagraphType string

const (
	ParagraphSceneHeading  ParagraphType = "Scene Heading"
	ParagraphCharacter     ParagraphType = "Character"
	ParagraphAction        ParagraphType = "Action"
	ParagraphDialogue      ParagraphType = "Dialogue"
	ParagraphParenthetical ParagraphType = "Parenthetical"
	ParagraphTransition    ParagraphType = "Transition"
)

// Paragraph is one typed paragraph of a parsed structured screenplay with the
// page it appears on.
type Paragraph struct {
	Type ParagraphType `json:"type"`
	Text string        `json:"text"`
	Page int           `json:"page"`
}

// TaggedElement is an externally tagged entity carried in the structured
// document's markup (category + name), independent of paragraph text.
type TaggedElement struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

// StructuredDocument is the parsed form of a structured screenplay.
type StructuredDocument struct {
	Paragraphs     []Paragraph     `json:"paragraphs"`
	TaggedElements []TaggedElement `json:"tagged_elements"`
	PageCount      int             `json:"page_count"`
}

// StructuredOptions tunes the structured detection strategy.
type StructuredOptions struct {
	// ScanActionProps enables the secondary embedded all-caps prop pass over
	// Action paragraph text, reusing the page-text strategy's scanner.
	ScanActionProps bool
}

// DefaultStructuredOptions enables the Action prop pass.
func DefaultStructuredOptions() StructuredOptions {
	return StructuredOptions{ScanActionProps: true}
}

// DetectStructured runs the structured-document strategy.
//
// Scene Heading paragraphs emit LOCATION entities and open scenes; Character
// paragraphs emit CHARACTER entities (trailing parentheticals stripped) and
// are recorded in the open scene; tagged elements become OTHER entities with
// a category-derived department suggestion and a best-effort highlight page.
// Dedup, ordering and scene numbering match the page-text strategy.
func DetectStructured(doc *StructuredDocument, opts StructuredOptions) (Result, error) {
	p := newPass()

	for _, para := range doc.Paragraphs {
		text := strings.TrimSpace(para.Text)
		if text == "" {
			continue
		}
		page := para.Page
		if page < 1 {
			page = 1
		}

		switch para.Type {
		case ParagraphSceneHeading:
			loc := cleanSlugline(text)
			p.add(loc, EntityLocation, page, text)
			p.openScene(loc)

		case ParagraphCharacter:
			name := cleanCharacterCue(text)
			if name == "" || IsNoise(name) {
				continue
			}
			p.add(name, EntityCharacter, page, text)
			p.recordCharacter(name)

		case ParagraphAction:
			if opts.ScanActionProps {
				scanEmbeddedProps(p, text, page)
			}
		}
	}

	for _, tag := range doc.TaggedElements {
		name := strings.ToUpper(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		page, highlight := locateTag(doc.Paragraphs, tag.Name)
		key := entityKey(name)
		if _, ok := p.seen[key]; ok {
			continue
		}
		p.seen[key] = len(p.entities)
		p.entities = append(p.entities, DetectedEntity{
			Name:                name,
			Type:                EntityOther,
			HighlightPage:       page,
			HighlightText:       highlight,
			SuggestedDepartment: DepartmentForCategory(tag.Category),
		})
	}

	return p.result(), nil
}

// locateTag performs a best-effort case-insensitive substring search for the
// tag name across all paragraph texts.  It returns the first matching
// paragraph's page and text, defaulting to page 1 and the tag name itself
// when no paragraph mentions it.
func locateTag(paragraphs []Paragraph, name string) (int, string) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return 1, name
	}
	for _, para := range paragraphs {
		if strings.Contains(strings.ToLower(para.Text), needle) {
			page := para.Page
			if page < 1 {
				page = 1
			}
			return page, strings.TrimSpace(para.Text)
		}
	}
	return 1, strings.TrimSpace(name)
}
