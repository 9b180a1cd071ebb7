package detect

import (
	"strings"

	appErrors "github.com/scenedex/scenedex/pkg/errors"
)

// Source yields the pages of a screenplay document in reading order.
type Source interface {
	Pages() ([]PageText, error)
}

// PageTextSource wraps a pre-paginated slice of page texts.
type PageTextSource struct {
	pages []PageText
}

func NewPageTextSource(pages []PageText) *PageTextSource {
	return &PageTextSource{pages: pages}
}

func (s *PageTextSource) Pages() ([]PageText, error) {
	if len(s.pages) == 0 {
		return nil, appErrors.ParseFailed("document has no pages")
	}
	return s.pages, nil
}

// SplitPages paginates raw screenplay text on form feed characters.
// A document without form feeds is treated as a single page.  Page
// numbers are assigned sequentially starting at 1.
func SplitPages(raw string) []PageText {
	parts := strings.Split(raw, "\f")
	pages := make([]PageText, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, PageText{
			PageNumber: len(pages) + 1,
			Text:       part,
		})
	}
	return pages
}
