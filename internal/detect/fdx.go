package detect

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/scenedex/scenedex/pkg/errors"
)

// Markers checked against the raw bytes before any XML decoding.  A document
// that declares a DTD or custom entities is rejected outright: parsed
// paragraph text must never contain expanded external content.
var (
	doctypeMarker = []byte("<!DOCTYPE")
	entityMarker  = []byte("<!ENTITY")
)

// ParseStructuredDocument parses a Final Draft-style XML screenplay into
// typed paragraphs plus tagged elements, tracking page breaks.
//
// Pages start at 1; a <PageBreak/> element or an explicit Page attribute on a
// Paragraph advances the current page.  Malformed XML yields a parse error.
func ParseStructuredDocument(data []byte) (*StructuredDocument, error) {
	upper := bytes.ToUpper(data)
	if bytes.Contains(upper, doctypeMarker) || bytes.Contains(upper, entityMarker) {
		return nil, errors.New(errors.ErrCodeSourceRejected,
			"document declares a DTD or custom entities and was rejected")
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	// No custom entity table: any undeclared entity reference fails the parse.
	dec.Entity = map[string]string{}

	doc := &StructuredDocument{}
	page := 1
	maxPage := 1

	var (
		inParagraph   bool
		paragraphType ParagraphType
		textBuilder   strings.Builder
	)

	flushParagraph := func() {
		if !inParagraph {
			return
		}
		doc.Paragraphs = append(doc.Paragraphs, Paragraph{
			Type: paragraphType,
			Text: strings.TrimSpace(textBuilder.String()),
			Page: page,
		})
		textBuilder.Reset()
		inParagraph = false
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeScriptParseFailed,
				"malformed structured screenplay document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Paragraph":
				flushParagraph()
				inParagraph = true
				paragraphType = ""
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "Type":
						paragraphType = ParagraphType(attr.Value)
					case "Page":
						if n, convErr := strconv.Atoi(attr.Value); convErr == nil && n >= 1 {
							page = n
						}
					}
				}
				if page > maxPage {
					maxPage = page
				}
			case "PageBreak":
				page++
				if page > maxPage {
					maxPage = page
				}
			case "TaggedElement":
				var tag TaggedElement
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "Category":
						tag.Category = attr.Value
					case "Name":
						tag.Name = attr.Value
					}
				}
				if strings.TrimSpace(tag.Name) != "" {
					doc.TaggedElements = append(doc.TaggedElements, tag)
				}
			}

		case xml.CharData:
			if inParagraph {
				textBuilder.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "Paragraph" {
				flushParagraph()
			}

		case xml.Directive:
			// Pre-scan already rejected DOCTYPE/ENTITY; any other directive
			// is equally unwelcome in screenplay markup.
			return nil, errors.New(errors.ErrCodeSourceRejected,
				"unexpected XML directive in screenplay document")
		}
	}
	flushParagraph()

	if len(doc.Paragraphs) == 0 && len(doc.TaggedElements) == 0 {
		return nil, errors.ParseFailed("document contains no screenplay content")
	}

	doc.PageCount = maxPage
	return doc, nil
}

// LooksStructured sniffs whether raw document bytes are XML screenplay markup
// rather than plain extracted text.
func LooksStructured(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<FinalDraft")) ||
		bytes.HasPrefix(trimmed, []byte("<"))
}
