package index

import (
	"strings"
	"unicode"

	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/searchdb"
)

// Extracted text is capped so a single huge course does not dominate index size.
const maxIndexedContentBytes = 10 * 1024 * 1024

func toSearchDocument(doc *docstore.CourseDocument) searchdb.Document {
	var content string
	if doc.Content != nil {
		content = cleanText(doc.Content.Text)
	}

	return searchdb.Document{
		ID:      doc.ID,
		Title:   doc.Metadata.Title,
		Name:    doc.FileName,
		Content: content,
		Source:  doc.Metadata.Source,
		Tags:    doc.Tags,
		Pages:   doc.Metadata.Pages,
	}
}

// cleanText collapses the runs of whitespace and control characters PDF text extraction leaves behind.
func cleanText(text string) string {
	if len(text) > maxIndexedContentBytes {
		text = strings.ToValidUTF8(text[:maxIndexedContentBytes], "")
	}

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
