package pipeline

import (
	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/services/scribd"
)

func searchResultOf(doc *docstore.CourseDocument) scribd.SearchResult {
	return scribd.SearchResult{
		ID:        doc.ID,
		Title:     doc.Metadata.Title,
		URL:       doc.Metadata.Source,
		Pages:     doc.Metadata.Pages,
		Views:     doc.Metadata.Views,
		FileName:  doc.FileName,
		CreatedAt: doc.UploadDate,
	}
}
