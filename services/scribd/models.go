package scribd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type SearchResult struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Pages     int       `json:"pages"`
	Views     int64     `json:"views"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

type searchResponse struct {
	Results struct {
		Documents struct {
			Content struct {
				Documents []searchDocument `json:"documents"`
			} `json:"content"`
		} `json:"documents"`
	} `json:"results"`
	PageCount   int `json:"page_count"`
	CurrentPage int `json:"current_page"`
}

type searchDocument struct {
	ID        documentID `json:"id"`
	Title     string     `json:"title"`
	ReaderURL string     `json:"reader_url"`
	PageCount int        `json:"pageCount"`
	Views     viewCount  `json:"views"`
}

func (d searchDocument) toSearchResult(createdAt time.Time) SearchResult {
	id := string(d.ID)
	return SearchResult{
		ID:        id,
		Title:     d.Title,
		URL:       d.ReaderURL,
		Pages:     d.PageCount,
		Views:     int64(d.Views),
		FileName:  CanonicalFilename(d.Title, id),
		CreatedAt: createdAt,
	}
}

// documentID accepts both numeric and string ids.
type documentID string

func (id *documentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = documentID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("document id is neither a string nor a number: %s", data)
	}
	*id = documentID(n.String())
	return nil
}

// viewCount accepts numbers and numeric strings such as "1,204". Anything else counts as 0.
type viewCount int64

func (v *viewCount) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := n.Int64()
		if err != nil {
			f, _ := n.Float64()
			parsed = int64(f)
		}
		*v = viewCount(parsed)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*v = 0
		return nil
	}
	parsed, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
	if err != nil {
		parsed = 0
	}
	*v = viewCount(parsed)
	return nil
}
