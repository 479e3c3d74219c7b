package scribd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSearchAPI struct {
	mu        sync.Mutex
	pageCount int
	pages     []int
	queries   []map[string][]string
	status    int
	body      string
}

func (f *fakeSearchAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	f.pages = append(f.pages, page)
	f.queries = append(f.queries, r.URL.Query())

	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if len(f.body) > 0 {
		fmt.Fprint(w, f.body)
		return
	}
	fmt.Fprintf(w, `{"results":{"documents":{"content":{"documents":[
		{"id": %d, "title": "Doc %d-a", "reader_url": "https://www.scribd.com/document/%d", "pageCount": %d, "views": 10},
		{"id": "%d", "title": "Doc %d-b", "reader_url": "https://www.scribd.com/document/%d", "pageCount": %d, "views": "1,204"}
	]}}},"page_count": %d, "current_page": %d}`,
		page*10, page, page*10, page*5, page*10+1, page, page*10+1, page*5+1, f.pageCount, page)
}

func TestPaginateStopsAtBounds(t *testing.T) {
	var testCases = []struct {
		name          string
		pageCount     int
		maxPages      int
		expectedPages []int
	}{
		{name: "stops at reported page count", pageCount: 3, maxPages: 10, expectedPages: []int{1, 2, 3}},
		{name: "stops at configured maximum", pageCount: 7, maxPages: 2, expectedPages: []int{1, 2}},
		{name: "single page", pageCount: 1, maxPages: 10, expectedPages: []int{1}},
		{name: "no configured maximum", pageCount: 4, maxPages: 0, expectedPages: []int{1, 2, 3, 4}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			api := &fakeSearchAPI{pageCount: testCase.pageCount}
			server := httptest.NewServer(api)
			defer server.Close()

			client := NewClientWithBaseURL(newTestLogger(), server.URL)
			results, err := client.Paginate(context.Background(), SearchParams{Term: "TD", MaxPages: testCase.maxPages})
			assert.NoError(err)

			assert.Equal(testCase.expectedPages, api.pages)
			assert.Len(results, 2*len(testCase.expectedPages))
		})
	}
}

func TestPaginateParsesDocumentsInOrder(t *testing.T) {
	assert := require.New(t)
	api := &fakeSearchAPI{pageCount: 2}
	server := httptest.NewServer(api)
	defer server.Close()

	client := NewClientWithBaseURL(newTestLogger(), server.URL)
	results, err := client.Paginate(context.Background(), SearchParams{
		Term:       "TD",
		Languages:  []string{"5", "1"},
		FileTypes:  []string{"pdf"},
		FileLength: "1-3",
		MaxPages:   5,
	})
	assert.NoError(err)
	assert.Len(results, 4)

	assert.Equal([]string{"10", "11", "20", "21"}, []string{results[0].ID, results[1].ID, results[2].ID, results[3].ID})
	assert.Equal("Doc 1-a", results[0].Title)
	assert.Equal("https://www.scribd.com/document/10", results[0].URL)
	assert.Equal(5, results[0].Pages)
	assert.Equal(int64(10), results[0].Views)
	assert.Equal(int64(1204), results[1].Views)
	assert.Equal("Doc 1-a (10).pdf", results[0].FileName)
	assert.False(results[0].CreatedAt.IsZero())

	query := api.queries[0]
	assert.Equal([]string{"TD"}, query["query"])
	assert.Equal([]string{"1-3"}, query["num_pages"])
	assert.Equal([]string{"5", "1"}, query["language"])
	assert.Equal([]string{"pdf"}, query["filetype"])
}

func TestPaginateErrorsAbort(t *testing.T) {
	var testCases = []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "malformed body", body: `{"results": [`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			api := &fakeSearchAPI{pageCount: 3, status: testCase.status, body: testCase.body}
			server := httptest.NewServer(api)
			defer server.Close()

			client := NewClientWithBaseURL(newTestLogger(), server.URL)
			results, err := client.Paginate(context.Background(), SearchParams{Term: "TD", MaxPages: 3})
			assert.Error(err)
			assert.Nil(results)
			assert.Equal([]int{1}, api.pages)
		})
	}
}

func TestPaginateTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClientWithBaseURL(newTestLogger(), server.URL)
	_, err := client.Paginate(context.Background(), SearchParams{Term: "TD"})
	require.Error(t, err)
}
