package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meghashyamc/coursefetch/services/scribd"
	"github.com/stretchr/testify/require"
)

const testViewerURL = viewerURLPrefix + "https%3A%2F%2Filide.info%2Fdocdownloadv2-abc123%3Fa%3D1"

type fakeBrowser struct {
	mu          sync.Mutex
	dir         string
	html        string
	clickErr    error
	servedName  string
	writeDelay  time.Duration
	skipWrite   bool
	navigations []string
	closed      bool
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
	return nil
}

func (f *fakeBrowser) HTML(ctx context.Context) (string, error) {
	return f.html, nil
}

func (f *fakeBrowser) ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error {
	if f.clickErr != nil {
		return f.clickErr
	}
	if f.skipWrite {
		return nil
	}
	write := func() {
		_ = os.WriteFile(filepath.Join(f.dir, f.servedName), []byte("%PDF-1.4"), 0644)
	}
	if f.writeDelay > 0 {
		time.AfterFunc(f.writeDelay, write)
		return nil
	}
	write()
	return nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

func generatorHTML(iframes ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, src := range iframes {
		fmt.Fprintf(&b, `<iframe src="%s"></iframe>`, src)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newTestDownloader(t *testing.T, browser *fakeBrowser) *Downloader {
	t.Helper()
	dir := t.TempDir()
	browser.dir = dir
	downloader, err := New(browser, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		DownloadDir:     dir,
		PollInterval:    5 * time.Millisecond,
		DownloadTimeout: 200 * time.Millisecond,
		ClickTimeout:    10 * time.Millisecond,
	})
	require.NoError(t, err)
	return downloader
}

var testItem = scribd.SearchResult{
	ID:       "987",
	Title:    "TD 1: Mécanique",
	FileName: scribd.CanonicalFilename("TD 1: Mécanique", "987"),
}

func TestDownloadRenamesToCanonicalName(t *testing.T) {
	assert := require.New(t)
	browser := &fakeBrowser{
		html:       generatorHTML("https://ads.example.com/frame", testViewerURL),
		servedName: "ilide.info-abc123.pdf",
		writeDelay: 20 * time.Millisecond,
	}
	downloader := newTestDownloader(t, browser)

	result, err := downloader.Download(context.Background(), testItem)
	assert.NoError(err)
	assert.True(result.Resolved())
	assert.Equal(filepath.Join(browser.dir, "TD 1_ Mécanique (987).pdf"), result.Path)
	assert.Equal("ilide.info-abc123.pdf", result.ServedName)
	assert.FileExists(result.Path)
	assert.NoFileExists(filepath.Join(browser.dir, "ilide.info-abc123.pdf"))

	assert.Len(browser.navigations, 2)
	assert.True(strings.HasPrefix(browser.navigations[0], generatorURL+"?fileurl="))
	assert.Contains(browser.navigations[0], "utm_campaign=dl")
	assert.Equal(testViewerURL, browser.navigations[1])
}

func TestDownloadKeepsExistingFiles(t *testing.T) {
	assert := require.New(t)
	browser := &fakeBrowser{html: generatorHTML(testViewerURL), servedName: "ilide.info-abc123.pdf"}
	downloader := newTestDownloader(t, browser)

	existing := filepath.Join(browser.dir, testItem.FileName)
	assert.NoError(os.WriteFile(existing, []byte("old"), 0644))

	result, err := downloader.Download(context.Background(), testItem)
	assert.NoError(err)
	assert.Equal(filepath.Join(browser.dir, "TD 1_ Mécanique (987)_1.pdf"), result.Path)

	content, err := os.ReadFile(existing)
	assert.NoError(err)
	assert.Equal("old", string(content))
}

var downloadFailureTestCases = []struct {
	name          string
	browser       *fakeBrowser
	expectedState State
	expectedErr   error
}{
	{
		name:          "no viewer iframe",
		browser:       &fakeBrowser{html: generatorHTML("https://ads.example.com/frame")},
		expectedState: StateLocateViewer,
		expectedErr:   ErrViewerNotFound,
	},
	{
		name:          "button never clickable",
		browser:       &fakeBrowser{html: generatorHTML(testViewerURL), clickErr: context.DeadlineExceeded},
		expectedState: StateDownload,
		expectedErr:   ErrButtonNotClickable,
	},
	{
		name:          "file never appears",
		browser:       &fakeBrowser{html: generatorHTML(testViewerURL), skipWrite: true},
		expectedState: StateAwaitCompletion,
		expectedErr:   ErrDownloadTimeout,
	},
}

func TestDownloadFailuresCarryState(t *testing.T) {
	for _, testCase := range downloadFailureTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			downloader := newTestDownloader(t, testCase.browser)

			result, err := downloader.Download(context.Background(), testItem)
			assert.Nil(result)
			assert.ErrorIs(err, testCase.expectedErr)

			var stateErr *StateError
			assert.True(errors.As(err, &stateErr))
			assert.Equal(testCase.expectedState, stateErr.State)
		})
	}
}

func TestDownloadUnresolvedFilenameSkipsWait(t *testing.T) {
	assert := require.New(t)
	browser := &fakeBrowser{html: generatorHTML(viewerURLPrefix + "https%3A%2F%2Fexample.com%2Fother.pdf"), skipWrite: true}
	downloader := newTestDownloader(t, browser)

	result, err := downloader.Download(context.Background(), testItem)
	assert.NoError(err)
	assert.False(result.Resolved())
	assert.Empty(result.ServedName)
}

func TestDownloadStopsWhenContextIsCancelled(t *testing.T) {
	assert := require.New(t)
	browser := &fakeBrowser{html: generatorHTML(testViewerURL), skipWrite: true}
	downloader := newTestDownloader(t, browser)
	downloader.opts.DownloadTimeout = 0

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := downloader.Download(ctx, testItem)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.NotErrorIs(err, ErrDownloadTimeout)
}
