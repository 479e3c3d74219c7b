package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/services/scribd"
)

type Options struct {
	DownloadDir  string
	PollInterval time.Duration
	// DownloadTimeout bounds the wait for the file to appear. 0 waits until the context is done.
	DownloadTimeout time.Duration
	ClickTimeout    time.Duration
}

func OptionsFromConfig(cfg *config.Config, searchTerm string) Options {
	return Options{
		DownloadDir:     filepath.Join(cfg.GetDownloadPath(), scribd.SanitizeFilename(searchTerm)),
		PollInterval:    cfg.GetDownloadPollInterval(),
		DownloadTimeout: cfg.GetDownloadTimeout(),
		ClickTimeout:    cfg.GetClickTimeout(),
	}
}

// Result describes where a downloaded file ended up. Path is empty when the served file name
// could not be worked out, in which case the file was neither awaited nor renamed.
type Result struct {
	Path       string
	ViewerURL  string
	ServedName string
}

func (r *Result) Resolved() bool {
	return len(r.Path) > 0
}

type Downloader struct {
	browser Browser
	logger  logger.Logger
	opts    Options
}

func New(browser Browser, logger logger.Logger, opts Options) (*Downloader, error) {
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create download directory: %w", err)
	}
	return &Downloader{browser: browser, logger: logger, opts: opts}, nil
}

func (d *Downloader) DownloadDir() string {
	return d.opts.DownloadDir
}

// Download walks one document through the download flow. Failures are returned as *StateError.
func (d *Downloader) Download(ctx context.Context, item scribd.SearchResult) (*Result, error) {
	start := time.Now()
	d.logger.Info("starting download", "id", item.ID, "url", item.URL)

	result := &Result{}
	state := StateGenerate
	for state != StateDone {
		next, err := d.step(ctx, state, item, result)
		if err != nil {
			d.logger.Error("download failed", "id", item.ID, "state", state.String(), "err", err.Error())
			return nil, &StateError{State: state, Err: err}
		}
		state = next
	}

	d.logger.Info("finished download", "id", item.ID, "path", result.Path, "elapsed", time.Since(start).String())
	return result, nil
}

func (d *Downloader) step(ctx context.Context, state State, item scribd.SearchResult, result *Result) (State, error) {
	if err := ctx.Err(); err != nil {
		return state, err
	}

	switch state {
	case StateGenerate:
		if err := d.browser.Navigate(ctx, generateURL(item.ID, item.Title)); err != nil {
			return state, fmt.Errorf("could not open generator page: %w", err)
		}
		return StateLocateViewer, nil

	case StateLocateViewer:
		html, err := d.browser.HTML(ctx)
		if err != nil {
			return state, fmt.Errorf("could not read generator page: %w", err)
		}
		viewerURL, err := findViewerURL(html)
		if err != nil {
			return state, err
		}
		result.ViewerURL = viewerURL
		d.logger.Info("redirecting to viewer", "id", item.ID, "viewer_url", viewerURL)
		return StateDownload, nil

	case StateDownload:
		if err := d.browser.Navigate(ctx, result.ViewerURL); err != nil {
			return state, fmt.Errorf("could not open viewer: %w", err)
		}
		if err := d.browser.ClickWhenReady(ctx, downloadButtonID, d.opts.ClickTimeout); err != nil {
			if ctx.Err() != nil {
				return state, ctx.Err()
			}
			if errors.Is(err, ErrButtonNotClickable) {
				return state, err
			}
			return state, fmt.Errorf("%w: %v", ErrButtonNotClickable, err)
		}
		return StateResolveFilename, nil

	case StateResolveFilename:
		name, ok := servedFilename(result.ViewerURL)
		if !ok {
			d.logger.Warn("could not work out the downloaded file name, leaving it as is", "id", item.ID, "viewer_url", result.ViewerURL)
			return StateDone, nil
		}
		result.ServedName = name
		d.logger.Info("resolved download file name", "id", item.ID, "file", name)
		return StateAwaitCompletion, nil

	case StateAwaitCompletion:
		if _, err := awaitFile(ctx, d.logger, d.opts.DownloadDir, result.ServedName, d.opts.PollInterval, d.opts.DownloadTimeout); err != nil {
			return state, err
		}
		return StateRename, nil

	case StateRename:
		canonical := item.FileName
		if len(canonical) == 0 {
			canonical = scribd.CanonicalFilename(item.Title, item.ID)
		}
		path, err := renameWithoutOverwrite(
			filepath.Join(d.opts.DownloadDir, result.ServedName),
			filepath.Join(d.opts.DownloadDir, canonical),
		)
		if err != nil {
			return state, err
		}
		result.Path = path
		d.logger.Info("renamed downloaded file", "from", result.ServedName, "to", filepath.Base(path))
		return StateDone, nil
	}

	return state, fmt.Errorf("unknown state %s", state)
}

func findViewerURL(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("could not parse generator page: %w", err)
	}

	var viewerURL string
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if strings.HasPrefix(src, viewerURLPrefix) {
			viewerURL = src
			return false
		}
		return true
	})

	if len(viewerURL) == 0 {
		return "", ErrViewerNotFound
	}
	return viewerURL, nil
}
