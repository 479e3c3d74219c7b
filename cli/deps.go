package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meghashyamc/coursefetch/db/archive"
	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/db/searchdb"
	"github.com/meghashyamc/coursefetch/services/download"
	"github.com/meghashyamc/coursefetch/services/extract"
	"github.com/meghashyamc/coursefetch/services/index"
	"github.com/meghashyamc/coursefetch/services/pipeline"
	"github.com/meghashyamc/coursefetch/services/scribd"
	"github.com/meghashyamc/coursefetch/validation"
)

const disconnectTimeout = 10 * time.Second

// stores holds the connections a pipeline run needs. close releases whatever was opened.
type stores struct {
	kvDB         *kvdb.BoltDB
	searchDB     *searchdb.BleveDB
	docStore     *docstore.MongoStore
	archive      *archive.MinioArchive
	indexService *index.Service
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	s := &stores{}
	var err error

	s.kvDB, err = kvdb.New(a.logger, a.cfg)
	if err != nil {
		return s, fmt.Errorf("open ledger: %w", err)
	}
	s.searchDB, err = searchdb.New(a.logger, a.cfg)
	if err != nil {
		return s, fmt.Errorf("open search index: %w", err)
	}
	s.docStore, err = docstore.New(ctx, a.logger, a.cfg)
	if err != nil {
		return s, fmt.Errorf("connect to document store: %w", err)
	}
	if err := s.docStore.Ping(ctx); err != nil {
		return s, fmt.Errorf("ping document store: %w", err)
	}
	s.archive, err = archive.New(ctx, a.logger, a.cfg)
	if err != nil {
		return s, fmt.Errorf("connect to archive: %w", err)
	}
	s.indexService = index.New(ctx, a.logger, s.searchDB, s.docStore, s.kvDB)

	return s, nil
}

func (s *stores) close() error {
	var errs []error
	if s.docStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
		defer cancel()
		errs = append(errs, s.docStore.Close(ctx))
	}
	if s.searchDB != nil {
		errs = append(errs, s.searchDB.Close())
	}
	if s.kvDB != nil {
		errs = append(errs, s.kvDB.Close())
	}
	return errors.Join(errs...)
}

func (a *app) validateOptions(opts pipeline.Options) error {
	validator, err := validation.New(a.logger)
	if err != nil {
		return err
	}
	if err := validator.Validate(opts); err != nil {
		return fmt.Errorf("invalid scrape settings: %w", err)
	}
	return nil
}

// newPipeline builds a pipeline over s. With a browser it can download and extract,
// and the returned cleanup shuts the browser down.
func (a *app) newPipeline(ctx context.Context, s *stores, opts pipeline.Options, withBrowser bool) (*pipeline.Pipeline, func(), error) {
	deps := pipeline.Dependencies{
		Paginator: scribd.NewClient(a.logger, a.cfg),
		Store:     s.docStore,
		Ledger:    kvdb.NewLedger(s.kvDB),
		Indexer:   s.indexService,
		Logger:    a.logger,
	}
	if s.archive != nil {
		deps.Archive = s.archive
	}

	cleanup := func() {}
	if withBrowser {
		downloadOpts := download.OptionsFromConfig(a.cfg, opts.Search.Term)
		browser, err := download.NewChromeBrowser(ctx, a.logger, downloadOpts.DownloadDir, a.cfg.GetBrowserHeadless())
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() {
			if err := browser.Close(); err != nil {
				a.logger.Warn("could not close browser", "err", err.Error())
			}
		}

		downloader, err := download.New(browser, a.logger, downloadOpts)
		if err != nil {
			return nil, cleanup, err
		}
		deps.Downloader = downloader
		deps.Extractor = extract.New(a.logger, extract.OptionsFromConfig(a.cfg))
	}

	return pipeline.New(deps, opts), cleanup, nil
}
