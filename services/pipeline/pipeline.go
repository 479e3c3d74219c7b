package pipeline

import (
	"context"
	"time"

	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/services/download"
	"github.com/meghashyamc/coursefetch/services/extract"
	"github.com/meghashyamc/coursefetch/services/scribd"
	"go.mongodb.org/mongo-driver/bson"
)

type Paginator interface {
	Paginate(ctx context.Context, params scribd.SearchParams) ([]scribd.SearchResult, error)
}

type Downloader interface {
	Download(ctx context.Context, item scribd.SearchResult) (*download.Result, error)
}

type Extractor interface {
	Extract(ctx context.Context, path string) (*extract.Result, error)
}

type Store interface {
	InsertOne(ctx context.Context, item any, ignoreDuplicates bool) (any, error)
	InsertMany(ctx context.Context, items []any, ignoreDuplicates bool) ([]any, error)
	FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error)
	UpdateOne(ctx context.Context, id any, fields bson.M) (bool, error)
}

type Ledger interface {
	SetDocumentStatus(documentID string, status kvdb.DocumentStatus) error
	GetDocumentStatus(documentID string) (*kvdb.DocumentStatus, error)
	SaveRun(run kvdb.RunStatus) error
}

type Indexer interface {
	IndexDocument(doc *docstore.CourseDocument) error
}

type Archive interface {
	Upload(ctx context.Context, documentID string, path string) (string, error)
}

// Dependencies are the collaborators a Pipeline drives. Archive may be nil.
// Downloader and Extractor are only needed by Scrape and Backfill.
type Dependencies struct {
	Paginator  Paginator
	Downloader Downloader
	Extractor  Extractor
	Store      Store
	Ledger     Ledger
	Indexer    Indexer
	Archive    Archive
	Logger     logger.Logger
}

type Options struct {
	Search scribd.SearchParams `json:"search"`
	Rank   scribd.RankOptions  `json:"rank"`
	// Tags stamped on persisted documents. Empty means the search term is the only tag.
	Tags []string `json:"tags"`
	// Force reprocesses documents the ledger already marks as persisted.
	Force bool `json:"force"`
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Search: scribd.ParamsFromConfig(cfg),
		Rank: scribd.RankOptions{
			MinPages:   cfg.GetMinFileLength(),
			MaxPages:   cfg.GetMaxFileLength(),
			MaxResults: cfg.GetMaxSavedResults(),
		},
		Tags: cfg.GetCourseTags(),
	}
}

func (o Options) tags() []string {
	if len(o.Tags) > 0 {
		return o.Tags
	}
	return []string{o.Search.Term}
}

type Pipeline struct {
	paginator  Paginator
	downloader Downloader
	extractor  Extractor
	store      Store
	ledger     Ledger
	indexer    Indexer
	archive    Archive
	logger     logger.Logger
	opts       Options
	now        func() time.Time
	newRunID   func() string
}

func New(deps Dependencies, opts Options) *Pipeline {
	return &Pipeline{
		paginator:  deps.Paginator,
		downloader: deps.Downloader,
		extractor:  deps.Extractor,
		store:      deps.Store,
		ledger:     deps.Ledger,
		indexer:    deps.Indexer,
		archive:    deps.Archive,
		logger:     deps.Logger,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		newRunID:   newRunID,
	}
}
