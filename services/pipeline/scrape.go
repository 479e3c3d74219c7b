package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/services/download"
	"github.com/meghashyamc/coursefetch/services/scribd"
	"go.mongodb.org/mongo-driver/bson"
)

// Step names recorded in the ledger for failures outside the downloader.
const (
	stepPaginate = "paginate"
	stepExtract  = "extract"
	stepPersist  = "persist"
)

var errUnresolvedDownload = errors.New("downloaded file name could not be resolved")

type outcome int

const (
	outcomePersisted outcome = iota
	outcomeSkipped
	outcomeFailed
)

// Scrape searches, ranks and then downloads, extracts and stores every selected document in turn.
// Only a failed search ends the run early. Per document failures are logged and counted.
func (p *Pipeline) Scrape(ctx context.Context) (*Report, error) {
	report := p.newReport(CommandScrape)
	defer p.saveRun(report)

	p.logger.Info("starting scrape", "run_id", report.RunID, "term", p.opts.Search.Term)

	selected, err := p.search(ctx, report)
	if err != nil {
		return report, err
	}

	for i, item := range selected {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("scrape cancelled", "run_id", report.RunID, "processed", i, "err", err.Error())
			return report, err
		}

		start := time.Now()
		p.logger.Info("processing document", "run_id", report.RunID, "id", item.ID, "progress", fmt.Sprintf("%d/%d", i+1, len(selected)))

		switch p.processItem(ctx, report, item) {
		case outcomePersisted:
			report.Persisted++
		case outcomeSkipped:
			report.Skipped++
		}

		p.logger.Info("processed document", "run_id", report.RunID, "id", item.ID, "elapsed", time.Since(start).String())
	}

	p.logger.Info("finished scrape", "run_id", report.RunID, "persisted", report.Persisted, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

func (p *Pipeline) search(ctx context.Context, report *Report) ([]scribd.SearchResult, error) {
	results, err := p.paginator.Paginate(ctx, p.opts.Search)
	if err != nil {
		p.logger.Error("search failed, aborting run", "run_id", report.RunID, "err", err.Error())
		return nil, fmt.Errorf("%s: %w", stepPaginate, err)
	}
	report.Found = len(results)

	selected := scribd.Rank(results, p.opts.Rank)
	report.Selected = len(selected)
	p.logger.Info("ranked search results", "run_id", report.RunID, "found", report.Found, "selected", report.Selected)

	return selected, nil
}

func (p *Pipeline) processItem(ctx context.Context, report *Report, item scribd.SearchResult) outcome {
	if !p.opts.Force && p.alreadyPersisted(item.ID) {
		p.logger.Info("document already persisted, skipping", "id", item.ID)
		return outcomeSkipped
	}

	doc, text, ok := p.fetch(ctx, report, item)
	if !ok {
		return outcomeFailed
	}

	doc.Content = &docstore.Content{Text: text.Text, Images: text.Images}
	doc.Tags = p.opts.tags()

	insertedID, err := p.store.InsertOne(ctx, doc, true)
	if err != nil {
		p.fail(report, item.ID, stepPersist, err)
		return outcomeFailed
	}
	// A nil id means the record already exists, e.g. from a catalog run or a forced rerun.
	if insertedID == nil {
		if err := p.updateStored(ctx, doc); err != nil {
			p.fail(report, item.ID, stepPersist, err)
			return outcomeFailed
		}
	}

	if p.indexer != nil {
		if err := p.indexer.IndexDocument(doc); err != nil {
			p.logger.Warn("could not index document, it is stored but not searchable yet", "id", item.ID, "err", err.Error())
		}
	}

	p.setStatus(item.ID, kvdb.DocumentStatus{Status: kvdb.StatusPersisted, RunID: report.RunID})
	return outcomePersisted
}

// updateStored sets the freshly extracted content and tags on an existing record.
func (p *Pipeline) updateStored(ctx context.Context, doc *docstore.CourseDocument) error {
	fields := bson.M{
		docstore.FieldContentText: doc.Content.Text,
		docstore.FieldTags:        doc.Tags,
	}
	if len(doc.Content.Images) > 0 {
		fields[docstore.FieldContentImages] = doc.Content.Images
	}
	if len(doc.Metadata.ArchiveKey) > 0 {
		fields[docstore.FieldArchiveKey] = doc.Metadata.ArchiveKey
	}

	modified, err := p.store.UpdateOne(ctx, doc.ID, fields)
	if err != nil {
		return fmt.Errorf("update stored record: %w", err)
	}
	p.logger.Info("document already stored, updated its content", "id", doc.ID, "modified", modified)
	return nil
}

type extracted struct {
	Text   string
	Images [][]byte
}

// fetch downloads and extracts one document, returning the record to store without content or tags.
func (p *Pipeline) fetch(ctx context.Context, report *Report, item scribd.SearchResult) (*docstore.CourseDocument, *extracted, bool) {
	result, err := p.downloader.Download(ctx, item)
	if err != nil {
		state := stateOf(err)
		p.fail(report, item.ID, state, err)
		return nil, nil, false
	}
	if !result.Resolved() {
		p.fail(report, item.ID, download.StateResolveFilename.String(), errUnresolvedDownload)
		return nil, nil, false
	}
	p.setStatus(item.ID, kvdb.DocumentStatus{Status: kvdb.StatusDownloaded, RunID: report.RunID})

	doc := p.catalogRecord(item)

	if p.archive != nil {
		key, err := p.archive.Upload(ctx, item.ID, result.Path)
		if err != nil {
			p.logger.Warn("could not archive file, continuing without a copy", "id", item.ID, "err", err.Error())
		} else {
			doc.Metadata.ArchiveKey = key
		}
	}

	content, err := p.extractor.Extract(ctx, result.Path)
	if err != nil {
		p.fail(report, item.ID, stepExtract, err)
		return nil, nil, false
	}
	if content.Pages > 0 {
		doc.Metadata.Pages = content.Pages
	}

	return doc, &extracted{Text: content.Text, Images: content.Images}, true
}

func (p *Pipeline) catalogRecord(item scribd.SearchResult) *docstore.CourseDocument {
	fileName := item.FileName
	if len(fileName) == 0 {
		fileName = scribd.CanonicalFilename(item.Title, item.ID)
	}
	uploadDate := item.CreatedAt
	if uploadDate.IsZero() {
		uploadDate = p.now()
	}

	return &docstore.CourseDocument{
		ID:       item.ID,
		FileName: fileName,
		FileType: docstore.FileTypePDF,
		Metadata: docstore.Metadata{
			Title:      item.Title,
			Source:     item.URL,
			Pages:      item.Pages,
			Views:      item.Views,
			SearchTerm: p.opts.Search.Term,
		},
		UploadDate: uploadDate,
	}
}

func (p *Pipeline) alreadyPersisted(documentID string) bool {
	status, err := p.ledger.GetDocumentStatus(documentID)
	if err != nil {
		if !errors.Is(err, kvdb.ErrNotFound) {
			p.logger.Warn("could not read ledger entry", "id", documentID, "err", err.Error())
		}
		return false
	}
	return status.Status == kvdb.StatusPersisted
}

func (p *Pipeline) fail(report *Report, documentID string, state string, err error) {
	p.logger.Error("document failed", "run_id", report.RunID, "id", documentID, "state", state, "err", err.Error())
	report.addFailure(documentID, state, err)
	p.setStatus(documentID, kvdb.DocumentStatus{Status: kvdb.StatusFailed, State: state, Error: err.Error(), RunID: report.RunID})
}

func (p *Pipeline) setStatus(documentID string, status kvdb.DocumentStatus) {
	if err := p.ledger.SetDocumentStatus(documentID, status); err != nil {
		p.logger.Warn("could not update ledger", "id", documentID, "status", status.Status, "err", err.Error())
	}
}

func (p *Pipeline) newReport(command string) *Report {
	return &Report{
		RunID:      p.newRunID(),
		Command:    command,
		SearchTerm: p.opts.Search.Term,
		StartedAt:  p.now(),
	}
}

func (p *Pipeline) saveRun(report *Report) {
	report.FinishedAt = p.now()
	if err := p.ledger.SaveRun(report.runStatus()); err != nil {
		p.logger.Warn("could not save run status", "run_id", report.RunID, "err", err.Error())
	}
}

func stateOf(err error) string {
	var stateErr *download.StateError
	if errors.As(err, &stateErr) {
		return stateErr.State.String()
	}
	return "download"
}
