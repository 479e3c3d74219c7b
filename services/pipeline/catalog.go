package pipeline

import (
	"context"
	"fmt"

	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"go.mongodb.org/mongo-driver/bson"
)

// Catalog stores search results as records without content or tags, ignoring ones already stored.
func (p *Pipeline) Catalog(ctx context.Context) (*Report, error) {
	report := p.newReport(CommandCatalog)
	defer p.saveRun(report)

	selected, err := p.search(ctx, report)
	if err != nil {
		return report, err
	}

	items := make([]any, 0, len(selected))
	for _, item := range selected {
		items = append(items, p.catalogRecord(item))
	}

	insertedIDs, err := p.store.InsertMany(ctx, items, true)
	if err != nil {
		p.logger.Error("could not store catalog records", "run_id", report.RunID, "err", err.Error())
		return report, fmt.Errorf("%s: %w", stepPersist, err)
	}
	report.Persisted = len(insertedIDs)
	report.Skipped = len(items) - len(insertedIDs)

	p.logger.Info("finished catalog", "run_id", report.RunID, "stored", report.Persisted, "already_present", report.Skipped)
	return report, nil
}

// Backfill downloads and extracts catalogued records that have no text yet and sets their content.
// A limit of 0 processes every such record.
func (p *Pipeline) Backfill(ctx context.Context, limit int64) (*Report, error) {
	report := p.newReport(CommandBackfill)
	defer p.saveRun(report)

	raw, err := p.store.FindMany(ctx, docstore.MissingTextFilter(), limit)
	if err != nil {
		p.logger.Error("could not read records to backfill", "run_id", report.RunID, "err", err.Error())
		return report, fmt.Errorf("read records: %w", err)
	}
	report.Found = len(raw)
	report.Selected = len(raw)
	p.logger.Info("starting backfill", "run_id", report.RunID, "records", len(raw))

	for i, item := range raw {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("backfill cancelled", "run_id", report.RunID, "processed", i, "err", err.Error())
			return report, err
		}

		stored, err := docstore.DecodeCourseDocument(item)
		if err != nil {
			p.fail(report, fmt.Sprint(item[docstore.FieldID]), stepPersist, err)
			continue
		}

		if p.backfillOne(ctx, report, stored) {
			report.Persisted++
		}
	}

	p.logger.Info("finished backfill", "run_id", report.RunID, "updated", report.Persisted, "failed", report.Failed)
	return report, nil
}

func (p *Pipeline) backfillOne(ctx context.Context, report *Report, stored *docstore.CourseDocument) bool {
	item := searchResultOf(stored)

	_, content, ok := p.fetch(ctx, report, item)
	if !ok {
		return false
	}

	if _, err := p.store.UpdateOne(ctx, stored.ID, bson.M{docstore.FieldContentText: content.Text}); err != nil {
		p.fail(report, stored.ID, stepPersist, err)
		return false
	}

	stored.Content = &docstore.Content{Text: content.Text}
	if p.indexer != nil {
		if err := p.indexer.IndexDocument(stored); err != nil {
			p.logger.Warn("could not index document", "id", stored.ID, "err", err.Error())
		}
	}

	p.setStatus(stored.ID, kvdb.DocumentStatus{Status: kvdb.StatusPersisted, RunID: report.RunID})
	return true
}
