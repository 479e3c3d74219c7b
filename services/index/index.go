package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/db/searchdb"
	"github.com/meghashyamc/coursefetch/logger"
	"go.mongodb.org/mongo-driver/bson"
)

// Indexer represents the search database operations needed for index creation
type Indexer interface {
	BuildIndex(documents []searchdb.Document) error
	DeleteDocuments(documentIDs []string) error
}

// Source is where stored course documents are read from.
type Source interface {
	FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error)
}

const (
	ProgressStatusStep1    = 10
	ProgressStatusStep2    = 20
	ProgressStatusComplete = 100
	ProgressStatusFailed   = -1

	maxGoRoutinesForIndexing = 8
	maxIndexBuildingTime     = 2 * time.Hour
)

var ErrIndexingInProgress = errors.New("indexing already in progress")

type Service struct {
	logger        logger.Logger
	indexer       Indexer
	source        Source
	metadataStore MetadataStore
	buildIndexC   chan string
	building      atomic.Bool
}

func New(ctx context.Context, logger logger.Logger, indexer Indexer, source Source, metadataStore MetadataStore) *Service {
	indexService := &Service{
		logger:        logger,
		indexer:       indexer,
		source:        source,
		metadataStore: metadataStore,
		buildIndexC:   make(chan string, 1),
	}

	go indexService.build(ctx)
	return indexService
}

// Build rebuilds the search index from every stored document in the background.
// Progress is reported through GetStatus under requestID.
func (s *Service) Build(requestID string) error {

	if !s.building.CompareAndSwap(false, true) {
		s.logger.Warn("request to index while indexing is already in progress")
		return ErrIndexingInProgress
	}

	s.setRequestStatus(requestID, 0)

	// This leads to s.buildIndex being called
	s.buildIndexC <- requestID
	return nil
}

// GetStatus retrieves the progress status for index creation
func (s *Service) GetStatus(requestID string) (int, error) {
	value, err := s.metadataStore.Get(kvdb.RequestsBucket, requestID)
	if err != nil {
		return 0, fmt.Errorf("request not found: %w", err)
	}

	status, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid status value: %w", err)
	}

	return status, nil
}

// IndexDocument adds or replaces a single document in the search index.
func (s *Service) IndexDocument(doc *docstore.CourseDocument) error {
	if err := s.indexer.BuildIndex([]searchdb.Document{toSearchDocument(doc)}); err != nil {
		s.logger.Error("failed to index document", "id", doc.ID, "err", err.Error())
		return err
	}
	return s.setIndexMetadata(doc.ID, kvdb.IndexMetadata{LastIndexed: time.Now().UTC()})
}

func (s *Service) build(ctx context.Context) {

	for {
		select {
		case requestID := <-s.buildIndexC:
			indexTimeoutCtx, cancel := context.WithTimeout(ctx, maxIndexBuildingTime)
			s.buildIndex(indexTimeoutCtx, requestID)
			cancel()
			s.building.Store(false)
		case <-ctx.Done():
			s.logger.Info("index service stopped", "reason", ctx.Err())
			return
		}
	}
}

func (s *Service) buildIndex(ctx context.Context, requestID string) {
	documents, err := s.getDocumentsToIndex(ctx)
	if err != nil {
		s.logger.Error("failed to create index", "request_id", requestID, "err", err.Error())
		s.setRequestStatus(requestID, ProgressStatusFailed)
		return
	}

	s.setRequestStatus(requestID, ProgressStatusStep1)

	// Documents removed from the store since the last build are removed from the index first
	deletedIDs, err := s.getDeletedDocuments(documents)
	if err != nil {
		s.logger.Error("failed to create index", "request_id", requestID, "err", err.Error())
		s.setRequestStatus(requestID, ProgressStatusFailed)
		return
	}

	if err := s.removeDeletedDocuments(deletedIDs); err != nil {
		s.logger.Error("failed to create index", "request_id", requestID, "err", err.Error())
		s.setRequestStatus(requestID, ProgressStatusFailed)
		return
	}

	s.setRequestStatus(requestID, ProgressStatusStep2)

	s.doBuildIndex(ctx, documents, requestID)
}

func (s *Service) getDocumentsToIndex(ctx context.Context) ([]*docstore.CourseDocument, error) {
	raw, err := s.source.FindMany(ctx, bson.M{}, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored documents: %w", err)
	}

	documents := make([]*docstore.CourseDocument, 0, len(raw))
	for _, item := range raw {
		doc, err := docstore.DecodeCourseDocument(item)
		if err != nil {
			s.logger.Warn("skipping stored document that could not be decoded", "id", item[docstore.FieldID], "err", err.Error())
			continue
		}
		documents = append(documents, doc)
	}
	s.logger.Info("read stored documents", "num_of_documents", len(documents))

	return documents, nil
}

func (s *Service) getDeletedDocuments(documents []*docstore.CourseDocument) ([]string, error) {
	indexedIDs, err := s.metadataStore.GetAllKeys(kvdb.IndexedBucket)
	if err != nil {
		s.logger.Error("failed to get all keys from database", "err", err.Error())
		return nil, fmt.Errorf("failed to get all keys from database: %w", err)
	}

	stored := make(map[string]struct{}, len(documents))
	for _, doc := range documents {
		stored[doc.ID] = struct{}{}
	}

	var deletedIDs []string
	for _, id := range indexedIDs {
		if _, ok := stored[id]; !ok {
			deletedIDs = append(deletedIDs, id)
		}
	}

	return deletedIDs, nil
}

func (s *Service) removeDeletedDocuments(deletedIDs []string) error {
	if len(deletedIDs) == 0 {
		return nil
	}
	s.logger.Info("removing deleted documents from index", "deleted_documents", len(deletedIDs))
	if err := s.indexer.DeleteDocuments(deletedIDs); err != nil {
		s.logger.Error("failed to delete documents from search index", "err", err.Error())
		return fmt.Errorf("failed to delete documents from search index: %w", err)
	}

	for _, id := range deletedIDs {
		if err := s.metadataStore.Delete(kvdb.IndexedBucket, id); err != nil {
			s.logger.Error("failed to delete index metadata", "id", id, "err", err.Error())
		}
	}
	return nil
}

func (s *Service) doBuildIndex(ctx context.Context, documents []*docstore.CourseDocument, requestID string) {
	s.logger.Info("building index of documents...")
	indexTime := time.Now().UTC()

	if len(documents) == 0 {
		s.setRequestStatus(requestID, ProgressStatusComplete)
		s.logger.Info("no documents to index")
		return
	}

	numGoroutines := min(maxGoRoutinesForIndexing, len(documents))
	docsPerGoroutine := len(documents) / numGoroutines

	processedC := make(chan []string, numGoroutines)
	indexCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var indexWG sync.WaitGroup

	s.logger.Info("starting parallel indexing", "goroutines", numGoroutines, "documents_per_goroutine", docsPerGoroutine)

	for i := 0; i < numGoroutines; i++ {
		start := i * docsPerGoroutine
		end := start + docsPerGoroutine

		// For the last goroutine, include any remaining documents
		if i == numGoroutines-1 {
			end = len(documents)
		}

		indexWG.Add(1)
		go s.doBuildIndexForPortion(indexCtx, documents[start:end], i, processedC, &indexWG)
	}

	var metadataWG sync.WaitGroup
	metadataWG.Add(1)

	// Index metadata lets the next build find documents that were deleted from the store.
	// This goroutine terminates when processedC is closed.
	go s.updateMetadata(indexTime, requestID, len(documents), processedC, &metadataWG)

	go func() {
		indexWG.Wait()
		close(processedC)
	}()

	metadataWG.Wait()
	if ctx.Err() != nil {
		s.setRequestStatus(requestID, ProgressStatusFailed)
		s.logger.Error("indexing cancelled", "request_id", requestID, "err", ctx.Err())
		return
	}

	s.setRequestStatus(requestID, ProgressStatusComplete)
}

func (s *Service) doBuildIndexForPortion(ctx context.Context, portion []*docstore.CourseDocument, goroutineID int, processedC chan []string, wg *sync.WaitGroup) {
	defer wg.Done()
	numOfDocs := len(portion)

	for i := 0; i < numOfDocs; i += searchdb.IndexingBatchSize {
		select {
		case <-ctx.Done():
			s.logger.Info("goroutine cancelled", "goroutine_id", goroutineID, "reason", ctx.Err())
			return
		default:
		}

		batch := portion[i:min(i+searchdb.IndexingBatchSize, numOfDocs)]
		searchDocs := make([]searchdb.Document, 0, len(batch))
		ids := make([]string, 0, len(batch))
		for _, doc := range batch {
			searchDocs = append(searchDocs, toSearchDocument(doc))
			ids = append(ids, doc.ID)
		}

		if err := s.indexer.BuildIndex(searchDocs); err != nil {
			s.logger.Error("failed to build index for goroutine", "goroutine_id", goroutineID, "err", err.Error())
			continue
		}
		processedC <- ids
	}
	s.logger.Debug("completed indexing for goroutine", "goroutine_id", goroutineID, "num_of_documents_received", numOfDocs)
}

func (s *Service) updateMetadata(indexTime time.Time, requestID string, total int, processedC chan []string, wg *sync.WaitGroup) {
	defer wg.Done()
	updatedCount := 0

	for ids := range processedC {
		for _, id := range ids {
			if err := s.setIndexMetadata(id, kvdb.IndexMetadata{LastIndexed: indexTime}); err == nil {
				updatedCount++
			}
		}
		s.setRequestStatus(requestID, getProgressPercentage(updatedCount, total, ProgressStatusStep2, ProgressStatusComplete-1))
	}
	s.logger.Info("finished updating index metadata", "count", fmt.Sprintf("%d/%d", updatedCount, total))
}

func (s *Service) setIndexMetadata(id string, metadata kvdb.IndexMetadata) error {
	data, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Error("failed to marshal index metadata", "id", id, "err", err.Error())
		return fmt.Errorf("failed to marshal index metadata for %s: %w", id, err)
	}

	if err := s.metadataStore.Set(kvdb.IndexedBucket, id, string(data)); err != nil {
		s.logger.Error("failed to set index metadata", "id", id, "err", err.Error())
		return err
	}

	return nil
}

func (s *Service) setRequestStatus(requestID string, status int) {
	if err := s.metadataStore.Set(kvdb.RequestsBucket, requestID, strconv.Itoa(status)); err != nil {
		s.logger.Error("failed to update request status", "request_id", requestID, "progress", status, "err", err.Error())
	}
}

func getProgressPercentage(done int, total int, initial int, final int) int {
	if done == 0 || total == 0 {
		return initial
	}

	if done >= total {
		return final
	}

	// Calculate the percentage between initial and final
	progress := float64(done) / float64(total)
	result := float64(initial) + progress*float64(final-initial)

	return int(result)
}
