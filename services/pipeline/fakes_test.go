package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/services/download"
	"github.com/meghashyamc/coursefetch/services/extract"
	"github.com/meghashyamc/coursefetch/services/scribd"
	"go.mongodb.org/mongo-driver/bson"
)

type fakePaginator struct {
	results []scribd.SearchResult
	err     error
	calls   int
}

func (f *fakePaginator) Paginate(ctx context.Context, params scribd.SearchParams) ([]scribd.SearchResult, error) {
	f.calls++
	return f.results, f.err
}

// fakeDownloader writes a file named after the document into dir.
type fakeDownloader struct {
	dir        string
	failures   map[string]error
	unresolved map[string]bool
	downloaded []string
}

func (f *fakeDownloader) Download(ctx context.Context, item scribd.SearchResult) (*download.Result, error) {
	f.downloaded = append(f.downloaded, item.ID)
	if err, ok := f.failures[item.ID]; ok {
		return nil, err
	}
	if f.unresolved[item.ID] {
		return &download.Result{}, nil
	}
	path := filepath.Join(f.dir, item.FileName)
	if err := os.WriteFile(path, []byte("%PDF-1.4 "+item.ID), 0644); err != nil {
		return nil, err
	}
	return &download.Result{Path: path, ServedName: "ilide.info-" + item.ID + ".pdf"}, nil
}

type fakeExtractor struct {
	texts    map[string]string
	failures map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (*extract.Result, error) {
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return &extract.Result{}, extract.ErrFileNotFound
	}
	id := string(data[len("%PDF-1.4 "):])
	if err, ok := f.failures[id]; ok {
		return &extract.Result{}, err
	}
	return &extract.Result{Text: f.texts[id], Pages: 7}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]*docstore.CourseDocument
	order     []string
	inserts   int
	updates   map[string]bson.M
	insertErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*docstore.CourseDocument{}, updates: map[string]bson.M{}}
}

func (f *fakeStore) InsertOne(ctx context.Context, item any, ignoreDuplicates bool) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	doc := item.(*docstore.CourseDocument)
	if _, ok := f.docs[doc.ID]; ok {
		if ignoreDuplicates {
			return nil, nil
		}
		return nil, &docstore.DuplicateKeyError{Err: errors.New("E11000")}
	}
	f.docs[doc.ID] = doc
	f.order = append(f.order, doc.ID)
	return doc.ID, nil
}

func (f *fakeStore) InsertMany(ctx context.Context, items []any, ignoreDuplicates bool) ([]any, error) {
	var ids []any
	for _, item := range items {
		id, err := f.InsertOne(ctx, item, ignoreDuplicates)
		if err != nil {
			return nil, err
		}
		if id != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// FindMany only understands the missing text filter.
func (f *fakeStore) FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found []bson.M
	for _, id := range f.order {
		doc := f.docs[id]
		if doc.Content != nil && len(doc.Content.Text) > 0 {
			continue
		}
		data, err := bson.Marshal(doc)
		if err != nil {
			return nil, err
		}
		var raw bson.M
		if err := bson.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		found = append(found, raw)
		if limit > 0 && int64(len(found)) == limit {
			break
		}
	}
	return found, nil
}

func (f *fakeStore) UpdateOne(ctx context.Context, id any, fields bson.M) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	key := id.(string)
	f.updates[key] = fields
	doc, ok := f.docs[key]
	if !ok {
		return false, nil
	}
	if text, ok := fields[docstore.FieldContentText].(string); ok {
		doc.Content = &docstore.Content{Text: text}
	}
	if tags, ok := fields[docstore.FieldTags].([]string); ok {
		doc.Tags = tags
	}
	return true, nil
}

type fakeIndexer struct {
	indexed map[string]*docstore.CourseDocument
}

func (f *fakeIndexer) IndexDocument(doc *docstore.CourseDocument) error {
	f.indexed[doc.ID] = doc
	return nil
}

type fakeArchive struct {
	uploaded []string
}

func (f *fakeArchive) Upload(ctx context.Context, documentID string, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, documentID)
	return documentID + ".pdf", nil
}
