// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/coursefetch/db/docstore"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/meghashyamc/coursefetch/db/searchdb"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/meghashyamc/coursefetch/services/index"
	"github.com/meghashyamc/coursefetch/validation"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testUploadDate = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

var testDocuments = []bson.M{
	{
		docstore.FieldID: "101",
		"file_name":      "Thermodynamics Lecture Notes (101).pdf",
		"file_type":      docstore.FileTypePDF,
		"metadata": bson.M{
			"title":       "Thermodynamics Lecture Notes",
			"source":      "https://www.scribd.com/document/101",
			"pages":       42,
			"views":       int64(1200),
			"search_term": "td",
		},
		"content":     bson.M{"text": "The first law of thermodynamics states that energy is conserved in a closed system."},
		"tags":        []string{"physics", "td"},
		"upload_date": testUploadDate,
	},
	{
		docstore.FieldID: "202",
		"file_name":      "Organic Chemistry Basics (202).pdf",
		"file_type":      docstore.FileTypePDF,
		"metadata": bson.M{
			"title":       "Organic Chemistry Basics",
			"source":      "https://www.scribd.com/document/202",
			"pages":       17,
			"views":       int64(80),
			"search_term": "chemistry",
		},
		"upload_date": testUploadDate,
	},
}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse map[string]any
}

type testServer struct {
	router       *gin.Engine
	indexService *index.Service
	searchDB     *searchdb.BleveDB
	ledger       *kvdb.Ledger
}

// memStore serves stored documents from memory in place of MongoDB.
type memStore struct {
	documents []bson.M
}

func (m *memStore) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	for _, doc := range m.documents {
		if doc[docstore.FieldID] == filter[docstore.FieldID] {
			return doc, nil
		}
	}
	return nil, &docstore.NotFoundError{Filter: filter}
}

func (m *memStore) FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error) {
	var found []bson.M
	for _, doc := range m.documents {
		if tag, ok := filter[docstore.FieldTags].(string); ok {
			tags, _ := doc[docstore.FieldTags].([]string)
			if !slices.Contains(tags, tag) {
				continue
			}
		}
		found = append(found, doc)
		if limit > 0 && int64(len(found)) == limit {
			break
		}
	}
	return found, nil
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions) *testServer {

	tempDir := t.TempDir()
	testLogger := newTestLogger()

	kvDB, err := kvdb.Open(testLogger, filepath.Join(tempDir, "ledger.db"))
	assert.NoError(err, "could not create kv database")

	searchDB, err := searchdb.Open(testLogger, filepath.Join(tempDir, "index.bleve"))
	assert.NoError(err, "could not create search database")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	ctx, cancel := context.WithCancel(context.Background())
	store := &memStore{documents: testDocuments}
	indexService := index.New(ctx, testLogger, searchDB, store, kvDB)
	ledger := kvdb.NewLedger(kvDB)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupIndex(router, testLogger, indexService, validator)
	SetupSearch(router, testLogger, searchDB, validator)
	SetupDocuments(router, testLogger, store, validator)
	SetupRuns(router, testLogger, ledger, validator)

	t.Cleanup(func() {
		cancel()
		assert.NoError(searchDB.Close(), "could not close search database")
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	return &testServer{
		router:       router,
		indexService: indexService,
		searchDB:     searchDB,
		ledger:       ledger,
	}
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var responseMap map[string]any
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &responseMap), "could not unmarshal gotten response")
	return responseMap
}
