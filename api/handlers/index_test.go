package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHandleCreateIndex(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/index", defaultTestRequestHeaders, nil, nil)
	responseBytes := w.Body.Bytes()
	assert.Equal(http.StatusAccepted, w.Code, fmt.Sprintf("response gotten was %s", string(responseBytes)))

	assertSuccessfulIndexCreation(assert, server, responseBytes)

	numOfDocuments, err := server.searchDB.GetDocCount()
	assert.Nil(err, "could not get document count")
	assert.Equal(len(testDocuments), int(numOfDocuments), "document count of index should be equal to number of stored documents")

	// Once the first build has finished a new one is accepted again.
	assert.Eventually(func() bool {
		w = makeTestHTTPRequest(server.router, assert, http.MethodPost, "/index", defaultTestRequestHeaders, nil, nil)
		return w.Code == http.StatusAccepted
	}, 5*time.Second, 50*time.Millisecond)
	assertSuccessfulIndexCreation(assert, server, w.Body.Bytes())
}

var getIndexStatusTestCases = []testCase{
	{
		name:           "NotAUUID",
		expectedStatus: http.StatusNotAcceptable,
	},
	{
		name:           "UnknownRequest",
		expectedStatus: http.StatusNotFound,
	},
}

func TestHandleGetIndexStatus(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	endpoints := map[string]string{
		"NotAUUID":       "/index/abc",
		"UnknownRequest": fmt.Sprintf("/index/%s", uuid.NewString()),
	}

	for _, testCase := range getIndexStatusTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodGet, endpoints[testCase.name], testCase.requestHeaders, nil, nil)
			assert.Equal(testCase.expectedStatus, w.Code, fmt.Sprintf("response gotten was %s", w.Body.String()))
		})
	}
}

func TestIndexState(t *testing.T) {
	assert := require.New(t)
	assert.Equal(indexStateInProgress, indexState(0))
	assert.Equal(indexStateInProgress, indexState(55))
	assert.Equal(indexStateComplete, indexState(100))
	assert.Equal(indexStateFailed, indexState(-1))
}

func assertSuccessfulIndexCreation(assert *require.Assertions, server *testServer, responseBytes []byte) {

	type indexResponse struct {
		Data   IndexResponse `json:"data"`
		Errors []string      `json:"errors"`
	}
	actualResponse := indexResponse{}
	err := json.Unmarshal(responseBytes, &actualResponse)
	assert.NoError(err, "could not unmarshal gotten response")
	requestID, err := uuid.Parse(actualResponse.Data.ID)
	assert.NoError(err, "got an error parsing gotten request_id into UUID")

	maxWaitForIndexCreation := 10 * time.Second

	type statusResponse struct {
		Data IndexStatusResponse `json:"data"`
	}

	for startTime := time.Now().UTC(); time.Since(startTime) < maxWaitForIndexCreation; time.Sleep(100 * time.Millisecond) {
		w := makeTestHTTPRequest(server.router, assert, http.MethodGet, fmt.Sprintf("/index/%s", requestID), nil, nil, nil)
		assert.Equal(http.StatusOK, w.Code)

		status := statusResponse{}
		assert.NoError(json.Unmarshal(w.Body.Bytes(), &status))
		assert.NotEqual(indexStateFailed, status.Data.State)
		if status.Data.State == indexStateComplete {
			return
		}
	}
	assert.Fail("timed out waiting for index creation: ", requestID.String())
}
