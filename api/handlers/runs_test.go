package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/coursefetch/db/kvdb"
	"github.com/stretchr/testify/require"
)

func TestHandleGetRun(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert)

	runID := uuid.NewString()
	startedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.NoError(server.ledger.SaveRun(kvdb.RunStatus{
		RunID:      runID,
		Command:    "scrape",
		SearchTerm: "td",
		Found:      12,
		Selected:   5,
		Persisted:  4,
		Failed:     1,
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(time.Minute),
	}))

	testCases := []struct {
		name           string
		endpoint       string
		expectedStatus int
	}{
		{name: "Found", endpoint: fmt.Sprintf("/runs/%s", runID), expectedStatus: http.StatusOK},
		{name: "NotFound", endpoint: fmt.Sprintf("/runs/%s", uuid.NewString()), expectedStatus: http.StatusNotFound},
		{name: "NotAUUID", endpoint: "/runs/latest", expectedStatus: http.StatusNotAcceptable},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodGet, testCase.endpoint, nil, nil, nil)
			assert.Equal(testCase.expectedStatus, w.Code, fmt.Sprintf("response gotten was %s", w.Body.String()))
			if testCase.expectedStatus != http.StatusOK {
				return
			}

			data := decodeResponse(assert, w)["data"].(map[string]any)
			assert.Equal(runID, data["run_id"])
			assert.Equal("scrape", data["command"])
			assert.EqualValues(4, data["persisted"])
			assert.EqualValues(1, data["failed"])
		})
	}
}
