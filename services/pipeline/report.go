package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/coursefetch/db/kvdb"
)

const (
	CommandScrape   = "scrape"
	CommandCatalog  = "catalog"
	CommandBackfill = "backfill"
)

// Failure names the step a document failed in.
type Failure struct {
	DocumentID string `json:"document_id"`
	State      string `json:"state"`
	Error      string `json:"error"`
}

type Report struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	SearchTerm string    `json:"search_term"`
	Found      int       `json:"found"`
	Selected   int       `json:"selected"`
	Persisted  int       `json:"persisted"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Failures   []Failure `json:"failures,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newRunID() string {
	return uuid.NewString()
}

func (r *Report) addFailure(documentID string, state string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, Failure{DocumentID: documentID, State: state, Error: err.Error()})
}

func (r *Report) runStatus() kvdb.RunStatus {
	return kvdb.RunStatus{
		RunID:      r.RunID,
		Command:    r.Command,
		SearchTerm: r.SearchTerm,
		Found:      r.Found,
		Selected:   r.Selected,
		Persisted:  r.Persisted,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
