package kvdb

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger stores JSON encoded processing statuses on top of a DB.
type Ledger struct {
	db DB
}

func NewLedger(db DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) SetDocumentStatus(documentID string, status DocumentStatus) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	return l.setJSON(DocumentsBucket, documentID, status)
}

func (l *Ledger) GetDocumentStatus(documentID string) (*DocumentStatus, error) {
	var status DocumentStatus
	if err := l.getJSON(DocumentsBucket, documentID, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (l *Ledger) SaveRun(run RunStatus) error {
	return l.setJSON(RunsBucket, run.RunID, run)
}

func (l *Ledger) GetRun(runID string) (*RunStatus, error) {
	var run RunStatus
	if err := l.getJSON(RunsBucket, runID, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (l *Ledger) setJSON(bucket string, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s entry %s: %w", bucket, key, err)
	}
	return l.db.Set(bucket, key, string(data))
}

func (l *Ledger) getJSON(bucket string, key string, out any) error {
	value, err := l.db.Get(bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return fmt.Errorf("failed to unmarshal %s entry %s: %w", bucket, key, err)
	}
	return nil
}
