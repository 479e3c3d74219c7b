package docstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

var duplicateWrite = mongo.WriteException{WriteErrors: mongo.WriteErrors{{Index: 0, Code: duplicateKeyCode, Message: "E11000 duplicate key error"}}}

var insertOneOutcomeTestCases = []struct {
	name             string
	err              error
	ignoreDuplicates bool
	expectedNil      bool
	expectedIs       error
}{
	{
		name:             "duplicate ignored",
		err:              duplicateWrite,
		ignoreDuplicates: true,
		expectedNil:      true,
	},
	{
		name:       "duplicate surfaced",
		err:        duplicateWrite,
		expectedIs: ErrDuplicateKey,
	},
	{
		name:             "other failure surfaced even when ignoring duplicates",
		err:              mongo.WriteException{WriteErrors: mongo.WriteErrors{{Index: 0, Code: 121, Message: "document failed validation"}}},
		ignoreDuplicates: true,
	},
}

func TestInsertOneOutcome(t *testing.T) {
	for _, testCase := range insertOneOutcomeTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			err := insertOneOutcome(testCase.err, testCase.ignoreDuplicates)
			if testCase.expectedNil {
				assert.NoError(err)
				return
			}
			assert.Error(err)
			if testCase.expectedIs != nil {
				assert.ErrorIs(err, testCase.expectedIs)
			} else {
				assert.False(errors.Is(err, ErrDuplicateKey))
			}
		})
	}
}

func bulkDuplicates(indexes ...int) mongo.BulkWriteException {
	writeErrors := make([]mongo.BulkWriteError, 0, len(indexes))
	for _, index := range indexes {
		writeErrors = append(writeErrors, mongo.BulkWriteError{WriteError: mongo.WriteError{Index: index, Code: duplicateKeyCode}})
	}
	return mongo.BulkWriteException{WriteErrors: writeErrors}
}

var insertManyOutcomeTestCases = []struct {
	name             string
	insertedIDs      []any
	err              error
	ignoreDuplicates bool
	expectedIDs      []any
	expectedIs       error
	expectedErr      bool
}{
	{
		name:        "all inserted",
		insertedIDs: []any{"A", "B"},
		expectedIDs: []any{"A", "B"},
	},
	{
		name:             "second batch of the same records inserts nothing",
		insertedIDs:      []any{"A", "B"},
		err:              bulkDuplicates(0, 1),
		ignoreDuplicates: true,
		expectedIDs:      []any{},
	},
	{
		name:             "only new records are reported",
		insertedIDs:      []any{"A", "B", "C"},
		err:              bulkDuplicates(1),
		ignoreDuplicates: true,
		expectedIDs:      []any{"A", "C"},
	},
	{
		name:        "duplicates surfaced",
		insertedIDs: []any{"A", "B"},
		err:         bulkDuplicates(0),
		expectedIs:  ErrDuplicateKey,
		expectedErr: true,
	},
	{
		name:             "transport failure surfaced",
		err:              errors.New("connection reset"),
		ignoreDuplicates: true,
		expectedErr:      true,
	},
}

func TestInsertManyOutcome(t *testing.T) {
	for _, testCase := range insertManyOutcomeTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			ids, err := insertManyOutcome(testCase.insertedIDs, testCase.err, testCase.ignoreDuplicates)
			if testCase.expectedErr {
				assert.Error(err)
				assert.Nil(ids)
				if testCase.expectedIs != nil {
					assert.ErrorIs(err, testCase.expectedIs)
				}
				return
			}
			assert.NoError(err)
			assert.Equal(testCase.expectedIDs, ids)
		})
	}
}
