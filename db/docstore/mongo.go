package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const duplicateKeyCode = 11000

// MongoStore is a thin CRUD gateway over a single collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     logger.Logger
}

func New(ctx context.Context, logger logger.Logger, cfg *config.Config) (*MongoStore, error) {
	uri := cfg.GetMongoURI()
	if len(uri) == 0 {
		return nil, errors.New("MONGODB_URI is not configured")
	}
	return Connect(ctx, logger, uri, cfg.GetMongoDBName(), cfg.GetMongoCollectionName())
}

func Connect(ctx context.Context, logger logger.Logger, uri string, dbName string, collectionName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("could not connect to mongodb", "err", err.Error())
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection(collectionName),
		logger:     logger,
	}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertOne(ctx context.Context, item any, ignoreDuplicates bool) (any, error) {
	res, err := s.collection.InsertOne(ctx, item)
	if err != nil {
		if err := insertOneOutcome(err, ignoreDuplicates); err != nil {
			s.logger.Error("could not insert document", "collection", s.collection.Name(), "err", err.Error())
			return nil, err
		}
		s.logger.Info("document already exists, skipping insert", "collection", s.collection.Name())
		return nil, nil
	}

	return res.InsertedID, nil
}

// InsertMany inserts without stopping at the first failure. With ignoreDuplicates, an error made
// up only of duplicate key failures is swallowed and the ids of the skipped items are left out.
func (s *MongoStore) InsertMany(ctx context.Context, items []any, ignoreDuplicates bool) ([]any, error) {
	if len(items) == 0 {
		return nil, nil
	}

	res, err := s.collection.InsertMany(ctx, items, options.InsertMany().SetOrdered(false))

	var insertedIDs []any
	if res != nil {
		insertedIDs = res.InsertedIDs
	}

	ids, outcomeErr := insertManyOutcome(insertedIDs, err, ignoreDuplicates)
	if outcomeErr != nil {
		s.logger.Error("could not insert documents", "collection", s.collection.Name(), "err", outcomeErr.Error())
		return nil, outcomeErr
	}
	if err != nil {
		s.logger.Info("some documents already existed, skipped them", "collection", s.collection.Name(), "inserted", len(ids), "requested", len(items))
	}
	return ids, nil
}

// insertOneOutcome returns nil for a duplicate that may be ignored.
func insertOneOutcome(err error, ignoreDuplicates bool) error {
	if mongo.IsDuplicateKeyError(err) {
		if ignoreDuplicates {
			return nil
		}
		return &DuplicateKeyError{Err: err}
	}
	return fmt.Errorf("mongo insert: %w", err)
}

func insertManyOutcome(insertedIDs []any, err error, ignoreDuplicates bool) ([]any, error) {
	if err == nil {
		return insertedIDs, nil
	}
	if failed, ok := duplicateKeyFailures(err); ok && ignoreDuplicates {
		return withoutIndexes(insertedIDs, failed), nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, &DuplicateKeyError{Err: err}
	}
	return nil, fmt.Errorf("mongo insert many: %w", err)
}

// duplicateKeyFailures returns the indexes of the items that failed, provided every failure is a
// duplicate key error.
func duplicateKeyFailures(err error) (map[int]struct{}, bool) {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return nil, false
	}
	if bulkErr.WriteConcernError != nil || len(bulkErr.WriteErrors) == 0 {
		return nil, false
	}

	failed := make(map[int]struct{}, len(bulkErr.WriteErrors))
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Code != duplicateKeyCode {
			return nil, false
		}
		failed[writeErr.Index] = struct{}{}
	}
	return failed, true
}

func withoutIndexes(ids []any, indexes map[int]struct{}) []any {
	kept := make([]any, 0, len(ids))
	for i, id := range ids {
		if _, ok := indexes[i]; !ok {
			kept = append(kept, id)
		}
	}
	return kept
}

func (s *MongoStore) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	var doc bson.M
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{Filter: filter}
		}
		s.logger.Error("could not find document", "collection", s.collection.Name(), "err", err.Error())
		return nil, fmt.Errorf("mongo find one: %w", err)
	}
	return doc, nil
}

// FindMany returns every match when limit is 0.
func (s *MongoStore) FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetSort(bson.D{{Key: "upload_date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Error("could not find documents", "collection", s.collection.Name(), "err", err.Error())
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	docs := []bson.M{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	return docs, nil
}

// UpdateOne merges fields into the document with the given _id and reports whether it changed.
func (s *MongoStore) UpdateOne(ctx context.Context, id any, fields bson.M) (bool, error) {
	res, err := s.collection.UpdateOne(ctx, bson.M{FieldID: id}, bson.M{"$set": fields})
	if err != nil {
		s.logger.Error("could not update document", "collection", s.collection.Name(), "id", id, "err", err.Error())
		return false, fmt.Errorf("mongo update: %w", err)
	}

	if res.ModifiedCount > 0 {
		s.logger.Info("document updated", "collection", s.collection.Name(), "id", id)
		return true, nil
	}
	s.logger.Info("no document was updated", "collection", s.collection.Name(), "id", id, "matched", res.MatchedCount)
	return false, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Error("could not disconnect from mongodb", "err", err.Error())
		return err
	}
	return nil
}
