package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

type DB interface {
	InsertOne(ctx context.Context, item any, ignoreDuplicates bool) (any, error)
	InsertMany(ctx context.Context, items []any, ignoreDuplicates bool) ([]any, error)
	FindOne(ctx context.Context, filter bson.M) (bson.M, error)
	FindMany(ctx context.Context, filter bson.M, limit int64) ([]bson.M, error)
	UpdateOne(ctx context.Context, id any, fields bson.M) (bool, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
