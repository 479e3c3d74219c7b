package archive

import (
	"context"
	"fmt"

	"github.com/meghashyamc/coursefetch/config"
	"github.com/meghashyamc/coursefetch/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const contentTypePDF = "application/pdf"

type Archive interface {
	Upload(ctx context.Context, documentID string, path string) (string, error)
}

// MinioArchive keeps a copy of each raw PDF before the local file is removed.
type MinioArchive struct {
	client *minio.Client
	bucket string
	logger logger.Logger
}

// New returns nil, nil when no endpoint is configured.
func New(ctx context.Context, logger logger.Logger, cfg *config.Config) (*MinioArchive, error) {
	endpoint := cfg.GetMinioEndpoint()
	if len(endpoint) == 0 {
		return nil, nil
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinioAccessKey(), cfg.GetMinioSecretKey(), ""),
		Secure: cfg.GetMinioUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	bucket := cfg.GetMinioBucket()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
		logger.Info("created archive bucket", "bucket", bucket)
	}

	return &MinioArchive{client: client, bucket: bucket, logger: logger}, nil
}

func ObjectKey(documentID string) string {
	return documentID + ".pdf"
}

// Upload stores the file at path under <documentID>.pdf and returns the object key.
func (a *MinioArchive) Upload(ctx context.Context, documentID string, path string) (string, error) {
	key := ObjectKey(documentID)
	info, err := a.client.FPutObject(ctx, a.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentTypePDF,
	})
	if err != nil {
		a.logger.Error("could not archive file", "bucket", a.bucket, "key", key, "err", err.Error())
		return "", fmt.Errorf("minio upload: %w", err)
	}

	a.logger.Debug("archived file", "bucket", a.bucket, "key", key, "size", info.Size)
	return key, nil
}
