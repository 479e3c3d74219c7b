package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meghashyamc/coursefetch/logger"
)

// awaitFile polls dir until name shows up. A timeout of 0 waits until ctx is done.
func awaitFile(ctx context.Context, logger logger.Logger, dir string, name string, pollInterval time.Duration, timeout time.Duration) (string, error) {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		found, err := dirContains(dir, name)
		if err != nil {
			return "", err
		}
		if found {
			return filepath.Join(dir, name), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %s after %s", ErrDownloadTimeout, name, timeout)
		case <-ticker.C:
			logger.Debug("file not downloaded yet, waiting", "file", name)
		}
	}
}

func dirContains(dir string, name string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("could not list download directory: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == name {
			return true, nil
		}
	}
	return false, nil
}
