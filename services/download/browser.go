package download

import (
	"context"
	"time"
)

// Browser is the part of a browser session the download flow drives.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	ClickWhenReady(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}
