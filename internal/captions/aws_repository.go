package captions

import (
	"context"
	"io"
	"time"
)

// AWSRepository mirrors assembled caption tracks to an S3-compatible
// bucket so a cache can be shared between machines. Optional.
type AWSRepository interface {
	UploadTrack(ctx context.Context, key string, body io.Reader) error
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
