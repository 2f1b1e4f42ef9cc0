package blob

import (
	"context"
	"fmt"
	"strings"
)

// Open selects a blob.Store implementation for an archive location:
//
//	s3://bucket/prefix  S3 / MinIO bucket (settings documented in s3.go)
//	memory://           in-memory store, for tests
//	anything else       filesystem directory, created when missing
func Open(ctx context.Context, location string) (Store, error) {
	switch {
	case strings.TrimSpace(location) == "":
		return nil, fmt.Errorf("archive location required")
	case strings.HasPrefix(location, "s3://"):
		return OpenS3URL(ctx, location)
	case location == "memory://":
		return NewMemory(), nil
	default:
		return NewFilesystem(strings.TrimPrefix(location, "file://"))
	}
}
