package blob

import (
	"context"

	infraS3 "elaspicdb/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration type.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}

// OpenS3URL constructs an S3 store for an s3://bucket/prefix location.
// Region, endpoint and path style come from ELASPIC_ARCHIVE_S3_* variables;
// credentials from the default AWS chain.
func OpenS3URL(ctx context.Context, location string) (Store, error) {
	cfg, err := infraS3.ConfigFromURL(location)
	if err != nil {
		return nil, err
	}
	return infraS3.New(ctx, cfg)
}

// NewMockS3ForTests exposes the lightweight in-memory mock for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
