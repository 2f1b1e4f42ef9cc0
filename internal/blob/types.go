// Package blob re-exports core blob abstractions for stable external imports
// and selects the archive driver for a configured location.
package blob

import (
	"elaspicdb/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the archive directory driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound is wrapped by every driver for missing keys.
	ErrNotFound = core.ErrNotFound
	// ErrExists is wrapped when a create-only Put hits an existing key.
	ErrExists = core.ErrExists
)

// ContentTypeFor maps an archive file name onto its content type.
func ContentTypeFor(name string) string { return core.ContentTypeFor(name) }
