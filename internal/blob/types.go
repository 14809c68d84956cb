// Package blob re-exports the blob store abstraction and selects a backend.
// Packages outside the blob tree depend on this package, never on the infra
// implementations.
package blob

import (
	"checkqc/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local directory driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrNotFound is returned (wrapped) for missing keys by every driver.
var ErrNotFound = core.ErrNotFound
