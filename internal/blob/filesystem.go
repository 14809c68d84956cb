package blob

import (
	"checkqc/internal/infra/blob/fs"
)

// NewFilesystem constructs a Store over an existing directory, typically the
// directory that holds run folders.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
