// Package runfolder gives access to the documents of one sequencing run
// folder stored behind a blob.Store.
package runfolder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"checkqc/internal/blob"
)

// Well-known run folder documents.
const (
	DemultiplexStats   = "Reports/Demultiplex_Stats.csv"
	QualityMetrics     = "Reports/Quality_Metrics.csv"
	TopUnknownBarcodes = "Reports/Top_Unknown_Barcodes.csv"
	SampleSheet        = "SampleSheet.csv"
	// ArchiveDir holds rendered reports written back into the run folder.
	ArchiveDir = "checkqc"
)

// Folder is one run folder: a key prefix inside a blob store.
type Folder struct {
	store  blob.Store
	prefix string
}

// New returns the run folder at prefix. Leading and trailing slashes are
// ignored; an empty prefix means the store root is the run folder.
func New(store blob.Store, prefix string) (*Folder, error) {
	if store == nil {
		return nil, errors.New("runfolder: nil blob store")
	}
	clean := strings.Trim(path.Clean("/"+strings.TrimSpace(prefix)), "/")
	return &Folder{store: store, prefix: clean}, nil
}

// Name is the last path element of the run folder, usually the run id.
func (f *Folder) Name() string {
	if f.prefix == "" {
		return ""
	}
	return path.Base(f.prefix)
}

// Path is the run folder prefix inside the store.
func (f *Folder) Path() string { return f.prefix }

func (f *Folder) key(name string) string {
	if f.prefix == "" {
		return name
	}
	return f.prefix + "/" + name
}

// Open returns a reader over a document of the run folder. It satisfies
// runtype.DocumentSource.
func (f *Folder) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	_, rc, err := f.store.Get(ctx, f.key(name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return rc, nil
}

// Exists reports whether the run folder contains the document.
func (f *Folder) Exists(ctx context.Context, name string) (bool, error) {
	_, err := f.store.Head(ctx, f.key(name))
	if errors.Is(err, blob.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns the documents below dir, relative to the run folder.
func (f *Folder) List(ctx context.Context, dir string) ([]string, error) {
	prefix := f.key(strings.Trim(dir, "/"))
	if !strings.HasSuffix(prefix, "/") && prefix != "" {
		prefix += "/"
	}
	infos, err := f.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, strings.TrimPrefix(info.Key, f.key("")))
	}
	return names, nil
}

// Archive writes a rendered report into the run folder's checkqc directory
// and returns the key it was stored under. Existing archives are never
// overwritten.
func (f *Folder) Archive(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := f.key(ArchiveDir + "/" + name)
	if _, err := f.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("archive %s: %w", name, err)
	}
	return key, nil
}
