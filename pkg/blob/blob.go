// Package blob is the storage boundary of the atlas build.
//
// Input masks and reference bitmaps are read from a [Store], and layer
// documents plus the aggregate metadata document are written to one. Keys are
// slash-separated relative paths ("coronal/parts/HYl/03.jpg"); each driver maps
// them onto its own namespace (a directory tree, an S3 prefix, a map).
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("blob: not found")

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
}

// Store reads and writes blobs by key.
//
// Put overwrites existing objects: the atlas build is re-run over the same
// output tree and each run replaces the previous artifacts.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error
	List(ctx context.Context, prefix string) ([]string, error)
	Driver() Driver
}

// Config selects and configures a Store.
type Config struct {
	Driver Driver `toml:"driver" json:"driver"`

	// Root is the directory for the fs driver.
	Root string `toml:"root" json:"root"`

	// S3 driver settings.
	Bucket    string `toml:"bucket" json:"bucket"`
	Prefix    string `toml:"prefix" json:"prefix"`
	Region    string `toml:"region" json:"region"`
	Endpoint  string `toml:"endpoint" json:"endpoint"`
	PathStyle bool   `toml:"pathStyle" json:"pathStyle"`
}

// Open constructs the Store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFileStore(cfg.Root)
	case DriverS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// ReadAll fetches key and returns its full contents.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// cleanKey rejects keys that would escape the store's namespace.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("blob: empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob: absolute key %q", key)
	}
	clean := path.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("blob: key %q escapes root", key)
	}
	return clean, nil
}
