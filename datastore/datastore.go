package datastore

import (
	"context"
	"io"
	"strings"

	"github.com/danthegoodman1/glueexport/gologger"
)

var (
	logger = gologger.NewLogger()
)

type (
	// DataStore is the object storage the exported files are written to
	DataStore interface {
		// IsFileStore is true when directories exist as real entries and must be created
		IsFileStore() bool
		Exists(ctx context.Context, path string) (bool, error)
		// Mkdir creates the directory and its parents. A concurrent creator may make it
		// return an error wrapping fs.ErrExist.
		Mkdir(ctx context.Context, path string) error
		// Create opens path for writing, the object is complete once Close returns nil
		Create(ctx context.Context, path string) (io.WriteCloser, error)
		Open(ctx context.Context, path string) (io.ReadCloser, error)
	}
)

// Join joins path segments with a single slash, keeping the scheme of the first segment intact
func Join(root string, segments ...string) string {
	out := strings.TrimRight(root, "/")
	for _, seg := range segments {
		seg = strings.Trim(seg, "/")
		if seg == "" {
			continue
		}
		out += "/" + seg
	}
	return out
}

// DirPath returns the path with exactly one trailing slash, the form the catalog expects for locations
func DirPath(path string) string {
	return strings.TrimRight(path, "/") + "/"
}
