// Package fileshare provides access to the remote file share holding the
// physical recording files. It defines the Share interface, backends for SMB
// and S3-compatible object storage, a local-directory backend for development,
// and an in-memory implementation for tests.
//
// Record paths are backslash-joined segments rooted at the configured share
// (the convention of the hospital file server); each backend translates that
// form to whatever its transport expects.
package fileshare

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	ErrNotFound    = errors.New("path not found on share")
	ErrUnavailable = errors.New("file share unavailable")
)

// Entry is a single directory entry returned by List.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Share is the file-share collaborator: open a file as a byte stream, list a
// directory. Implementations must be safe for concurrent use.
type Share interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, path string) ([]Entry, error)
}

// Join joins path segments with the share's backslash separator, skipping
// empty segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, `\`)
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, `\`)
}

// toSlash converts a backslash share path to a forward-slash path.
func toSlash(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}
