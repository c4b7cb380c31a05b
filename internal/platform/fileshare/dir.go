package fileshare

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirShare serves files from a local directory. Used in development and as
// the fixture backend in tests.
type DirShare struct {
	root string
}

func NewDirShare(root string) *DirShare {
	return &DirShare{root: root}
}

// resolve maps a backslash share path onto the root directory, refusing paths
// that would escape it.
func (d *DirShare) resolve(path string) (string, error) {
	rel := filepath.FromSlash(toSlash(path))
	full := filepath.Join(d.root, rel)
	if !strings.HasPrefix(full, filepath.Clean(d.root)+string(os.PathSeparator)) && full != filepath.Clean(d.root) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return full, nil
}

func (d *DirShare) Open(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, path, err)
	}
	return f, nil
}

func (d *DirShare) List(_ context.Context, path string) ([]Entry, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: list %s: %v", ErrUnavailable, path, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		e := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil {
			e.Size = info.Size()
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// MemShare is a thread-safe, in-memory Share for tests.
type MemShare struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemShare() *MemShare {
	return &MemShare{files: make(map[string][]byte)}
}

// Put stores content under a backslash share path.
func (m *MemShare) Put(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[toSlash(path)] = content
}

func (m *MemShare) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	content, ok := m.files[toSlash(path)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return io.NopCloser(strings.NewReader(string(content))), nil
}

func (m *MemShare) List(_ context.Context, path string) ([]Entry, error) {
	prefix := toSlash(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]Entry)
	for key, content := range m.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[rest[:i]] = Entry{Name: rest[:i], IsDir: true}
		} else {
			seen[rest] = Entry{Name: rest, Size: int64(len(content))}
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	entries := make([]Entry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	return entries, nil
}
