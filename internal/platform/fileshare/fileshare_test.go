package fileshare

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"simple", []string{"PAT1", "session1", "eeg.edf"}, `PAT1\session1\eeg.edf`},
		{"skips empty", []string{"PAT1", "", "eeg.edf"}, `PAT1\eeg.edf`},
		{"trims separators", []string{`\PAT1\`, `video.avi`}, `PAT1\video.avi`},
		{"single", []string{"report.pdf"}, "report.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Join(tt.segments...); got != tt.want {
				t.Errorf("Join() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirShare_OpenAndList(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "PAT1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "PAT1", "eeg.edf"), []byte("signal"), 0o644); err != nil {
		t.Fatal(err)
	}

	share := NewDirShare(root)
	ctx := context.Background()

	rc, err := share.Open(ctx, `PAT1\eeg.edf`)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "signal" {
		t.Errorf("content = %q, want %q", content, "signal")
	}

	entries, err := share.List(ctx, "PAT1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "eeg.edf" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestDirShare_NotFound(t *testing.T) {
	share := NewDirShare(t.TempDir())
	_, err := share.Open(context.Background(), `PAT9\missing.edf`)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDirShare_RefusesEscape(t *testing.T) {
	share := NewDirShare(t.TempDir())
	_, err := share.Open(context.Background(), `..\..\etc\passwd`)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for path escape, got %v", err)
	}
}

func TestMemShare(t *testing.T) {
	share := NewMemShare()
	share.Put(`PAT1\session1\eeg.edf`, []byte("signal"))
	share.Put(`PAT1\session1\video.avi`, []byte("frames"))
	ctx := context.Background()

	rc, err := share.Open(ctx, `PAT1\session1\eeg.edf`)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if string(content) != "signal" {
		t.Errorf("content = %q", content)
	}

	if _, err := share.Open(ctx, `PAT1\missing`); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	entries, err := share.List(ctx, `PAT1\session1`)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	sort.Strings(names)
	want := []string{"eeg.edf", "video.avi"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("List names = %v, want %v", names, want)
	}

	// Listing the patient level shows the session directory.
	entries, err = share.List(ctx, "PAT1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsDir || entries[0].Name != "session1" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}
