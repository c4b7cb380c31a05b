package retrieval

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/preepi/recordings/internal/domain/catalog"
	"github.com/preepi/recordings/internal/platform/apperror"
	"github.com/preepi/recordings/internal/platform/auth"
	"github.com/preepi/recordings/internal/platform/fileshare"
)

// copyBufferSize is the chunk size used when pumping file bytes from the
// share into the response.
const copyBufferSize = 4096

// Service resolves record identifiers, applies the access policy and streams
// file content. Policy decisions are made before any byte is pulled from the
// share, so a denied request never touches file content.
type Service struct {
	records catalog.RecordStore
	share   fileshare.Share
}

func NewService(records catalog.RecordStore, share fileshare.Share) *Service {
	return &Service{records: records, share: share}
}

// Resolve looks up a single record and checks the access policy. The caller
// receives metadata only; no share handle is opened yet.
func (s *Service) Resolve(ctx context.Context, p *auth.Principal, recordID int64) (*catalog.Record, error) {
	rec, err := s.records.RecordByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, catalog.ErrRecordNotFound) {
			return nil, apperror.NotFound("record_id not found")
		}
		return nil, apperror.Internal("record lookup failed", err)
	}
	if !Permitted(p, rec.Modality) {
		return nil, apperror.Forbidden("not allowed to access this record")
	}
	return rec, nil
}

// ResolveMany looks up every requested record in one query and checks the
// access policy across the whole set. Unknown identifiers are skipped;
// NotFound is returned only when nothing resolves. A single denied record
// fails the whole set before streaming can begin. Records come back in
// request order.
func (s *Service) ResolveMany(ctx context.Context, p *auth.Principal, ids []int64) ([]*catalog.Record, error) {
	if len(ids) == 0 {
		return nil, apperror.InvalidArgument("record_ids is required")
	}

	found, err := s.records.RecordsByIDs(ctx, ids)
	if err != nil {
		return nil, apperror.Internal("record lookup failed", err)
	}

	byID := make(map[int64]*catalog.Record, len(found))
	for _, rec := range found {
		byID[rec.ID] = rec
	}

	records := make([]*catalog.Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		if !Permitted(p, rec.Modality) {
			return nil, apperror.Forbidden(fmt.Sprintf("not allowed to access record %d", id))
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, apperror.NotFound("no records found for the given ids")
	}
	return records, nil
}

// Open opens the record's file on the share. Callers own the returned stream
// and must close it.
func (s *Service) Open(ctx context.Context, rec *catalog.Record) (io.ReadCloser, error) {
	rc, err := s.share.Open(ctx, fileshare.Join(rec.SharePath, rec.File()))
	if err != nil {
		if errors.Is(err, fileshare.ErrNotFound) {
			return nil, apperror.NotFound("file missing on the share")
		}
		return nil, apperror.Internal("file share open failed", err)
	}
	return rc, nil
}

// WriteArchive streams the records into w as a zip archive. Files are added
// sequentially: each share handle is opened only when the previous file has
// been fully copied and closed, so at most one handle is live at a time.
// Compression is disabled since the recordings are already binary-packed.
func (s *Service) WriteArchive(ctx context.Context, w io.Writer, records []*catalog.Record) error {
	zw := zip.NewWriter(w)
	buf := make([]byte, copyBufferSize)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.addArchiveFile(ctx, zw, rec, buf); err != nil {
			return fmt.Errorf("archive %s: %w", rec.File(), err)
		}
	}
	return zw.Close()
}

func (s *Service) addArchiveFile(ctx context.Context, zw *zip.Writer, rec *catalog.Record, buf []byte) error {
	path := fileshare.Join(rec.SharePath, rec.File())
	rc, err := s.share.Open(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close()

	// Member names keep the record's relative path, slash-separated, so
	// files from different patients cannot collide in the archive.
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   strings.ReplaceAll(path, `\`, "/"),
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.CopyBuffer(fw, rc, buf)
	return err
}
