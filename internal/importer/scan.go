package importer

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/preepi/recordings/internal/domain/catalog"
	"github.com/preepi/recordings/internal/platform/fileshare"
)

// modalityByExtension classifies a file by its extension, the convention the
// hospital follows when exporting recordings to the share.
var modalityByExtension = map[string]catalog.Modality{}

func init() {
	exts := map[catalog.Modality][]string{
		catalog.ModalityHospitalVideo: {".mpe", ".wmv", ".avi"},
		catalog.ModalityHospitalEEG: {
			".vhdr", ".vmrk", ".eeg", ".edf", ".bdf", ".gdf", ".cnt", ".egi",
			".mff", ".set", ".fdt", ".data", ".nxe", ".lay", ".dat", ".21e",
			".pnt", ".log", ".xdf", ".xdfz", ".trc",
		},
		catalog.ModalityWearable: {".txt"},
		catalog.ModalityReport:   {".doc", ".docx", ".pdf"},
	}
	for m, list := range exts {
		for _, ext := range list {
			modalityByExtension[ext] = m
		}
	}
}

// Records scans the share and inserts a records row per recognized file. The
// layout is one directory per patient code, with recording files grouped in
// subdirectories. Files with an unrecognized extension are skipped.
func (imp *Importer) Records(ctx context.Context) (Result, error) {
	var res Result

	patients, err := imp.share.List(ctx, "")
	if err != nil {
		return res, err
	}

	for _, patient := range patients {
		if !patient.IsDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := imp.scanPatient(ctx, patient.Name, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (imp *Importer) scanPatient(ctx context.Context, code string, res *Result) error {
	sessionID, err := imp.store.FirstSessionIDByPatient(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			imp.log.Warn().Str("patient_code", code).Msg("skipping share directory without a session")
			return nil
		}
		return err
	}

	dirs, err := imp.share.List(ctx, code)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		if !dir.IsDir {
			continue
		}
		sharePath := fileshare.Join(code, dir.Name)

		files, err := imp.share.List(ctx, sharePath)
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.IsDir {
				continue
			}

			ext := strings.ToLower(path.Ext(file.Name))
			modality, ok := modalityByExtension[ext]
			if !ok {
				imp.log.Warn().Str("file", file.Name).Msg("skipping file with unknown extension")
				res.Skipped++
				continue
			}

			rec := &catalog.Record{
				SessionID:     sessionID,
				Modality:      modality,
				SharePath:     sharePath,
				FileName:      strings.TrimSuffix(file.Name, path.Ext(file.Name)),
				FileExtension: path.Ext(file.Name),
			}
			recordID, err := imp.store.InsertRecord(ctx, rec)
			if err != nil {
				imp.log.Error().Err(err).Str("file", file.Name).Msg("record insert failed")
				res.Skipped++
				continue
			}

			imp.log.Info().Int64("record_id", recordID).Str("file", file.Name).Msg("imported record")
			res.Imported++
		}
	}
	return nil
}
