package importer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/claude/swimlaps/internal/ingest"
)

// ArchiveEntry is one export document read out of a zip archive.
type ArchiveEntry struct {
	Name   string
	Format ingest.Format
	Data   []byte
}

// ReadArchive opens a zip export in memory and returns the document inside it.
// An entry named like the archive ("swim.zip" holds "swim.json") is preferred,
// then a single JSON entry, then Apple's "export.xml".
func ReadArchive(archivePath string) (*ArchiveEntry, error) {
	raw, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", filepath.Base(archivePath), err)
	}

	base := filepath.Base(archivePath)
	want := strings.TrimSuffix(base, filepath.Ext(base)) + ".json"

	var named, export *zip.File
	var jsons []*zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		name := path.Base(f.Name)
		switch {
		case name == want:
			named = f
		case strings.EqualFold(path.Ext(name), ".json"):
			jsons = append(jsons, f)
		case name == "export.xml":
			export = f
		}
	}

	var pick *zip.File
	switch {
	case named != nil:
		pick = named
	case len(jsons) == 1:
		pick = jsons[0]
	case len(jsons) > 1:
		return nil, fmt.Errorf("archive %s holds %d JSON documents and none is named %s", base, len(jsons), want)
	case export != nil:
		pick = export
	default:
		return nil, fmt.Errorf("archive %s holds no export document", base)
	}

	rc, err := pick.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", pick.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", pick.Name, err)
	}

	format, err := ingest.DetectFormat(pick.Name)
	if err != nil {
		return nil, err
	}
	return &ArchiveEntry{Name: pick.Name, Format: format, Data: data}, nil
}
