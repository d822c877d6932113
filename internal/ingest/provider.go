package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the layout of an export file.
type Format string

const (
	FormatXML     Format = "xml"
	FormatJSON    Format = "json"
	FormatArchive Format = "zip"
)

// ErrUnknownFormat is returned for inputs whose extension names no known format.
var ErrUnknownFormat = errors.New("unknown export format")

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".json":
		return FormatJSON, nil
	case ".zip":
		return FormatArchive, nil
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownFormat)
}
