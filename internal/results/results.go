// Package results persists a document's extracted records as a timestamped
// JSON/CSV pair, one pair per source PDF.
package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rheese/tablescan/internal/errdefs"
	"github.com/rheese/tablescan/internal/types"
)

const timestampLayout = "20060102_150405"

// Written reports where one document's results landed.
type Written struct {
	JSONPath string
	CSVPath  string
	Records  int
}

// Writer serializes result sets into an output directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores set as <stem>_<timestamp>.json and .csv, where stem is the
// source PDF's basename. The directory is created on first use. An empty set
// still produces both files so a processed document always leaves a trace.
func (w *Writer) Write(set types.ResultSet, pdfPath string) (*Written, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, errdefs.Wrap(errdefs.KindIO, err, "failed to create output directory")
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	timestamp := time.Now().Format(timestampLayout)

	out := &Written{
		JSONPath: filepath.Join(w.dir, fmt.Sprintf("%s_%s.json", stem, timestamp)),
		CSVPath:  filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", stem, timestamp)),
		Records:  len(set),
	}

	if err := w.writeJSON(set, out.JSONPath); err != nil {
		return nil, err
	}
	if err := w.writeCSV(set, out.CSVPath); err != nil {
		return nil, err
	}

	w.logger.Info("results written",
		"source", filepath.Base(pdfPath),
		"records", len(set),
		"pages", set.Pages(),
		"json", out.JSONPath,
		"csv", out.CSVPath)

	return out, nil
}

func (w *Writer) writeJSON(set types.ResultSet, path string) error {
	if set == nil {
		// An empty document serializes as [], not null.
		set = types.ResultSet{}
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to encode results")
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to write JSON results")
	}
	return nil
}

func (w *Writer) writeCSV(set types.ResultSet, path string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// The error column only appears when some record actually carries one,
	// so clean runs produce a clean two-column file.
	withErrors := set.HasErrors()

	header := []string{"title", "page_number"}
	if withErrors {
		header = append(header, "error")
	}
	if err := cw.Write(header); err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to write CSV header")
	}

	for i, rec := range set {
		row := []string{rec.Title, strconv.Itoa(rec.PageNumber)}
		if withErrors {
			row = append(row, rec.Error)
		}
		if err := cw.Write(row); err != nil {
			return errdefs.Wrap(errdefs.KindIO, err, fmt.Sprintf("failed to write CSV row %d", i))
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to flush CSV")
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errdefs.Wrap(errdefs.KindIO, err, "failed to write CSV results")
	}
	return nil
}
