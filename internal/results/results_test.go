package results

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/rheese/tablescan/internal/errdefs"
	"github.com/rheese/tablescan/internal/types"
)

func TestWriter_Write(t *testing.T) {
	t.Run("round-trips records through JSON", func(t *testing.T) {
		w := NewWriter(t.TempDir(), nil)

		set := types.ResultSet{
			{Title: "Revenue by Region", PageNumber: 1},
			{Title: "Unknown", PageNumber: 2, Error: "Empty response from model"},
		}

		written, err := w.Write(set, filepath.Join("input", "q3-report.pdf"))
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if written.Records != 2 {
			t.Errorf("Records = %d, want 2", written.Records)
		}

		data, err := os.ReadFile(written.JSONPath)
		if err != nil {
			t.Fatalf("read JSON output: %v", err)
		}

		var got types.ResultSet
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal output: %v", err)
		}
		if !reflect.DeepEqual(got, set) {
			t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", got, set)
		}
	})

	t.Run("filenames carry stem and timestamp", func(t *testing.T) {
		w := NewWriter(t.TempDir(), nil)

		written, err := w.Write(types.ResultSet{{Title: "T", PageNumber: 1}}, "/data/in/annual_report.pdf")
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		jsonName := filepath.Base(written.JSONPath)
		csvName := filepath.Base(written.CSVPath)

		pattern := regexp.MustCompile(`^annual_report_\d{8}_\d{6}\.(json|csv)$`)
		if !pattern.MatchString(jsonName) {
			t.Errorf("JSON filename %q does not match <stem>_<timestamp>", jsonName)
		}
		if !pattern.MatchString(csvName) {
			t.Errorf("CSV filename %q does not match <stem>_<timestamp>", csvName)
		}
		if strings.TrimSuffix(jsonName, ".json") != strings.TrimSuffix(csvName, ".csv") {
			t.Errorf("JSON and CSV names disagree: %q vs %q", jsonName, csvName)
		}
	})

	t.Run("creates the output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		w := NewWriter(dir, nil)

		if _, err := w.Write(types.ResultSet{}, "doc.pdf"); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("output directory was not created: %v", err)
		}
	})

	t.Run("empty set writes an empty JSON array", func(t *testing.T) {
		w := NewWriter(t.TempDir(), nil)

		written, err := w.Write(nil, "doc.pdf")
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		data, err := os.ReadFile(written.JSONPath)
		if err != nil {
			t.Fatalf("read JSON output: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("JSON output = %q, want []", string(data))
		}
	})

	t.Run("CSV omits error column on clean runs", func(t *testing.T) {
		w := NewWriter(t.TempDir(), nil)

		set := types.ResultSet{
			{Title: "Revenue, Net", PageNumber: 1},
			{Title: "Costs", PageNumber: 2},
		}
		written, err := w.Write(set, "doc.pdf")
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		rows := readCSV(t, written.CSVPath)
		if len(rows) != 3 {
			t.Fatalf("expected header + 2 rows, got %d", len(rows))
		}
		if !reflect.DeepEqual(rows[0], []string{"title", "page_number"}) {
			t.Errorf("header = %v", rows[0])
		}
		if !reflect.DeepEqual(rows[1], []string{"Revenue, Net", "1"}) {
			t.Errorf("row 1 = %v", rows[1])
		}
	})

	t.Run("CSV includes error column when any record failed", func(t *testing.T) {
		w := NewWriter(t.TempDir(), nil)

		set := types.ResultSet{
			{Title: "Revenue", PageNumber: 1},
			{Title: "Unknown", PageNumber: 2, Error: "Invalid JSON response: unexpected end of JSON input"},
		}
		written, err := w.Write(set, "doc.pdf")
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		rows := readCSV(t, written.CSVPath)
		if !reflect.DeepEqual(rows[0], []string{"title", "page_number", "error"}) {
			t.Errorf("header = %v", rows[0])
		}
		if rows[1][2] != "" {
			t.Errorf("clean record should have empty error cell, got %q", rows[1][2])
		}
		if rows[2][2] != "Invalid JSON response: unexpected end of JSON input" {
			t.Errorf("error cell = %q", rows[2][2])
		}
	})

	t.Run("unwritable directory is an IO error", func(t *testing.T) {
		parent := t.TempDir()
		blocked := filepath.Join(parent, "blocked")
		if err := os.WriteFile(blocked, []byte("not a dir"), 0o644); err != nil {
			t.Fatal(err)
		}

		w := NewWriter(filepath.Join(blocked, "out"), nil)
		_, err := w.Write(types.ResultSet{{Title: "T", PageNumber: 1}}, "doc.pdf")
		if err == nil {
			t.Fatal("expected error writing under a file")
		}
		if !errdefs.IsIO(err) {
			t.Errorf("expected IO kind, got %v", errdefs.KindOf(err))
		}
	})
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open CSV output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV output: %v", err)
	}
	return rows
}
