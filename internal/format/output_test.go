package format

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

func TestOutputTo(t *testing.T) {
	data := sample{Name: "report", Count: 3}

	t.Run("json is indented", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
			t.Fatalf("OutputTo failed: %v", err)
		}
		want := "{\n  \"name\": \"report\",\n  \"count\": 3\n}\n"
		if buf.String() != want {
			t.Errorf("unexpected json:\n%s", buf.String())
		}
	})

	t.Run("yaml uses two-space indent", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
			t.Fatalf("OutputTo failed: %v", err)
		}
		if !strings.Contains(buf.String(), "name: report\n") {
			t.Errorf("unexpected yaml:\n%s", buf.String())
		}
	})

	t.Run("unknown format fails", func(t *testing.T) {
		var buf bytes.Buffer
		if err := OutputTo(&buf, OutputFormat("xml"), data); err == nil {
			t.Error("expected an error for unknown format")
		}
	})
}

func TestSetOutputFormat(t *testing.T) {
	defer SetOutputFormat("yaml")

	SetOutputFormat("json")
	if got := GetOutputFormat(); got != OutputFormatJSON {
		t.Errorf("expected json, got %q", got)
	}

	SetOutputFormat("table")
	if got := GetOutputFormat(); got != DefaultOutput {
		t.Errorf("expected the default format, got %q", got)
	}
}
