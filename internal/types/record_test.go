package types

import "testing"

func TestResultSet_HasErrors(t *testing.T) {
	clean := ResultSet{
		{Title: "Revenue", PageNumber: 1},
		{Title: "Expenses", PageNumber: 2},
	}
	if clean.HasErrors() {
		t.Error("expected no errors in a clean set")
	}

	withError := append(clean, TableRecord{
		Title:      DefaultTitle,
		PageNumber: 3,
		Error:      "Empty response from model",
	})
	if !withError.HasErrors() {
		t.Error("expected HasErrors to report the annotated record")
	}

	if (ResultSet{}).HasErrors() {
		t.Error("expected no errors in an empty set")
	}
}

func TestResultSet_Pages(t *testing.T) {
	set := ResultSet{
		{Title: "Revenue", PageNumber: 1},
		{Title: "Revenue Detail", PageNumber: 1},
		{Title: "Expenses", PageNumber: 4},
	}
	if got := set.Pages(); got != 2 {
		t.Errorf("expected 2 distinct pages, got %d", got)
	}

	if got := (ResultSet{}).Pages(); got != 0 {
		t.Errorf("expected 0 pages for an empty set, got %d", got)
	}
}
