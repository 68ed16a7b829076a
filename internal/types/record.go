// Package types provides shared types used across multiple packages.
// This package has no dependencies on other tablescan packages to avoid import cycles.
package types

// DefaultTitle is substituted when the model omits a table title.
const DefaultTitle = "Unknown"

// TableRecord is one detected table title on one page.
// PageNumber always reflects the page the record was derived from,
// regardless of what the model reported.
type TableRecord struct {
	Title      string `json:"title"`
	PageNumber int    `json:"page_number"`
	Error      string `json:"error,omitempty"`
}

// ResultSet is the ordered collection of table records for one source document.
// Order follows page order, then detection order within a page.
type ResultSet []TableRecord

// HasErrors reports whether any record carries an error annotation.
func (s ResultSet) HasErrors() bool {
	for _, r := range s {
		if r.Error != "" {
			return true
		}
	}
	return false
}

// Pages returns the number of distinct pages represented in the set.
func (s ResultSet) Pages() int {
	seen := make(map[int]struct{}, len(s))
	for _, r := range s {
		seen[r.PageNumber] = struct{}{}
	}
	return len(seen)
}
