// Package normalize turns raw model text into table records. The model is
// asked for a JSON array but routinely wraps it in markdown fences, returns a
// bare object, or returns something else entirely; normalization absorbs all
// of that. It never fails: a page that cannot be decoded becomes a single
// record describing the problem.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/rheese/tablescan/internal/prompts/titles"
	"github.com/rheese/tablescan/internal/types"
)

var responseSchema = mustCompileResponseSchema()

func mustCompileResponseSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("titles.json", strings.NewReader(titles.ResponseSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("titles.json")
}

// Normalize converts one page's raw model response into records. pageNumber
// always wins over whatever page the model reported; model output is not
// trusted for positioning.
func Normalize(raw string, pageNumber int) types.ResultSet {
	if raw == "" {
		return types.ResultSet{{
			Title:      types.DefaultTitle,
			PageNumber: pageNumber,
			Error:      "Empty response from model",
		}}
	}

	// Strip markdown code fence markers wherever they appear, the way the
	// prompt tells the model not to emit them but it sometimes does anyway.
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return types.ResultSet{parseFailure(pageNumber, err.Error())}
	}

	// Well-formed payloads decode straight into records; everything else
	// goes through field-by-field coercion.
	if err := responseSchema.Validate(doc); err == nil {
		if set, ok := decodeStrict(cleaned, pageNumber); ok {
			return set
		}
	}

	return coerce(doc, pageNumber)
}

// ErrorRecord builds the record a page collapses to when the inference call
// itself failed.
func ErrorRecord(pageNumber int, err error) types.TableRecord {
	return types.TableRecord{
		Title:      types.DefaultTitle,
		PageNumber: pageNumber,
		Error:      fmt.Sprintf("Error processing page: %v", err),
	}
}

func parseFailure(pageNumber int, detail string) types.TableRecord {
	return types.TableRecord{
		Title:      types.DefaultTitle,
		PageNumber: pageNumber,
		Error:      "Invalid JSON response: " + detail,
	}
}

// decodeStrict handles payloads that already match the response contract.
func decodeStrict(cleaned string, pageNumber int) (types.ResultSet, bool) {
	var set types.ResultSet
	if err := json.Unmarshal([]byte(cleaned), &set); err != nil {
		return nil, false
	}
	for i := range set {
		if set[i].Title == "" {
			set[i].Title = types.DefaultTitle
		}
		set[i].PageNumber = pageNumber
	}
	return set, true
}

// coerce salvages records from JSON that parsed but does not match the
// contract: a bare object, entries with missing or mistyped fields.
func coerce(doc any, pageNumber int) types.ResultSet {
	switch v := doc.(type) {
	case []any:
		set := make(types.ResultSet, 0, len(v))
		for i, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				return types.ResultSet{parseFailure(pageNumber, fmt.Sprintf("entry %d is not an object", i))}
			}
			set = append(set, recordFromMap(obj, pageNumber))
		}
		return set
	case map[string]any:
		// A lone object is treated as a one-element array.
		return types.ResultSet{recordFromMap(v, pageNumber)}
	default:
		return types.ResultSet{parseFailure(pageNumber, "expected array or object, got "+jsonTypeName(doc))}
	}
}

func recordFromMap(entry map[string]any, pageNumber int) types.TableRecord {
	rec := types.TableRecord{
		Title:      types.DefaultTitle,
		PageNumber: pageNumber,
	}
	if title, ok := entry["title"].(string); ok && title != "" {
		rec.Title = title
	}
	if msg, ok := entry["error"].(string); ok && msg != "" {
		rec.Error = msg
	}
	return rec
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
