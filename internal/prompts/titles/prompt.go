// Package titles holds the fixed instruction sent with every page image.
// The same prompt is used for every page and every provider; page context
// only enters through the normalizer, never through prompt templating.
package titles

import (
	_ "embed"
)

//go:embed prompt.txt
var extractionPrompt string

// Prompt returns the table title extraction instruction.
func Prompt() string {
	return extractionPrompt
}
