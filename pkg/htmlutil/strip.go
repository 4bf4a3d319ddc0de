package htmlutil

import (
	"html"
	"regexp"
	"strings"
)

// tagPattern matches HTML tags including self-closing tags.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// multipleSpacesPattern matches multiple consecutive whitespace characters.
var multipleSpacesPattern = regexp.MustCompile(`\s{2,}`)

// blockEndPattern matches closing tags of block-level elements, which become
// newlines so identifier candidates split across paragraphs don't run
// together into one unparseable digit string.
var blockEndPattern = regexp.MustCompile(`(?i)</(?:p|div|li|h[1-6]|td|tr)>|<br\s*/?>`)

// StripTags removes all HTML/XHTML tags from a string and normalizes
// whitespace, preserving paragraph breaks as newlines.
func StripTags(markup string) string {
	if markup == "" {
		return ""
	}

	result := blockEndPattern.ReplaceAllString(markup, "\n")
	result = tagPattern.ReplaceAllString(result, "")
	result = html.UnescapeString(result)

	lines := strings.Split(result, "\n")
	cleaned := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(multipleSpacesPattern.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
