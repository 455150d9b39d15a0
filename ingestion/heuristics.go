package ingestion

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Heading and table detection below are heuristics. False positives and
// negatives are expected; tune them here without touching the pipeline.

const (
	headingStylePrefix   = "Heading"
	maxPDFHeadingLength  = 100
	minPDFHeadingLength  = 2
	minPDFTableRunLength = 2
)

// HeadingLevel reports whether a DOCX style name marks a heading and its level.
// The level is the trailing integer token of the name ("Heading 2" -> 2) and
// defaults to 1 when that token is missing or not a positive integer.
func HeadingLevel(style string) (int, bool) {
	if !strings.HasPrefix(style, headingStylePrefix) {
		return 0, false
	}

	fields := strings.Fields(strings.TrimPrefix(style, headingStylePrefix))
	if len(fields) == 0 {
		return 1, true
	}

	level, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || level < 1 {
		return 1, true
	}
	return level, true
}

// LooksLikePDFHeading reports whether a PDF paragraph candidate reads as a heading:
// entirely upper-case, between 2 and 99 characters, and made only of letters,
// digits, whitespace and the punctuation ": - ,".
func LooksLikePDFHeading(text string) bool {
	length := utf8.RuneCountInString(text)
	if length < minPDFHeadingLength || length >= maxPDFHeadingLength {
		return false
	}

	cased := false
	for _, r := range text {
		switch {
		case unicode.IsLower(r) || unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		case r == ':' || r == '-' || r == ',':
		default:
			return false
		}
	}
	return cased
}

// IsTableLine reports whether a PDF text line is a candidate table row:
// it contains a tab or two consecutive spaces.
func IsTableLine(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	return strings.Contains(line, "\t") || strings.Contains(line, "  ")
}

// DetectTables is a best-effort scan of PDF page text for tables. Runs of at
// least two consecutive candidate lines form one table; each line is split on
// whitespace into cells. Any other line, or the end of the text, closes a run.
func DetectTables(text string) []TableGrid {
	var (
		tables []TableGrid
		run    TableGrid
	)

	closeRun := func() {
		if len(run) >= minPDFTableRunLength {
			tables = append(tables, run)
		}
		run = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if !IsTableLine(line) {
			closeRun()
			continue
		}
		run = append(run, strings.Fields(line))
	}
	closeRun()

	return tables
}
