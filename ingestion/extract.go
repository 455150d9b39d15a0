package ingestion

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultPageChars is the character count at which a simulated DOCX page is flushed.
const DefaultPageChars = 3000

const pdfParagraphDelimiter = "\n\n"

// Extract converts primitive units into ExtractedContent using the algorithm
// for units.Format. pageChars only applies to DOCX; non-positive values use
// DefaultPageChars.
func Extract(units *Units, pageChars int) (ExtractedContent, error) {
	if units == nil {
		return ExtractedContent{}, fmt.Errorf("extract: no content units")
	}

	switch units.Format {
	case FormatDOCX:
		return ExtractDOCX(units.Blocks, units.Tables, pageChars), nil
	case FormatPDF:
		return ExtractPDF(units.Pages), nil
	default:
		return ExtractedContent{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(units.Format))
	}
}

// ExtractDOCX builds content from DOCX text blocks and table grids.
// Paragraph indices are dense over retained (non-blank) blocks. Pages are
// simulated by flushing the accumulated text once it reaches pageChars characters.
func ExtractDOCX(blocks []TextBlock, grids []TableGrid, pageChars int) ExtractedContent {
	if pageChars <= 0 {
		pageChars = DefaultPageChars
	}

	content := NewExtractedContent()
	pages := newPageSimulator(pageChars)

	for _, block := range blocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}

		index := len(content.Paragraphs)
		level, heading := HeadingLevel(block.Style)
		if heading {
			content.Headers = append(content.Headers, Header{Text: text, Level: level, Index: index})
		}
		content.Paragraphs = append(content.Paragraphs, Paragraph{Text: text, Index: index, IsHeading: heading})

		pages.add(text)
	}

	content.Pages = pages.finish()
	content.Tables = buildTables(grids, 0)
	return content
}

// ExtractPDF builds content from native PDF page texts. Each non-blank page
// becomes one Page; page numbers are assigned to retained pages only so that
// numbering has no gaps. Paragraph indices run across all pages.
func ExtractPDF(pageTexts []string) ExtractedContent {
	content := NewExtractedContent()

	for _, raw := range pageTexts {
		pageText := strings.TrimSpace(normalizePlainText(raw))
		if pageText == "" {
			continue
		}

		for _, candidate := range strings.Split(pageText, pdfParagraphDelimiter) {
			text := strings.TrimSpace(candidate)
			if text == "" {
				continue
			}

			index := len(content.Paragraphs)
			heading := LooksLikePDFHeading(text)
			if heading {
				content.Headers = append(content.Headers, Header{Text: text, Level: 1, Index: index})
			}
			content.Paragraphs = append(content.Paragraphs, Paragraph{Text: text, Index: index, IsHeading: heading})
		}

		content.Pages = append(content.Pages, Page{PageNumber: len(content.Pages) + 1, Content: pageText})
		content.Tables = append(content.Tables, buildTables(DetectTables(pageText), len(content.Tables))...)
	}

	return content
}

// buildTables numbers grids by position starting at offset, copying cells verbatim.
func buildTables(grids []TableGrid, offset int) []Table {
	tables := make([]Table, 0, len(grids))
	for i, grid := range grids {
		rows := make([]Row, 0, len(grid))
		for r, values := range grid {
			cells := make([]Cell, 0, len(values))
			for c, value := range values {
				cells = append(cells, Cell{CellIndex: c, Value: value})
			}
			rows = append(rows, Row{RowIndex: r, Cells: cells})
		}
		tables = append(tables, Table{TableIndex: offset + i, Rows: rows})
	}
	return tables
}

type pageSimulator struct {
	threshold int
	buffer    []string
	chars     int
	pages     []Page
}

func newPageSimulator(threshold int) *pageSimulator {
	return &pageSimulator{threshold: threshold, pages: []Page{}}
}

func (s *pageSimulator) add(text string) {
	s.buffer = append(s.buffer, text)
	s.chars += utf8.RuneCountInString(text)
	if s.chars >= s.threshold {
		s.flush()
	}
}

func (s *pageSimulator) flush() {
	if len(s.buffer) == 0 {
		return
	}
	s.pages = append(s.pages, Page{PageNumber: len(s.pages) + 1, Content: strings.Join(s.buffer, "\n")})
	s.buffer = s.buffer[:0]
	s.chars = 0
}

func (s *pageSimulator) finish() []Page {
	s.flush()
	return s.pages
}
