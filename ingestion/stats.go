package ingestion

import "strings"

const (
	previewHeaderLimit    = 10
	previewParagraphLimit = 5
)

// CountWords returns the number of whitespace separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Summarize computes the summary counts for content. It has no side effects.
func Summarize(content ExtractedContent) Summary {
	summary := Summary{
		PagesCount:      len(content.Pages),
		ParagraphsCount: len(content.Paragraphs),
		TablesCount:     len(content.Tables),
		HeadersCount:    len(content.Headers),
	}

	for _, paragraph := range content.Paragraphs {
		summary.TotalWords += CountWords(paragraph.Text)
	}

	for _, table := range content.Tables {
		for _, row := range table.Rows {
			for _, cell := range row.Cells {
				summary.TableWords += CountWords(cell.Value)
			}
		}
	}

	return summary
}

// Preview returns the first page, the first header texts and the first
// paragraph texts of content. Missing values are empty, never nil.
func Preview(content ExtractedContent) ContentPreview {
	preview := ContentPreview{
		Headers:         make([]string, 0, min(len(content.Headers), previewHeaderLimit)),
		FirstParagraphs: make([]string, 0, min(len(content.Paragraphs), previewParagraphLimit)),
	}

	if len(content.Pages) > 0 {
		preview.FirstPageContent = content.Pages[0].Content
	}
	for _, header := range content.Headers[:min(len(content.Headers), previewHeaderLimit)] {
		preview.Headers = append(preview.Headers, header.Text)
	}
	for _, paragraph := range content.Paragraphs[:min(len(content.Paragraphs), previewParagraphLimit)] {
		preview.FirstParagraphs = append(preview.FirstParagraphs, paragraph.Text)
	}

	return preview
}
