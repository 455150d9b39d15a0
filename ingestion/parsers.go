package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// TextBlock is one body paragraph of a DOCX file with its paragraph style name.
type TextBlock struct {
	Text  string
	Style string
}

// TableGrid is a raw row/cell grid. Rows may have different lengths.
type TableGrid [][]string

// Units are the primitive content units produced by a Reader.
// DOCX readers fill Blocks and Tables, PDF readers fill Pages.
type Units struct {
	Format DocumentFormat
	Blocks []TextBlock
	Tables []TableGrid
	Pages  []string
}

// Reader turns raw bytes of one format into primitive units.
type Reader interface {
	Read(ctx context.Context, data []byte) (*Units, error)
}

// NewReader returns the reader for format.
func NewReader(format DocumentFormat) (Reader, error) {
	switch format {
	case FormatDOCX:
		return docxReader{}, nil
	case FormatPDF:
		return pdfReader{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

type pdfReader struct{}

// Read yields the text of every native page in order, laid out from glyph
// positions. Pages without content are kept as empty strings so that
// positions match the source.
func (pdfReader) Read(_ context.Context, data []byte) (units *Units, err error) {
	// The pdf package panics on some malformed cross-reference tables and
	// content streams.
	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fmt.Errorf("%w: parse pdf: %v", ErrCorruptDocument, r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", ErrCorruptDocument, err)
	}

	total := doc.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := doc.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, normalizePlainText(layoutPageText(page.Content().Text)))
	}

	return &Units{Format: FormatPDF, Pages: pages}, nil
}

const (
	defaultFontSize = 12.0
	// A vertical gap wider than this many line heights ends a paragraph.
	paragraphGapRatio = 1.5
	// Horizontal gaps in em: above wordGapRatio a space is implied, above
	// columnGapRatio the runs are separate cells.
	wordGapRatio   = 0.2
	columnGapRatio = 1.0
	// Glyphs whose baselines differ by less than this share a line.
	baselineTolerance = 0.3
)

type textLine struct {
	y      float64
	size   float64
	glyphs []pdf.Text
}

// layoutPageText rebuilds page text from positioned glyphs. Glyphs are grouped
// into lines by baseline, top to bottom, then ordered left to right. A blank
// line separates lines further apart than paragraphGapRatio line heights, and
// two spaces separate runs further apart than columnGapRatio em, which is what
// the paragraph and table rules key on.
func layoutPageText(glyphs []pdf.Text) string {
	kept := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		// TJ closes with a synthetic newline glyph; layout decides line breaks.
		if strings.IndexFunc(g.S, func(r rune) bool { return !unicode.IsControl(r) }) < 0 {
			continue
		}
		kept = append(kept, g)
	}
	if len(kept) == 0 {
		return ""
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Y > kept[j].Y })

	var lines []*textLine
	for _, g := range kept {
		size := fontSize(g)
		if n := len(lines); n > 0 && math.Abs(lines[n-1].y-g.Y) <= baselineTolerance*max(lines[n-1].size, size) {
			line := lines[n-1]
			line.size = max(line.size, size)
			line.glyphs = append(line.glyphs, g)
			continue
		}
		lines = append(lines, &textLine{y: g.Y, size: size, glyphs: []pdf.Text{g}})
	}

	var out strings.Builder
	for i, line := range lines {
		if i > 0 {
			prev := lines[i-1]
			out.WriteByte('\n')
			if prev.y-line.y > paragraphGapRatio*max(prev.size, line.size) {
				out.WriteByte('\n')
			}
		}
		out.WriteString(lineText(line))
	}
	return out.String()
}

// lineText joins the glyphs of one line left to right. Glyphs without a width
// (fonts lacking a Widths array) all report the start of their run, so their
// advance is estimated from the font size.
func lineText(line *textLine) string {
	glyphs := line.glyphs
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var (
		out    strings.Builder
		cursor float64
		last   rune
	)
	for i, g := range glyphs {
		size := fontSize(g)
		x := g.X
		width := g.W
		if width <= 0 {
			width = size / 2
			if i > 0 && x < cursor {
				x = cursor
			}
		}

		if i > 0 {
			gap := x - cursor
			first, _ := utf8.DecodeRuneInString(g.S)
			switch {
			case gap > columnGapRatio*size:
				if last != ' ' {
					out.WriteByte(' ')
				}
				out.WriteByte(' ')
			case gap > wordGapRatio*size && last != ' ' && first != ' ':
				out.WriteByte(' ')
			}
		}

		out.WriteString(g.S)
		last, _ = utf8.DecodeLastRuneInString(g.S)
		cursor = x + width
	}
	return out.String()
}

func fontSize(g pdf.Text) float64 {
	if g.FontSize > 0 {
		return g.FontSize
	}
	return defaultFontSize
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
