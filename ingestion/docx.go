package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

const (
	docxDocumentPart = "word/document.xml"
	docxStylesPart   = "word/styles.xml"
	defaultStyleName = "Normal"
)

type docxReader struct{}

// Read streams word/document.xml and yields top-level body paragraphs with
// their style names, plus every top-level table as a raw grid.
func (docxReader) Read(_ context.Context, data []byte) (*Units, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx archive: %w", ErrCorruptDocument, err)
	}

	parts := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		parts[f.Name] = f
	}

	docPart, ok := parts[docxDocumentPart]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found in archive", ErrCorruptDocument, docxDocumentPart)
	}

	styles := map[string]string{}
	if stylesPart, ok := parts[docxStylesPart]; ok {
		styles, err = readDocxStyles(stylesPart)
		if err != nil {
			return nil, fmt.Errorf("%w: read styles: %w", ErrCorruptDocument, err)
		}
	}

	rc, err := docPart.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrCorruptDocument, docxDocumentPart, err)
	}
	defer rc.Close()

	parser := &docxBodyParser{styles: styles, units: &Units{Format: FormatDOCX}}
	if err := parser.parse(xml.NewDecoder(rc)); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrCorruptDocument, docxDocumentPart, err)
	}

	return parser.units, nil
}

type docxStyleSheet struct {
	Styles []struct {
		ID   string `xml:"styleId,attr"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

// readDocxStyles maps style ids (as referenced by w:pStyle) to display names.
func readDocxStyles(f *zip.File) (map[string]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var sheet docxStyleSheet
	if err := xml.NewDecoder(rc).Decode(&sheet); err != nil {
		return nil, err
	}

	styles := make(map[string]string, len(sheet.Styles))
	for _, style := range sheet.Styles {
		if style.ID == "" {
			continue
		}
		name := style.Name.Val
		if name == "" {
			name = style.ID
		}
		styles[style.ID] = displayStyleName(name)
	}
	return styles, nil
}

// displayStyleName converts the lower-case names Word stores for built-in
// styles ("heading 1", "title") to the names shown in the Word UI.
func displayStyleName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "heading "), lower == "title", lower == "subtitle",
		lower == "caption", lower == "header", lower == "footer":
		return strings.ToUpper(name[:1]) + name[1:]
	default:
		return name
	}
}

// docxBodyParser tracks nesting so that only top-level paragraphs become
// text blocks and only top-level tables become grids. Paragraphs nested in
// text boxes and tables nested in cells are skipped.
type docxBodyParser struct {
	styles map[string]string
	units  *Units

	paragraphDepth int
	runDepth       int
	inText         bool
	paragraph      strings.Builder
	paragraphStyle string

	tableDepth int
	table      TableGrid
	row        []string
	cell       []string
}

func (p *docxBodyParser) parse(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == wordNS {
				p.start(t)
			}
		case xml.EndElement:
			if t.Name.Space == wordNS {
				p.end(t.Name.Local)
			}
		case xml.CharData:
			if p.inText && p.paragraphDepth == 1 {
				p.paragraph.Write(t)
			}
		}
	}
}

func (p *docxBodyParser) start(el xml.StartElement) {
	switch el.Name.Local {
	case "p":
		p.paragraphDepth++
		if p.paragraphDepth == 1 {
			p.paragraph.Reset()
			p.paragraphStyle = ""
		}
	case "pStyle":
		if p.paragraphDepth == 1 {
			p.paragraphStyle = attrValue(el, "val")
		}
	case "r":
		p.runDepth++
	case "t":
		p.inText = p.runDepth > 0
	case "tab":
		if p.runDepth > 0 && p.paragraphDepth == 1 {
			p.paragraph.WriteByte('\t')
		}
	case "br", "cr":
		if p.runDepth > 0 && p.paragraphDepth == 1 {
			p.paragraph.WriteByte('\n')
		}
	case "tbl":
		if p.paragraphDepth == 0 {
			p.tableDepth++
			if p.tableDepth == 1 {
				p.table = TableGrid{}
			}
		}
	case "tr":
		if p.paragraphDepth == 0 && p.tableDepth == 1 {
			p.row = []string{}
		}
	case "tc":
		if p.paragraphDepth == 0 && p.tableDepth == 1 {
			p.cell = p.cell[:0]
		}
	}
}

func (p *docxBodyParser) end(local string) {
	switch local {
	case "p":
		if p.paragraphDepth == 1 {
			p.finishParagraph()
		}
		if p.paragraphDepth > 0 {
			p.paragraphDepth--
		}
	case "r":
		if p.runDepth > 0 {
			p.runDepth--
		}
	case "t":
		p.inText = false
	case "tbl":
		if p.paragraphDepth == 0 && p.tableDepth > 0 {
			if p.tableDepth == 1 {
				p.units.Tables = append(p.units.Tables, p.table)
				p.table = nil
			}
			p.tableDepth--
		}
	case "tr":
		if p.paragraphDepth == 0 && p.tableDepth == 1 {
			p.table = append(p.table, p.row)
			p.row = nil
		}
	case "tc":
		if p.paragraphDepth == 0 && p.tableDepth == 1 {
			p.row = append(p.row, strings.TrimSpace(strings.Join(p.cell, "\n")))
		}
	}
}

func (p *docxBodyParser) finishParagraph() {
	text := p.paragraph.String()

	switch p.tableDepth {
	case 0:
		if strings.TrimSpace(text) == "" {
			return
		}
		p.units.Blocks = append(p.units.Blocks, TextBlock{Text: text, Style: p.styleName()})
	case 1:
		p.cell = append(p.cell, text)
	}
}

func (p *docxBodyParser) styleName() string {
	if p.paragraphStyle == "" {
		return defaultStyleName
	}
	if name, ok := p.styles[p.paragraphStyle]; ok {
		return name
	}
	return p.paragraphStyle
}

func attrValue(el xml.StartElement, local string) string {
	for _, attr := range el.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
