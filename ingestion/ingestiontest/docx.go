// Package ingestiontest builds small in-memory documents for tests.
package ingestiontest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"
)

// Paragraph is a body paragraph. Style is a style id such as "Heading1"; empty means Normal.
type Paragraph struct {
	Text  string
	Style string
}

const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
  <w:style w:type="paragraph" w:styleId="Title"><w:name w:val="Title"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading2"><w:name w:val="heading 2"/></w:style>
  <w:style w:type="paragraph" w:styleId="Heading3"><w:name w:val="heading 3"/></w:style>
  <w:style w:type="paragraph" w:styleId="HeadingCustom"><w:name w:val="Heading Custom"/></w:style>
</w:styles>`

// DOCX returns a minimal .docx archive with paragraphs followed by tables.
func DOCX(t testing.TB, paragraphs []Paragraph, tables ...[][]string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(paragraphXML(p))
	}
	for _, table := range tables {
		body.WriteString("<w:tbl><w:tblPr/>")
		for _, row := range table {
			body.WriteString("<w:tr>")
			for _, cell := range row {
				body.WriteString("<w:tc><w:tcPr/>")
				body.WriteString(paragraphXML(Paragraph{Text: cell}))
				body.WriteString("</w:tc>")
			}
			body.WriteString("</w:tr>")
		}
		body.WriteString("</w:tbl>")
	}

	document := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>%s<w:sectPr/></w:body></w:document>`, body.String())

	return Archive(t, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   document,
		"word/styles.xml":     stylesXML,
	})
}

// Archive zips the given parts.
func Archive(t testing.TB, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func paragraphXML(p Paragraph) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	if p.Style != "" {
		sb.WriteString(`<w:pPr><w:pStyle w:val="`)
		_ = xml.EscapeText(&sb, []byte(p.Style))
		sb.WriteString(`"/></w:pPr>`)
	}
	if p.Text != "" {
		sb.WriteString(`<w:r><w:t xml:space="preserve">`)
		_ = xml.EscapeText(&sb, []byte(p.Text))
		sb.WriteString("</w:t></w:r>")
	}
	sb.WriteString("</w:p>")
	return sb.String()
}
