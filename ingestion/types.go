package ingestion

import "time"

// ContentType names one of the partitionable collections of ExtractedContent.
type ContentType string

const (
	ContentPages      ContentType = "pages"
	ContentParagraphs ContentType = "paragraphs"
	ContentHeaders    ContentType = "headers"
	ContentTables     ContentType = "tables"
)

// ContentTypes lists the collections in the order their chunks are written.
var ContentTypes = []ContentType{ContentPages, ContentParagraphs, ContentHeaders, ContentTables}

// ExtractedContent is the normalized structure of one document.
// None of the slices are nil once produced by an extractor.
type ExtractedContent struct {
	Paragraphs []Paragraph `json:"paragraphs"`
	Headers    []Header    `json:"headers"`
	Tables     []Table     `json:"tables"`
	Pages      []Page      `json:"pages"`
}

// NewExtractedContent returns content with every collection initialised to empty.
func NewExtractedContent() ExtractedContent {
	return ExtractedContent{
		Paragraphs: []Paragraph{},
		Headers:    []Header{},
		Tables:     []Table{},
		Pages:      []Page{},
	}
}

type Paragraph struct {
	Text      string `json:"text"`
	Index     int    `json:"index"`
	IsHeading bool   `json:"is_heading"`
}

// Header shares its Index with exactly one Paragraph.
type Header struct {
	Text  string `json:"text"`
	Level int    `json:"level"`
	Index int    `json:"index"`
}

type Table struct {
	TableIndex int   `json:"table_index"`
	Rows       []Row `json:"rows"`
}

type Row struct {
	RowIndex int    `json:"row_index"`
	Cells    []Cell `json:"cells"`
}

type Cell struct {
	CellIndex int    `json:"cell_index"`
	Value     string `json:"value"`
}

type Page struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// Metadata describes the source file and the shape of its extracted content.
type Metadata struct {
	OriginalFilename string         `json:"original_filename"`
	ProcessedAt      time.Time      `json:"processed_at"`
	FileSize         int64          `json:"file_size"`
	DocumentType     DocumentFormat `json:"document_type"`
	TotalPages       int            `json:"total_pages"`
	TotalParagraphs  int            `json:"total_paragraphs"`
	TotalHeaders     int            `json:"total_headers"`
	TotalTables      int            `json:"total_tables"`
}

// DocumentRecord is the persisted root artifact, written once per upload.
type DocumentRecord struct {
	DocumentID string           `json:"document_id"`
	Metadata   Metadata         `json:"metadata"`
	Content    ExtractedContent `json:"content"`
}

// ChunkRecord is a bounded slice of one content collection.
// Content holds a []Page, []Paragraph, []Header or []Table matching Type.
type ChunkRecord struct {
	ChunkKey    string      `json:"chunk_key"`
	DocumentID  string      `json:"document_id"`
	ChunkIndex  int         `json:"chunk_index"`
	Type        ContentType `json:"type"`
	Content     any         `json:"content"`
	TotalChunks int         `json:"total_chunks"`
}

// Summary holds the counts reported back to the caller.
type Summary struct {
	PagesCount      int `json:"pages_count"`
	ParagraphsCount int `json:"paragraphs_count"`
	TablesCount     int `json:"tables_count"`
	HeadersCount    int `json:"headers_count"`
	TotalWords      int `json:"total_words"`
	TableWords      int `json:"table_words"`
}

type ContentPreview struct {
	FirstPageContent string   `json:"first_page_content"`
	Headers          []string `json:"headers"`
	FirstParagraphs  []string `json:"first_paragraphs"`
}

// Result is returned to the caller after a successful run.
type Result struct {
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	DocumentID     string         `json:"document_id"`
	Summary        Summary        `json:"summary"`
	ContentPreview ContentPreview `json:"content_preview"`
}
