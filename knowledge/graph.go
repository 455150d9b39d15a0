package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fabfab/docprocessor/ingestion"
)

// Document is the structure graph of one processed document.
type Document struct {
	ID         string
	Filename   string
	Type       string
	Pages      int
	Paragraphs int
	Sections   []Section
	Tables     []Table
}

// Section is a header node. Order follows document order.
type Section struct {
	ID             string
	Title          string
	Level          int
	Order          int
	ParagraphIndex int
}

type Table struct {
	ID      string
	Index   int
	Rows    int
	Columns int
}

// Statement is one Cypher query with its parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// BuildDocument derives the graph nodes of a stored record.
func BuildDocument(record *ingestion.DocumentRecord) Document {
	doc := Document{
		ID:         record.DocumentID,
		Filename:   record.Metadata.OriginalFilename,
		Type:       string(record.Metadata.DocumentType),
		Pages:      len(record.Content.Pages),
		Paragraphs: len(record.Content.Paragraphs),
		Sections:   make([]Section, 0, len(record.Content.Headers)),
		Tables:     make([]Table, 0, len(record.Content.Tables)),
	}

	for order, header := range record.Content.Headers {
		doc.Sections = append(doc.Sections, Section{
			ID:             fmt.Sprintf("%s_header_%d", record.DocumentID, header.Index),
			Title:          header.Text,
			Level:          header.Level,
			Order:          order,
			ParagraphIndex: header.Index,
		})
	}

	for _, table := range record.Content.Tables {
		columns := 0
		for _, row := range table.Rows {
			columns = max(columns, len(row.Cells))
		}
		doc.Tables = append(doc.Tables, Table{
			ID:      fmt.Sprintf("%s_table_%d", record.DocumentID, table.TableIndex),
			Index:   table.TableIndex,
			Rows:    len(table.Rows),
			Columns: columns,
		})
	}

	return doc
}

// Statements returns the write queries for doc in execution order. Existing
// sections and tables of the document are replaced.
func Statements(doc Document) []Statement {
	stmts := []Statement{
		{
			Query: `
				MERGE (d:Document {id: $id})
				SET d.filename = $filename,
				    d.type = $type,
				    d.pages = $pages,
				    d.paragraphs = $paragraphs,
				    d.updated_at = datetime()
			`,
			Params: map[string]any{
				"id":         doc.ID,
				"filename":   doc.Filename,
				"type":       doc.Type,
				"pages":      doc.Pages,
				"paragraphs": doc.Paragraphs,
			},
		},
		{
			Query: `
				MATCH (d:Document {id: $id})-[:HAS_SECTION|HAS_TABLE]->(n)
				DETACH DELETE n
			`,
			Params: map[string]any{"id": doc.ID},
		},
	}

	for _, section := range doc.Sections {
		stmts = append(stmts, Statement{
			Query: `
				MATCH (d:Document {id: $doc_id})
				MERGE (s:Section {id: $section_id})
				SET s.title = $section_title,
				    s.level = $section_level,
				    s.order = $section_order,
				    s.paragraph_index = $paragraph_index
				MERGE (d)-[:HAS_SECTION {order: $section_order}]->(s)
			`,
			Params: map[string]any{
				"doc_id":          doc.ID,
				"section_id":      section.ID,
				"section_title":   section.Title,
				"section_level":   section.Level,
				"section_order":   section.Order,
				"paragraph_index": section.ParagraphIndex,
			},
		})
	}

	for i := 1; i < len(doc.Sections); i++ {
		stmts = append(stmts, Statement{
			Query: `
				MATCH (a:Section {id: $from}), (b:Section {id: $to})
				MERGE (a)-[:NEXT_SECTION]->(b)
			`,
			Params: map[string]any{"from": doc.Sections[i-1].ID, "to": doc.Sections[i].ID},
		})
	}

	for _, table := range doc.Tables {
		stmts = append(stmts, Statement{
			Query: `
				MATCH (d:Document {id: $doc_id})
				MERGE (t:Table {id: $table_id})
				SET t.index = $table_index,
				    t.rows = $rows,
				    t.columns = $columns
				MERGE (d)-[:HAS_TABLE {order: $table_index}]->(t)
			`,
			Params: map[string]any{
				"doc_id":      doc.ID,
				"table_id":    table.ID,
				"table_index": table.Index,
				"rows":        table.Rows,
				"columns":     table.Columns,
			},
		})
	}

	return stmts
}

func SyncDocument(ctx context.Context, driver neo4j.DriverWithContext, doc Document) error {
	if driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range Statements(doc) {
			if _, err := tx.Run(ctx, stmt.Query, stmt.Params); err != nil {
				return nil, fmt.Errorf("write document graph: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

// GraphIndexer mirrors document structure into Neo4j after persistence.
type GraphIndexer struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

var _ ingestion.Indexer = (*GraphIndexer)(nil)

func NewGraphIndexer(driver neo4j.DriverWithContext, logger *slog.Logger) *GraphIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphIndexer{driver: driver, logger: logger}
}

func (g *GraphIndexer) Index(ctx context.Context, record *ingestion.DocumentRecord, _ []ingestion.ChunkRecord) error {
	doc := BuildDocument(record)
	if err := SyncDocument(ctx, g.driver, doc); err != nil {
		return fmt.Errorf("sync knowledge graph: %w", err)
	}
	g.logger.Debug("document graph synced",
		"document_id", doc.ID,
		"sections", len(doc.Sections),
		"tables", len(doc.Tables),
	)
	return nil
}

// Purge removes every document, section and table node.
func (g *GraphIndexer) Purge(ctx context.Context) error {
	if g.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		"MATCH (s:Section) DETACH DELETE s",
		"MATCH (t:Table) DETACH DELETE t",
		"MATCH (d:Document) DETACH DELETE d",
	}
	for _, query := range queries {
		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return fmt.Errorf("purge graph: %w", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return fmt.Errorf("purge graph: %w", err)
		}
	}
	return nil
}
