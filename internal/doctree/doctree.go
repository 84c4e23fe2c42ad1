package doctree

import "time"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title     string            // Document title (from metadata or filename)
	Author    string            // Empty when the format carries no author
	CreatedAt *time.Time        // Creation/sent date if the format records one
	Metadata  map[string]string // Format-specific headers (From/To/Subject, PDF info)
	Children  []*DocNode        // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Section is a paragraph-sized span of text ready to be stored.
type Section struct {
	Heading    string `json:"heading,omitempty"`
	Content    string `json:"content"`
	OrderIndex int    `json:"order_index"`
}

// ParsedDocument is a document after parsing and sectioning.
type ParsedDocument struct {
	ID          string
	SourcePath  string
	Title       string
	Author      string
	CreatedAt   *time.Time
	Metadata    map[string]string
	ContentHash string
	Sections    []Section
}

// SectionRecord is a stored section joined with its document's citation fields.
type SectionRecord struct {
	DocumentID    string `json:"document_id,omitempty"`
	DocumentTitle string `json:"document_title"`
	DocumentPath  string `json:"document_path"`
	Heading       string `json:"heading,omitempty"`
	Content       string `json:"content"`
	OrderIndex    int    `json:"order_index"`
}

// DocumentInfo summarizes a stored document.
type DocumentInfo struct {
	ID           string            `json:"id"`
	Path         string            `json:"path"`
	Title        string            `json:"title"`
	Author       string            `json:"author,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	ContentHash  string            `json:"content_hash,omitempty"`
	SectionCount int               `json:"section_count"`
	IngestedAt   time.Time         `json:"ingested_at"`
}
