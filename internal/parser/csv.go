package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// csvBatchRows is how many data rows go into one node.
const csvBatchRows = 20

// CSVParser handles CSV files. Each batch of rows becomes one node whose
// text labels every cell with its column header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: stem(filename)}
	if len(records) < 2 {
		return tree, nil
	}

	headers, rows := records[0], records[1:]
	for i := 0; i < len(rows); i += csvBatchRows {
		end := min(i+csvBatchRows, len(rows))

		var text strings.Builder
		for _, row := range rows[i:end] {
			cells := make([]string, 0, len(row))
			for j, cell := range row {
				if j < len(headers) && headers[j] != "" {
					cells = append(cells, headers[j]+": "+cell)
				} else {
					cells = append(cells, cell)
				}
			}
			text.WriteString(strings.Join(cells, ", "))
			text.WriteString("\n")
		}

		// Row numbers are 1-based and count the header line.
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Rows %d-%d", i+2, end+1),
			Text:  strings.TrimSpace(text.String()),
		})
	}
	return tree, nil
}
