package parser

import (
	"strings"
	"testing"
	"time"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"a.txt", false},
		{"a.RTF", false},
		{"a.md", false},
		{"a.markdown", false},
		{"a.csv", false},
		{"a.htm", false},
		{"a.pdf", false},
		{"a.docx", false},
		{"a.eml", false},
		{"a.exe", true},
		{"noext", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			p, err := ForFile(tt.filename, Options{})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got parser %T", p)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !IsSupportedExtension(tt.filename) {
				t.Errorf("IsSupportedExtension(%q) = false", tt.filename)
			}
		})
	}
}

func TestForFile_PassesPDFOptions(t *testing.T) {
	p, err := ForFile("scan.pdf", Options{PDFFallbackPdftotext: true})
	if err != nil {
		t.Fatal(err)
	}
	if !p.(*PDFParser).FallbackPdftotext {
		t.Error("expected pdftotext fallback to be enabled")
	}
}

func TestHTMLParser_TitleAndHeadings(t *testing.T) {
	input := `<html><head><title>Board Minutes</title><script>var x;</script></head>
<body><p>Opening remarks.</p><h1>Agenda</h1><p>Item one.</p><ul><li>Item two.</li></ul>
<h2>Votes</h2><p>Motion carried.</p><footer>ignored</footer></body></html>`

	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "minutes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Board Minutes" {
		t.Errorf("expected title %q, got %q", "Board Minutes", tree.Title)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected leading node and h1, got %d", len(tree.Children))
	}
	if tree.Children[0].Text != "Opening remarks." {
		t.Errorf("leading text = %q", tree.Children[0].Text)
	}
	agenda := tree.Children[1]
	if agenda.Text != "Item one.\n\nItem two." {
		t.Errorf("agenda text = %q", agenda.Text)
	}
	if len(agenda.Children) != 1 || agenda.Children[0].Text != "Motion carried." {
		t.Errorf("expected Votes child with its text, got %+v", agenda.Children)
	}
	if strings.Contains(agenda.Children[0].Text, "ignored") {
		t.Error("footer text leaked into content")
	}
}

func TestHTMLParser_FallsBackToStem(t *testing.T) {
	tree, err := (&HTMLParser{}).Parse(strings.NewReader("<p>hi</p>"), "/tmp/page.htm")
	if err != nil {
		t.Fatal(err)
	}
	if tree.Title != "page" {
		t.Errorf("expected title %q, got %q", "page", tree.Title)
	}
}

func TestCSVParser_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,amount\n")
	for i := 0; i < 25; i++ {
		b.WriteString("acme,100\n")
	}
	tree, err := (&CSVParser{}).Parse(strings.NewReader(b.String()), "ledger.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "ledger" {
		t.Errorf("expected title %q, got %q", "ledger", tree.Title)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(tree.Children))
	}
	if tree.Children[0].Title != "Rows 2-21" || tree.Children[1].Title != "Rows 22-26" {
		t.Errorf("unexpected batch titles %q, %q", tree.Children[0].Title, tree.Children[1].Title)
	}
	if !strings.HasPrefix(tree.Children[0].Text, "name: acme, amount: 100") {
		t.Errorf("unexpected row text %q", tree.Children[0].Text)
	}
}

func TestCSVParser_HeaderOnly(t *testing.T) {
	tree, err := (&CSVParser{}).Parse(strings.NewReader("a,b\n"), "empty.csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected no nodes, got %d", len(tree.Children))
	}
}

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"D:20240131093005+01'00'", time.Date(2024, 1, 31, 9, 30, 5, 0, time.UTC), true},
		{"20231105120000", time.Date(2023, 11, 5, 12, 0, 0, 0, time.UTC), true},
		{"D:2024", time.Time{}, false},
		{"", time.Time{}, false},
		{"D:2024AB31093005", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parsePDFDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPDFParser_RejectsGarbage(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader("not a pdf"), "bad.pdf")
	if err == nil {
		t.Fatal("expected error for non-pdf input")
	}
}

func TestDOCXParser_RejectsGarbage(t *testing.T) {
	_, err := (&DOCXParser{}).Parse(strings.NewReader("not a zip"), "bad.docx")
	if err == nil {
		t.Fatal("expected error for non-docx input")
	}
}
