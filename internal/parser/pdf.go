package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgallion1/docinsight/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if available.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	tree := &doctree.DocTree{Title: stem(filename)}

	pages, info, err := extractPDF(src)
	if err != nil && p.FallbackPdftotext {
		var text string
		text, err = extractPdftotext(src)
		pages = strings.Split(text, "\f")
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	applyPDFInfo(tree, info)
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Page %d", i+1),
			Text:  page,
			Page:  i + 1,
		})
	}
	return tree, nil
}

// extractPDF returns per-page text and the string entries of the Info
// dictionary.
func extractPDF(src []byte) (pages []string, info map[string]string, err error) {
	defer func() {
		// ledongthuc/pdf panics on some malformed files.
		if r := recover(); r != nil {
			pages, info, err = nil, nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, nil, err
	}

	info = make(map[string]string)
	if dict := reader.Trailer().Key("Info"); !dict.IsNull() {
		for _, key := range dict.Keys() {
			if v := dict.Key(key); v.Kind() == pdflib.String {
				if s := strings.TrimSpace(v.Text()); s != "" {
					info[key] = s
				}
			}
		}
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, info, nil
}

func applyPDFInfo(tree *doctree.DocTree, info map[string]string) {
	if len(info) == 0 {
		return
	}
	tree.Metadata = info
	if t := info["Title"]; t != "" {
		tree.Title = t
	}
	tree.Author = info["Author"]
	if ts, ok := parsePDFDate(info["CreationDate"]); ok {
		tree.CreatedAt = &ts
	}
}

// parsePDFDate reads the leading YYYYMMDDHHmmSS of a PDF date string such
// as "D:20240131093000+01'00'". Timezone suffixes are ignored.
func parsePDFDate(v string) (time.Time, bool) {
	v = strings.TrimPrefix(strings.Trim(v, "'"), "D:")
	if len(v) < 14 {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102150405", v[:14])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func extractPdftotext(src []byte) (string, error) {
	tmp, err := os.CreateTemp("", "docinsight-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(src); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmp.Name(), "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
