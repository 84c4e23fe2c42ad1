package chunker

import (
	"strings"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// HeadingSeparator joins the titles of nested nodes into one heading.
const HeadingSeparator = " > "

// pageStride spaces out order indexes so sections of page N sort before
// those of page N+1.
const pageStride = 1000

// Config controls sectioning behavior.
type Config struct {
	MaxTokens int // Paragraphs above this are split by sentences.
	Overlap   int // Overlap between consecutive sentence pieces in tokens.
	MinTokens int // Pieces below this are dropped.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens: 1500,
		Overlap:   0,
		MinTokens: 1,
	}
}

// Sections walks a DocTree and flattens it into ordered sections, one per
// paragraph. Headings are breadcrumbs of the enclosing node titles.
func Sections(tree *doctree.DocTree, cfg Config) []doctree.Section {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1500
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxTokens {
		cfg.Overlap = 0
	}
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = 1
	}

	w := &walker{cfg: cfg, perPage: make(map[int]int)}
	for _, child := range tree.Children {
		w.walk(child, nil)
	}
	return w.sections
}

type walker struct {
	cfg      Config
	sections []doctree.Section
	next     int         // running order for unpaged nodes
	perPage  map[int]int // next position within each page
}

func (w *walker) walk(node *doctree.DocNode, breadcrumb []string) {
	bc := breadcrumb
	if title := strings.TrimSpace(node.Title); title != "" {
		bc = append(breadcrumb[:len(breadcrumb):len(breadcrumb)], title)
	}
	heading := strings.Join(bc, HeadingSeparator)

	for _, para := range splitByParagraphs(node.Text) {
		pieces := []string{para}
		if EstimateTokens(para) > w.cfg.MaxTokens {
			pieces = splitBySentences(para, w.cfg.MaxTokens, w.cfg.Overlap)
		}
		for _, piece := range pieces {
			if EstimateTokens(piece) < w.cfg.MinTokens {
				continue
			}
			w.sections = append(w.sections, doctree.Section{
				Heading:    heading,
				Content:    piece,
				OrderIndex: w.order(node.Page),
			})
		}
	}

	for _, child := range node.Children {
		w.walk(child, bc)
	}
}

func (w *walker) order(page int) int {
	if page <= 0 {
		n := w.next
		w.next++
		return n
	}
	n := w.perPage[page]
	w.perPage[page] = n + 1
	return (page-1)*pageStride + n
}

// splitByParagraphs splits on blank lines.
func splitByParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var result []string
	var current []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(current, "\n")); p != "" {
			result = append(result, p)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return result
}

// splitBySentences breaks a large paragraph into sentence-based pieces.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitSentences splits after '.', '!' or '?' followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// getOverlapText extracts the last N tokens worth of text for overlap.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	targetWords := int(float64(targetTokens) / tokensPerWord)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}
