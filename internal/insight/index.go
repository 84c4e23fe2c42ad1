package insight

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dgallion1/docinsight/internal/doctree"
)

// Candidate is a section paired with its similarity to a query.
type Candidate struct {
	Section doctree.SectionRecord
	Score   float64
}

// vector is a sparse, L2-normalised TF-IDF vector. terms is sorted ascending.
type vector struct {
	terms   []int
	weights []float64
}

// Index is an immutable TF-IDF representation of a section snapshot.
// Position i of vectors belongs to position i of sections.
type Index struct {
	sections []doctree.SectionRecord
	vocab    map[string]int
	idf      []float64
	vectors  []vector
	builtAt  time.Time
}

// BuildIndex computes the vocabulary, smoothed IDF weights and per-section
// vectors. Each section counts as one document for IDF.
func BuildIndex(sections []doctree.SectionRecord) *Index {
	ix := &Index{
		sections: slices.Clone(sections),
		vocab:    make(map[string]int),
		builtAt:  time.Now(),
	}

	tokens := make([][]string, len(sections))
	df := make(map[string]int)
	for i, s := range sections {
		tokens[i] = Tokenize(s.Content)
		seen := make(map[string]struct{}, len(tokens[i]))
		for _, t := range tokens[i] {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(sections))
	ix.idf = make([]float64, len(terms))
	for col, t := range terms {
		ix.vocab[t] = col
		ix.idf[col] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	ix.vectors = make([]vector, len(sections))
	for i, toks := range tokens {
		ix.vectors[i] = ix.weigh(toks)
	}
	return ix
}

// weigh turns tokens into a normalised vector. Unknown terms are ignored.
func (ix *Index) weigh(tokens []string) vector {
	counts := make(map[int]float64)
	for _, t := range tokens {
		if col, ok := ix.vocab[t]; ok {
			counts[col]++
		}
	}
	v := vector{
		terms:   make([]int, 0, len(counts)),
		weights: make([]float64, 0, len(counts)),
	}
	for col := range counts {
		v.terms = append(v.terms, col)
	}
	sort.Ints(v.terms)

	var norm float64
	for _, col := range v.terms {
		w := counts[col] * ix.idf[col]
		v.weights = append(v.weights, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range v.weights {
			v.weights[i] /= norm
		}
	}
	return v
}

// Len returns the number of indexed sections.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.sections)
}

// Terms returns the vocabulary size.
func (ix *Index) Terms() int {
	if ix == nil {
		return 0
	}
	return len(ix.idf)
}

// Rank scores every section against query by cosine similarity and returns
// them best first. Ties keep build order.
func (ix *Index) Rank(query string) ([]Candidate, error) {
	if len(ix.vectors) != len(ix.sections) {
		return nil, fmt.Errorf("%w: %d vectors for %d sections", ErrVectorize, len(ix.vectors), len(ix.sections))
	}
	q := ix.weigh(Tokenize(query))

	out := make([]Candidate, len(ix.sections))
	for i := range ix.sections {
		score := cosine(q, ix.vectors[i])
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, fmt.Errorf("%w: non-finite score for section %d", ErrVectorize, i)
		}
		out[i] = Candidate{Section: ix.sections[i], Score: score}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out, nil
}

// cosine assumes both vectors are already unit length or empty.
func cosine(a, b vector) float64 {
	if len(a.terms) == 0 || len(b.terms) == 0 {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(a.terms) && j < len(b.terms) {
		switch {
		case a.terms[i] == b.terms[j]:
			dot += a.weights[i] * b.weights[j]
			i++
			j++
		case a.terms[i] < b.terms[j]:
			i++
		default:
			j++
		}
	}
	return min(max(dot, 0), 1)
}
