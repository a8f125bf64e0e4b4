// Package search ranks passively logged chat messages against a free-text
// query. An Index is immutable after construction and safe for concurrent
// use.
//
// Scoring uses Jaccard similarity between the query token set and each
// message's token set: score = |Q ∩ M| / |Q ∪ M|. Ties keep the order the
// documents were supplied in, so callers passing newest-first rows get the
// newest match first.
package search

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Document is one searchable message.
type Document struct {
	ID   string
	Text string
}

// Hit is a ranked document with its similarity score.
type Hit struct {
	ID    string
	Text  string
	Score float64
}

// Option configures an Index.
type Option func(*options)

type options struct {
	stopwords map[string]struct{}
	minScore  float64
}

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words ...string) Option {
	return func(o *options) {
		if o.stopwords == nil {
			o.stopwords = make(map[string]struct{}, len(words))
		}
		for _, w := range words {
			if w = fold(strings.TrimSpace(w)); w != "" {
				o.stopwords[w] = struct{}{}
			}
		}
	}
}

// WithMinScore discards hits scoring below s.
func WithMinScore(s float64) Option {
	return func(o *options) {
		if s >= 0 {
			o.minScore = s
		}
	}
}

type doc struct {
	Document
	tokens map[string]struct{}
}

// Index holds tokenized documents.
type Index struct {
	opts options
	docs []doc
}

// New tokenizes docs. Documents without any word are skipped.
func New(docs []Document, opts ...Option) *Index {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	idx := &Index{opts: o, docs: make([]doc, 0, len(docs))}
	for _, d := range docs {
		toks := tokenize(d.Text, o.stopwords)
		if len(toks) == 0 {
			continue
		}
		idx.docs = append(idx.docs, doc{Document: d, tokens: toks})
	}
	return idx
}

// Len reports the number of indexed documents.
func (i *Index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents. k <= 0 means 10.
func (i *Index) TopK(query string, k int) []Hit {
	if k <= 0 {
		k = 10
	}
	q := tokenize(query, i.opts.stopwords)
	if len(q) == 0 || len(i.docs) == 0 {
		return nil
	}

	hits := make([]Hit, 0, k)
	for _, d := range i.docs {
		over := overlap(q, d.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(len(q)+len(d.tokens)-over)
		if score < i.opts.minScore {
			continue
		}
		hits = append(hits, Hit{ID: d.ID, Text: d.Text, Score: score})
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

var folder = cases.Fold()

func fold(s string) string { return folder.String(s) }

// tokenize case-folds s and splits it into letter/digit runs. CJK text has
// no spaces, so each Han, Hiragana or Katakana rune also counts as a word.
func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	add := func(w string) {
		if _, skip := stop[w]; !skip {
			out[w] = struct{}{}
		}
	}
	for _, w := range words {
		if !hasIdeograph(w) {
			add(w)
			continue
		}
		for _, r := range w {
			add(string(r))
		}
	}
	return out
}

var ideographRE = regexp.MustCompile(`[\p{Han}\p{Hiragana}\p{Katakana}]`)

func hasIdeograph(w string) bool { return ideographRE.MatchString(w) }

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
