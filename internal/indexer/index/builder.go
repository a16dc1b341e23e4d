package index

import (
	"sort"
)

// Builder groups postings by word. It is not safe for concurrent use; the
// job feeds it from a single goroutine after all workers have finished.
type Builder struct {
	index    map[string]map[int]struct{}
	docs     map[int]struct{}
	postings int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		index: make(map[string]map[int]struct{}),
		docs:  make(map[int]struct{}),
	}
}

// Add records p. Repeated postings are counted once.
func (b *Builder) Add(p Posting) {
	docs, exists := b.index[p.Word]
	if !exists {
		docs = make(map[int]struct{})
		b.index[p.Word] = docs
	}
	if _, dup := docs[p.DocID]; !dup {
		docs[p.DocID] = struct{}{}
		b.postings++
	}
	b.docs[p.DocID] = struct{}{}
}

// AddDocument records every word of doc and counts doc even when it has no
// words.
func (b *Builder) AddDocument(doc DocumentWords) {
	b.docs[doc.DocID] = struct{}{}
	for _, w := range doc.Words {
		b.Add(Posting{Word: w, DocID: doc.DocID})
	}
}

// Snapshot returns one entry per word, ordered by word, each with its
// ascending document ids.
func (b *Builder) Snapshot() []WordEntry {
	entries := make([]WordEntry, 0, len(b.index))
	for word, docs := range b.index {
		ids := make([]int, 0, len(docs))
		for id := range docs {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		entries = append(entries, WordEntry{
			Word:   word,
			DocIDs: ids,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Word < entries[j].Word
	})
	return entries
}

// Words returns the number of distinct words seen.
func (b *Builder) Words() int {
	return len(b.index)
}

// Postings returns the number of distinct (word, document) pairs seen.
func (b *Builder) Postings() int {
	return b.postings
}

// DocCount returns the number of distinct documents seen, including ones
// that contributed no words.
func (b *Builder) DocCount() int {
	return len(b.docs)
}

// Build groups the words of docs into index entries. The result depends
// only on the set of postings, never on the order docs arrive in.
func Build(docs []DocumentWords) []WordEntry {
	b := NewBuilder()
	for _, p := range Postings(docs) {
		b.Add(p)
	}
	return b.Snapshot()
}
