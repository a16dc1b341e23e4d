package tokenizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
)

// stopWordsColumn is the CSV header naming the stop-word column.
const stopWordsColumn = "words"

// StopWords is an immutable set of words excluded from every document. The
// zero value is an empty set. It is safe for concurrent use.
type StopWords struct {
	set map[string]struct{}
}

// NewStopWords builds a StopWords set from the given words.
func NewStopWords(words ...string) StopWords {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return StopWords{set: set}
}

// Contains reports whether w is a stop word.
func (s StopWords) Contains(w string) bool {
	_, ok := s.set[w]
	return ok
}

// Len returns the number of stop words.
func (s StopWords) Len() int {
	return len(s.set)
}

// LoadStopWords reads the stop-word column of a CSV file whose header row
// contains a "words" column. An empty path yields an empty set.
func LoadStopWords(path string) (StopWords, error) {
	if path == "" {
		return NewStopWords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return StopWords{}, apperrors.Input(path, err)
	}
	defer f.Close()
	words, err := ReadStopWords(f)
	if err != nil {
		return StopWords{}, apperrors.Input(path, err)
	}
	return NewStopWords(words...), nil
}

// ReadStopWords parses CSV from r and returns the non-blank values of the
// "words" column.
func ReadStopWords(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("stop-word file is empty")
		}
		return nil, fmt.Errorf("reading stop-word header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == stopWordsColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("stop-word file has no %q column", stopWordsColumn)
	}
	var words []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading stop-word row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if w := strings.TrimSpace(record[col]); w != "" {
			words = append(words, w)
		}
	}
	return words, nil
}
