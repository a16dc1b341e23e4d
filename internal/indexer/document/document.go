// Package document locates the numbered text files that make up the corpus
// and decodes their contents.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
)

// Source is a single corpus file. Its ID is the file's base name read as a
// positive integer.
type Source struct {
	ID   int
	Path string
}

// ParseID derives a document id from a source path. The base name must be
// a positive decimal integer.
func ParseID(path string) (int, error) {
	name := filepath.Base(path)
	id, err := strconv.Atoi(name)
	if err != nil || id <= 0 {
		return 0, apperrors.Format(name)
	}
	return id, nil
}

// List returns every non-hidden, non-directory entry of dir as a Source,
// ordered by id. Names such as "7" and "007" resolve to the same id; their
// words are merged when the index is built.
func List(dir string) ([]Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Input(dir, err)
	}
	sources := make([]Source, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		id, err := ParseID(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, Source{ID: id, Path: path})
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].ID < sources[j].ID
	})
	return sources, nil
}

// ReadText reads the file at path and decodes it as ISO-8859-1, which maps
// every byte to a rune and therefore never rejects content.
func ReadText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Input(path, err)
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", apperrors.Input(path, fmt.Errorf("decoding latin-1: %w", err))
	}
	return string(text), nil
}
