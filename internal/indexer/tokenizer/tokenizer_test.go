package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		text     string
		expected string
	}{
		{text: "Cat dog cat.", expected: "cat dog cat"},
		{text: "Hello,   World!", expected: "hello world"},
		{text: "line one\n\n\nline two", expected: "line one line two"},
		{text: "a\nb", expected: "a b"},
		{text: "don't stop", expected: "dont stop"},
		{text: "snake_case 2024!", expected: "snake_case 2024"},
		{text: "tab\t\tseparated", expected: "tab separated"},
	}

	for _, tt := range cases {
		t.Run(fmt.Sprintf("text = %q", tt.text), func(t *testing.T) {
			actual := Normalize(tt.text)
			if diff := cmp.Diff(actual, tt.expected); diff != "" {
				t.Errorf("Diff: (-got +want)\n%s", diff)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		stop     StopWords
		expected []string
	}{
		{
			name:     "dedup and sort",
			text:     "Cat dog cat.",
			expected: []string{"cat", "dog"},
		},
		{
			name:     "stop words removed",
			text:     "the cat and the dog",
			stop:     NewStopWords("the", "and"),
			expected: []string{"cat", "dog"},
		},
		{
			name:     "numeric tokens dropped",
			text:     "released in 2024 version 2",
			expected: []string{"in", "released", "version"},
		},
		{
			name:     "digits split words",
			text:     "abc123def",
			expected: []string{"abc", "def"},
		},
		{
			name:     "underscore splits words",
			text:     "snake_case",
			expected: []string{"case", "snake"},
		},
		{
			name:     "punctuation joins letters",
			text:     "e-mail o'clock",
			expected: []string{"email", "oclock"},
		},
		{
			name:     "accented letters break words",
			text:     "Café naïve",
			expected: []string{"caf", "na", "ve"},
		},
		{
			name:     "no-break space separates words",
			text:     "one\u00a0two",
			expected: []string{"one", "two"},
		},
		{
			name:     "symbols outside word class are stripped",
			text:     "fish\u00a7chips",
			expected: []string{"fishchips"},
		},
		{
			name:     "empty text",
			text:     "",
			expected: []string{},
		},
		{
			name:     "only stop words",
			text:     "a a a",
			stop:     NewStopWords("a"),
			expected: []string{},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			actual := Tokenize(tt.text, tt.stop)
			if diff := cmp.Diff(actual, tt.expected); diff != "" {
				t.Errorf("Diff: (-got +want)\n%s", diff)
			}
		})
	}
}

func TestTokenizeStopWordsAreCaseSensitive(t *testing.T) {
	// Stop words are compared against lower-cased words, so an upper-case
	// entry never matches.
	actual := Tokenize("The cat", NewStopWords("The"))
	if diff := cmp.Diff(actual, []string{"cat", "the"}); diff != "" {
		t.Errorf("Diff: (-got +want)\n%s", diff)
	}
}

func TestReadStopWords(t *testing.T) {
	cases := []struct {
		name     string
		csv      string
		expected []string
		wantErr  bool
	}{
		{
			name:     "single column",
			csv:      "words\nthe\nand\nof\n",
			expected: []string{"the", "and", "of"},
		},
		{
			name:     "column not first",
			csv:      "id,words\n1,the\n2, and \n3,\n",
			expected: []string{"the", "and"},
		},
		{
			name:     "byte order mark",
			csv:      "\ufeffwords\nthe\n",
			expected: []string{"the"},
		},
		{
			name:    "missing column",
			csv:     "word\nthe\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			csv:     "",
			wantErr: true,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := ReadStopWords(strings.NewReader(tt.csv))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got words %v", actual)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(actual, tt.expected); diff != "" {
				t.Errorf("Diff: (-got +want)\n%s", diff)
			}
		})
	}
}

func TestLoadStopWordsEmptyPath(t *testing.T) {
	stop, err := LoadStopWords("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop.Len() != 0 {
		t.Errorf("expected empty set, got %d words", stop.Len())
	}
}

func TestZeroStopWordsContainsNothing(t *testing.T) {
	var stop StopWords
	if stop.Contains("the") {
		t.Error("zero StopWords should be empty")
	}
}

var benchTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"long": strings.Repeat(`Information retrieval systems form the backbone of modern search
        infrastructure. These systems combine tokenization and stop word
        removal to normalize text into searchable terms; the inverted index maps each
        term to the documents containing it. Released 2024, version 3.1.  `, 50),
}

func BenchmarkTokenize(b *testing.B) {
	stop := NewStopWords("the", "of", "and", "to", "it")
	for name, text := range benchTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Tokenize(text, stop)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := benchTexts["long"]
	stop := NewStopWords("the", "of", "and")
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Tokenize(text, stop)
		}
	})
}
