package pool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
)

func writeCorpus(t *testing.T, docs map[int]string) []document.Source {
	t.Helper()
	dir := t.TempDir()
	for id, text := range docs {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprint(id)), []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}
	sources, err := document.List(dir)
	if err != nil {
		t.Fatal(err)
	}
	return sources
}

func TestProcessAll(t *testing.T) {
	sources := writeCorpus(t, map[int]string{
		1: "Cat dog cat.",
		2: "Dog bird.",
		3: "The 2024 report",
	})

	got, err := New(2).ProcessAll(context.Background(), sources, tokenizer.NewStopWords("the"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []index.DocumentWords{
		{DocID: 1, Words: []string{"cat", "dog"}},
		{DocID: 2, Words: []string{"bird", "dog"}},
		{DocID: 3, Words: []string{"report"}},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Diff: (-got +want)\n%s", diff)
	}
}

func TestProcessAllSortsByDocumentID(t *testing.T) {
	sources := []document.Source{{ID: 5}, {ID: 3}, {ID: 9}, {ID: 1}}
	p := New(4).WithProcessFunc(func(_ context.Context, src document.Source, _ tokenizer.StopWords) (index.DocumentWords, error) {
		// Later submissions finish first.
		time.Sleep(time.Duration(10-src.ID) * time.Millisecond)
		return index.DocumentWords{DocID: src.ID}, nil
	})

	got, err := p.ProcessAll(context.Background(), sources, tokenizer.StopWords{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []int
	for _, d := range got {
		ids = append(ids, d.DocID)
	}
	if diff := cmp.Diff(ids, []int{1, 3, 5, 9}); diff != "" {
		t.Errorf("Diff: (-got +want)\n%s", diff)
	}
}

func TestProcessAllBoundsConcurrency(t *testing.T) {
	const maxWorkers = 3
	var running, peak atomic.Int32
	p := New(maxWorkers).WithProcessFunc(func(_ context.Context, src document.Source, _ tokenizer.StopWords) (index.DocumentWords, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return index.DocumentWords{DocID: src.ID}, nil
	})

	sources := make([]document.Source, 30)
	for i := range sources {
		sources[i] = document.Source{ID: i + 1}
	}
	if _, err := p.ProcessAll(context.Background(), sources, tokenizer.StopWords{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := peak.Load(); got > maxWorkers {
		t.Errorf("expected at most %d concurrent workers, saw %d", maxWorkers, got)
	}
}

func TestProcessAllFailsOnUnreadableDocument(t *testing.T) {
	docs := make(map[int]string, 10)
	for i := 1; i <= 10; i++ {
		docs[i] = "valid text"
	}
	sources := writeCorpus(t, docs)
	sources = append(sources, document.Source{ID: 11, Path: filepath.Join(t.TempDir(), "11")})

	got, err := New(2).ProcessAll(context.Background(), sources, tokenizer.StopWords{})
	if !errors.Is(err, apperrors.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no partial result, got %d documents", len(got))
	}
}

func TestProcessAllStopsSubmittingAfterFailure(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	p := New(1).WithProcessFunc(func(_ context.Context, src document.Source, _ tokenizer.StopWords) (index.DocumentWords, error) {
		calls.Add(1)
		if src.ID == 1 {
			return index.DocumentWords{}, boom
		}
		return index.DocumentWords{DocID: src.ID}, nil
	})
	sources := make([]document.Source, 100)
	for i := range sources {
		sources[i] = document.Source{ID: i + 1}
	}

	_, err := p.ProcessAll(context.Background(), sources, tokenizer.StopWords{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n := calls.Load(); n >= 100 {
		t.Errorf("expected processing to stop early, ran %d documents", n)
	}
}

func TestProcessAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sources := []document.Source{{ID: 1}, {ID: 2}}
	p := New(2).WithProcessFunc(func(_ context.Context, src document.Source, _ tokenizer.StopWords) (index.DocumentWords, error) {
		return index.DocumentWords{DocID: src.ID}, nil
	})

	got, err := p.ProcessAll(ctx, sources, tokenizer.StopWords{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no result, got %v", got)
	}
}

func TestNewDefaultsWorkers(t *testing.T) {
	if New(0).MaxWorkers() < 1 {
		t.Error("expected at least one worker")
	}
}
