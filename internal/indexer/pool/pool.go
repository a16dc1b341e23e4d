// Package pool tokenizes corpus documents on a bounded set of goroutines.
// Each worker writes into its own slot of a pre-sized result slice, so the
// only synchronisation is the final join.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/tokenizer"
)

// ProcessFunc turns one source into its word set.
type ProcessFunc func(ctx context.Context, src document.Source, stop tokenizer.StopWords) (index.DocumentWords, error)

// Pool runs a ProcessFunc over many sources with bounded concurrency.
type Pool struct {
	maxWorkers int
	process    ProcessFunc
	logger     *slog.Logger
}

// New returns a Pool running at most maxWorkers documents at once.
// maxWorkers <= 0 means runtime.NumCPU().
func New(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Pool{
		maxWorkers: maxWorkers,
		process:    TokenizeSource,
		logger:     slog.Default().With("component", "worker-pool"),
	}
}

// WithProcessFunc replaces the per-document step.
func (p *Pool) WithProcessFunc(fn ProcessFunc) *Pool {
	p.process = fn
	return p
}

// MaxWorkers reports the concurrency bound.
func (p *Pool) MaxWorkers() int {
	return p.maxWorkers
}

// ProcessAll tokenizes every source and returns the results ordered by
// document id. The first failure stops new documents from starting and is
// returned once in-flight ones have finished; no partial result is
// returned alongside an error.
func (p *Pool) ProcessAll(ctx context.Context, sources []document.Source, stop tokenizer.StopWords) ([]index.DocumentWords, error) {
	results := make([]index.DocumentWords, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxWorkers)

	for i, src := range sources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return context.Cause(gctx)
			}
			doc, err := p.process(gctx, src, stop)
			if err != nil {
				return fmt.Errorf("processing document %d: %w", src.ID, err)
			}
			results[i] = doc
			p.logger.Debug("document tokenized",
				"doc_id", doc.DocID,
				"word_count", len(doc.Words),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("processing aborted: %w", context.Cause(ctx))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DocID < results[j].DocID
	})
	return results, nil
}

// TokenizeSource reads src from disk and tokenizes it.
func TokenizeSource(_ context.Context, src document.Source, stop tokenizer.StopWords) (index.DocumentWords, error) {
	text, err := document.ReadText(src.Path)
	if err != nil {
		return index.DocumentWords{}, err
	}
	return index.DocumentWords{
		DocID: src.ID,
		Words: tokenizer.Tokenize(text, stop),
	}, nil
}
