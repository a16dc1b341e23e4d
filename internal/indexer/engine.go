package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/history"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/notify"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/metrics"
)

// sideEffectTimeout bounds history and notification calls made after the
// index files are in place.
const sideEffectTimeout = 10 * time.Second

// Locker guards a run across processes. Lock returns ErrRunInProgress
// (possibly wrapped) when another process holds the lock. The returned
// context is cancelled if the lock is lost while held; the run then fails
// before touching the output files.
type Locker interface {
	Lock(ctx context.Context) (held context.Context, unlock func(context.Context) error, err error)
}

// RunRecorder stores the outcome of each run.
type RunRecorder interface {
	Record(ctx context.Context, rec history.RunRecord) error
}

// BuildNotifier announces successful runs.
type BuildNotifier interface {
	Notify(ctx context.Context, ev notify.IndexBuiltEvent) error
}

// RunResult summarises a successful run.
type RunResult struct {
	RunID     string
	Trigger   string
	Documents int
	Words     int
	Postings  int
	Digest    string
	Started   time.Time
	Duration  time.Duration
}

// Engine builds the inverted index from the configured corpus and replaces
// the postings and dictionary files. Run is safe to call from several
// goroutines; only one build executes at a time.
type Engine struct {
	cfg      config.JobConfig
	pool     *pool.Pool
	writer   *segment.Writer
	metrics  *metrics.Metrics
	locker   Locker
	recorder RunRecorder
	notifier BuildNotifier
	logger   *slog.Logger

	runMu       sync.Mutex
	lastSuccess atomic.Int64
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithMetrics sets the collectors the engine reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLocker adds a cross-process run lock.
func WithLocker(l Locker) Option {
	return func(e *Engine) { e.locker = l }
}

// WithRecorder stores every run outcome, e.g. in run history.
func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithNotifier announces successful runs.
func WithNotifier(n BuildNotifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPool replaces the worker pool, e.g. to inject a custom ProcessFunc.
func WithPool(p *pool.Pool) Option {
	return func(e *Engine) { e.pool = p }
}

// WithLastSuccess seeds LastSuccess, e.g. from run history after a restart.
func WithLastSuccess(t time.Time) Option {
	return func(e *Engine) {
		if !t.IsZero() {
			e.lastSuccess.Store(t.UnixNano())
		}
	}
}

// NewEngine creates an Engine for cfg. Without WithMetrics it uses a fresh
// metrics registry.
func NewEngine(cfg config.JobConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		pool:   pool.New(cfg.MaxWorkers),
		writer: segment.NewWriter(cfg.OutputDir, cfg.PostingsFile, cfg.DictionaryFile),
		logger: logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New()
	}
	return e
}

// LastSuccess returns when the last successful run finished, or the zero
// time if none has.
func (e *Engine) LastSuccess() time.Time {
	ns := e.lastSuccess.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Run performs one complete build. A call made while another build is in
// progress fails immediately with ErrRunInProgress. Any error leaves the
// previous output files in place.
func (e *Engine) Run(ctx context.Context, trigger string) (*RunResult, error) {
	if !e.runMu.TryLock() {
		e.metrics.RunsTotal.WithLabelValues(metrics.StatusRejected).Inc()
		e.logger.Warn("index run rejected, previous run still executing", "trigger", trigger)
		return nil, apperrors.New(apperrors.ErrRunInProgress, apperrors.ExitInProgress, "a build is already running in this process")
	}
	defer e.runMu.Unlock()

	if e.locker != nil {
		held, unlock, err := e.locker.Lock(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrRunInProgress) {
				e.metrics.RunsTotal.WithLabelValues(metrics.StatusRejected).Inc()
				e.logger.Warn("index run rejected, lock held elsewhere", "trigger", trigger)
			} else {
				e.metrics.RunsTotal.WithLabelValues(metrics.StatusFailure).Inc()
			}
			return nil, fmt.Errorf("acquiring run lock: %w", err)
		}
		defer func() {
			uctx, cancel := context.WithTimeout(context.WithoutCancel(held), sideEffectTimeout)
			defer cancel()
			if err := unlock(uctx); err != nil {
				e.logger.Error("releasing run lock failed", "error", err)
			}
		}()
		ctx = held
	}

	e.metrics.RunInProgress.Set(1)
	defer e.metrics.RunInProgress.Set(0)

	result := &RunResult{
		RunID:   uuid.NewString(),
		Trigger: trigger,
		Started: time.Now(),
	}
	ctx = logger.WithRunID(ctx, result.RunID)
	log := logger.FromContext(ctx).With("component", "indexer")
	log.Info("index run starting", "trigger", trigger)

	err := e.build(ctx, log, result)
	result.Duration = time.Since(result.Started)
	e.record(ctx, result, err)
	if err != nil {
		e.metrics.RunsTotal.WithLabelValues(metrics.StatusFailure).Inc()
		log.Error("index run failed",
			"error", err,
			"duration", result.Duration.Round(time.Millisecond),
		)
		return nil, err
	}

	finished := result.Started.Add(result.Duration)
	e.lastSuccess.Store(finished.UnixNano())
	e.metrics.RunsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	e.metrics.RunDuration.Observe(result.Duration.Seconds())
	e.metrics.DocumentsProcessed.Add(float64(result.Documents))
	e.metrics.IndexDocuments.Set(float64(result.Documents))
	e.metrics.IndexWords.Set(float64(result.Words))
	e.metrics.IndexPostings.Set(float64(result.Postings))
	e.metrics.LastSuccess.Set(float64(finished.Unix()))
	e.announce(ctx, result, finished)

	log.Info("index run complete",
		"documents", result.Documents,
		"words", result.Words,
		"postings", result.Postings,
		"digest", result.Digest,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result, nil
}

func (e *Engine) build(ctx context.Context, log *slog.Logger, result *RunResult) error {
	sources, err := document.List(e.cfg.DatasetDir)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(sources) == 0 {
		return apperrors.Input(e.cfg.DatasetDir, errors.New("no documents found"))
	}
	log.Info("documents listed", "files", len(sources))

	stop, err := tokenizer.LoadStopWords(e.cfg.StopWordsFile)
	if err != nil {
		return fmt.Errorf("loading stop words: %w", err)
	}
	log.Debug("stop words loaded", "count", stop.Len())

	start := time.Now()
	docs, err := e.pool.ProcessAll(ctx, sources, stop)
	if err != nil {
		return fmt.Errorf("tokenizing documents: %w", err)
	}
	e.observe(log, "tokenize", start, "workers", e.pool.MaxWorkers())

	start = time.Now()
	builder := index.NewBuilder()
	for _, d := range docs {
		builder.AddDocument(d)
	}
	entries := builder.Snapshot()
	e.observe(log, "group", start, "words", len(entries), "postings", builder.Postings())

	start = time.Now()
	segment.AssignIDs(entries)
	postings, dictionary := segment.Encode(entries)
	e.observe(log, "encode", start, "postings_bytes", len(postings), "dictionary_bytes", len(dictionary))

	if ctx.Err() != nil {
		return fmt.Errorf("run cancelled before writing: %w", context.Cause(ctx))
	}
	start = time.Now()
	if err := e.writer.Write(postings, dictionary); err != nil {
		return fmt.Errorf("writing index files: %w", err)
	}
	e.observe(log, "write", start,
		"postings_file", e.writer.PostingsPath(),
		"dictionary_file", e.writer.DictionaryPath(),
	)

	result.Documents = builder.DocCount()
	result.Words = len(entries)
	result.Postings = builder.Postings()
	result.Digest = segment.Digest(postings, dictionary)
	return nil
}

func (e *Engine) observe(log *slog.Logger, stage string, start time.Time, attrs ...any) {
	d := time.Since(start)
	e.metrics.ObserveStage(stage, d)
	log.Info("stage complete", append([]any{"stage", stage, "duration", d.Round(time.Millisecond)}, attrs...)...)
}

func (e *Engine) record(ctx context.Context, result *RunResult, runErr error) {
	if e.recorder == nil {
		return
	}
	rec := history.RunRecord{
		RunID:      result.RunID,
		Status:     history.StatusSuccess,
		Trigger:    result.Trigger,
		Documents:  result.Documents,
		Words:      result.Words,
		Postings:   result.Postings,
		Digest:     result.Digest,
		StartedAt:  result.Started,
		FinishedAt: result.Started.Add(result.Duration),
	}
	if runErr != nil {
		rec.Status = history.StatusFailed
		rec.Error = runErr.Error()
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := e.recorder.Record(rctx, rec); err != nil {
		logger.FromContext(ctx).Error("recording run history failed", "error", err)
	}
}

func (e *Engine) announce(ctx context.Context, result *RunResult, finished time.Time) {
	if e.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	err := e.notifier.Notify(nctx, notify.IndexBuiltEvent{
		RunID:          result.RunID,
		Digest:         result.Digest,
		Documents:      result.Documents,
		Words:          result.Words,
		Postings:       result.Postings,
		PostingsFile:   e.writer.PostingsPath(),
		DictionaryFile: e.writer.DictionaryPath(),
		FinishedAt:     finished.UTC(),
	})
	if err != nil {
		logger.FromContext(ctx).Error("announcing index build failed", "error", err)
	}
}
