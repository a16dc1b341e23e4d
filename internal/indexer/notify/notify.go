// Package notify announces finished index builds on Kafka so consumers of
// the postings and dictionary files know when to reload them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/resilience"
)

// IndexBuiltEvent is the JSON payload published after a successful run.
type IndexBuiltEvent struct {
	RunID          string    `json:"run_id"`
	Digest         string    `json:"digest"`
	Documents      int       `json:"documents"`
	Words          int       `json:"words"`
	Postings       int       `json:"postings"`
	PostingsFile   string    `json:"postings_file"`
	DictionaryFile string    `json:"dictionary_file"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier publishes IndexBuiltEvents with retry.
type Notifier struct {
	publisher Publisher
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

func New(publisher Publisher) *Notifier {
	return &Notifier{
		publisher: publisher,
		retry: resilience.RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Retryable:    retryable,
		},
		logger: slog.Default().With("component", "notifier"),
	}
}

// retryable stops retrying once the caller has given up.
func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// WithRetry overrides the retry policy. A nil Retryable keeps the default
// classification.
func (n *Notifier) WithRetry(cfg resilience.RetryConfig) *Notifier {
	if cfg.Retryable == nil {
		cfg.Retryable = retryable
	}
	n.retry = cfg
	return n
}

// Notify publishes ev keyed by its digest, so repeated builds of the same
// corpus land on the same partition.
func (n *Notifier) Notify(ctx context.Context, ev IndexBuiltEvent) error {
	event := kafka.Event{Key: ev.Digest, Value: ev}
	err := resilience.Retry(ctx, "publish-index-built", n.retry, func() error {
		return n.publisher.Publish(ctx, event)
	})
	if err != nil {
		return err
	}
	n.logger.Info("index build announced",
		"run_id", ev.RunID,
		"words", ev.Words,
	)
	return nil
}
