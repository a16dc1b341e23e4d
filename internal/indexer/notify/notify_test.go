package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/resilience"
)

type flakyPublisher struct {
	failures int
	events   []kafka.Event
}

func (p *flakyPublisher) Publish(_ context.Context, ev kafka.Event) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("leader not available")
	}
	p.events = append(p.events, ev)
	return nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestNotifyRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 1}
	n := New(pub).WithRetry(fastRetry())
	ev := IndexBuiltEvent{RunID: "run-1", Digest: "d1g3st", Words: 3}

	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	if pub.events[0].Key != "d1g3st" {
		t.Errorf("expected digest as key, got %q", pub.events[0].Key)
	}
	if got, ok := pub.events[0].Value.(IndexBuiltEvent); !ok || got.RunID != "run-1" {
		t.Errorf("unexpected value: %#v", pub.events[0].Value)
	}
}

func TestNotifyGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	n := New(pub).WithRetry(fastRetry())

	if err := n.Notify(context.Background(), IndexBuiltEvent{RunID: "run-2"}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if pub.failures != 7 {
		t.Errorf("expected 3 attempts, %d failures left", pub.failures)
	}
}

type expiredPublisher struct {
	calls int
}

func (p *expiredPublisher) Publish(context.Context, kafka.Event) error {
	p.calls++
	return context.DeadlineExceeded
}

func TestNotifyStopsOnDeadline(t *testing.T) {
	for _, tt := range []struct {
		name string
		n    func(Publisher) *Notifier
	}{
		{name: "default policy", n: New},
		{name: "custom policy", n: func(p Publisher) *Notifier { return New(p).WithRetry(fastRetry()) }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			pub := &expiredPublisher{}
			err := tt.n(pub).Notify(context.Background(), IndexBuiltEvent{RunID: "run-3"})
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected deadline error, got %v", err)
			}
			if pub.calls != 1 {
				t.Errorf("expected 1 attempt, got %d", pub.calls)
			}
		})
	}
}
