package indexer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/redis"
)

// RedisLocker serialises runs across processes sharing an output directory.
// While a run holds the lock its TTL is refreshed in the background, so a
// build that outlasts the TTL keeps the lock.
type RedisLocker struct {
	client       *pkgredis.Client
	key          string
	ttl          time.Duration
	refreshEvery time.Duration
	logger       *slog.Logger
}

// NewRedisLocker returns a locker on key whose TTL is refreshed every ttl/3.
func NewRedisLocker(client *pkgredis.Client, key string, ttl time.Duration) *RedisLocker {
	refreshEvery := ttl / 3
	if refreshEvery <= 0 {
		refreshEvery = time.Second
	}
	return &RedisLocker{
		client:       client,
		key:          key,
		ttl:          ttl,
		refreshEvery: refreshEvery,
		logger:       logger.WithComponent("run-lock"),
	}
}

// Lock acquires the run lock. The returned context is cancelled with a
// cause wrapping pkgredis.ErrLockLost if the lock is lost before unlock is
// called. unlock stops the refresher and releases the key.
func (l *RedisLocker) Lock(ctx context.Context) (context.Context, func(context.Context) error, error) {
	lock, err := l.client.Acquire(ctx, l.key, l.ttl)
	if err != nil {
		if errors.Is(err, pkgredis.ErrLockHeld) {
			return nil, nil, apperrors.Newf(apperrors.ErrRunInProgress, apperrors.ExitInProgress,
				"lock %s held by another process", l.key)
		}
		return nil, nil, err
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.keepAlive(lockCtx, lock, cancel)
	}()

	unlock := func(uctx context.Context) error {
		cancel(nil)
		<-done
		return lock.Release(uctx)
	}
	return lockCtx, unlock, nil
}

func (l *RedisLocker) keepAlive(ctx context.Context, lock *pkgredis.Lock, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(l.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := lock.Refresh(ctx, l.ttl)
		switch {
		case err == nil:
		case errors.Is(err, pkgredis.ErrLockLost):
			l.logger.Error("run lock lost, aborting run", "key", lock.Key())
			cancel(err)
			return
		case ctx.Err() != nil:
			return
		default:
			// The key still has time left; try again on the next tick.
			l.logger.Warn("refreshing run lock failed", "key", lock.Key(), "error", err)
		}
	}
}
