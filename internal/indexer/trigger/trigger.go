// Package trigger lets other services request an index rebuild by publishing
// to a Kafka topic.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/reverse-index/pkg/kafka"
)

// TriggerKafka is the trigger name recorded for Kafka-requested runs.
const TriggerKafka = "kafka"

// RebuildRequest is the optional JSON body of a rebuild message. An empty
// message value is accepted as a request with no metadata.
type RebuildRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

// RunFunc performs one build.
type RunFunc func(ctx context.Context, trigger string) error

// HandleRebuild returns a MessageHandler that runs a build per message. A
// request that arrives while a build is running is committed without
// starting another: the running build already covers it.
func HandleRebuild(run RunFunc) kafka.MessageHandler {
	logger := slog.Default().With("component", "rebuild-trigger")
	return func(ctx context.Context, key []byte, value []byte) error {
		var req RebuildRequest
		if len(value) > 0 {
			decoded, err := kafka.DecodeJSON[RebuildRequest](value)
			if err != nil {
				logger.Error("failed to decode rebuild request",
					"error", err,
					"key", string(key),
				)
				return nil
			}
			req = decoded
		}
		logger.Info("rebuild requested",
			"requested_by", req.RequestedBy,
			"reason", req.Reason,
		)
		err := run(ctx, TriggerKafka)
		if errors.Is(err, apperrors.ErrRunInProgress) {
			logger.Info("rebuild request folded into running build",
				"requested_by", req.RequestedBy,
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("rebuild requested by %q: %w", req.RequestedBy, err)
		}
		return nil
	}
}
