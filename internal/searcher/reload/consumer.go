package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/kafka"
)

// Consumer reloads a query engine whenever an indexer announces a new
// snapshot on the index-complete topic.
type Consumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func NewConsumer(kafkaConsumer *kafka.Consumer) *Consumer {
	return &Consumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("reload consumer starting")
	return c.consumer.Start(ctx)
}

// HandleIndexComplete returns a MessageHandler that reloads target from
// loader for every IndexCompleteEvent. Undecodable messages are logged and
// committed; a failed reload leaves the message uncommitted.
func HandleIndexComplete(target Target, loader searcher.SnapshotLoader) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.IndexCompleteEvent](value)
		if err != nil {
			logger.Error("failed to decode index-complete event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("processing index-complete event",
			"snapshot", event.SnapshotID,
			"terms", event.Terms,
		)
		info, err := target.Load(ctx, loader)
		if err != nil {
			return fmt.Errorf("reloading after snapshot %s: %w", event.SnapshotID, err)
		}
		if string(info.ID) != event.SnapshotID {
			logger.Warn("loaded snapshot differs from announced one",
				"announced", event.SnapshotID,
				"loaded", info.ID,
			)
		}
		logger.Info("snapshot reloaded",
			"snapshot", info.ID,
			"terms", info.Terms,
			"failed_jobs", event.FailedJobs,
		)
		return nil
	}
}
