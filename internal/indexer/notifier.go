package indexer

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sagasu/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/sagasu/pkg/kafka"
)

// IndexCompleteEvent announces a freshly saved snapshot. Query processes
// subscribe to it to reload without polling the snapshot directory.
type IndexCompleteEvent struct {
	SnapshotID     string    `json:"snapshot_id"`
	Path           string    `json:"path"`
	Terms          int       `json:"terms"`
	Documents      int       `json:"documents"`
	FailedJobs     int       `json:"failed_jobs"`
	FailedSources  int       `json:"failed_sources"`
	DurationMillis int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

func NewIndexCompleteEvent(info snapshot.Info, report Report) IndexCompleteEvent {
	return IndexCompleteEvent{
		SnapshotID:     string(info.ID),
		Path:           info.Path,
		Terms:          info.Terms,
		Documents:      info.Documents,
		FailedJobs:     report.FailedJobs(),
		FailedSources:  len(report.SourceFailures),
		DurationMillis: report.Duration.Milliseconds(),
		CreatedAt:      info.CreatedAt,
	}
}

// Notifier is told about every snapshot the engine saves. Notification
// failures are logged and never fail the run.
type Notifier interface {
	IndexComplete(ctx context.Context, event IndexCompleteEvent) error
}

// Publisher is the subset of kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaNotifier publishes IndexCompleteEvents keyed by snapshot id.
type KafkaNotifier struct {
	pub Publisher
}

func NewKafkaNotifier(pub Publisher) *KafkaNotifier {
	return &KafkaNotifier{pub: pub}
}

func (n *KafkaNotifier) IndexComplete(ctx context.Context, event IndexCompleteEvent) error {
	return n.pub.Publish(ctx, kafka.Event{Key: event.SnapshotID, Value: event})
}
