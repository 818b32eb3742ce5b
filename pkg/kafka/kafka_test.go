package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotEvent struct {
	SnapshotID string    `json:"snapshot_id"`
	Terms      int       `json:"terms"`
	CreatedAt  time.Time `json:"created_at"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[snapshotEvent]([]byte(`{"snapshot_id":"index-2026-10-18-09","terms":3,"created_at":"2026-10-18T09:00:00Z"}`))
	require.NoError(t, err)
	assert.Equal(t, "index-2026-10-18-09", got.SnapshotID)
	assert.Equal(t, 3, got.Terms)
	assert.True(t, got.CreatedAt.Equal(time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)))

	_, err = DecodeJSON[snapshotEvent]([]byte(`{"terms":`))
	assert.Error(t, err)
}
