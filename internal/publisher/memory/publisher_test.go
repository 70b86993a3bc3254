package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/afl-job-crawler/internal/crawler"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	event := crawler.NewJobCreatedEvent(crawler.Job{ID: "29001234", Field: "f", Region: "r"})
	id1, err := pub.Publish(context.Background(), "jobs", event)
	require.NoError(t, err)
	require.Equal(t, "memory-1", id1)
	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "jobs", msgs[0].Topic)
	require.Equal(t, event, msgs[0].Payload)

	msgs[0].Topic = "modified"
	require.Equal(t, "jobs", pub.Messages()[0].Topic, "Messages must return a copy")
}

func TestPublisherDropsOldest(t *testing.T) {
	t.Parallel()

	pub := NewWithCapacity(2)
	for _, topic := range []string{"a", "b", "c"} {
		_, err := pub.Publish(context.Background(), topic, nil)
		require.NoError(t, err)
	}
	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "b", msgs[0].Topic)
	require.Equal(t, "memory-3", msgs[1].ID)
	require.Equal(t, 3, pub.Total())
}
