package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

func TestPublishSendsJSON(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	topic, err := client.CreateTopic(ctx, "manifests")
	require.NoError(t, err)

	pub := New(topic)
	t.Cleanup(pub.Stop)

	id, err := pub.Publish(ctx, "manifest.completed", llmstxt.ManifestEvent{JobID: "job-1", PageCount: 4})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "manifest.completed", msgs[0].Attributes["event_type"])

	var event llmstxt.ManifestEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &event))
	require.Equal(t, "job-1", event.JobID)
	require.Equal(t, 4, event.PageCount)
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "manifest.completed", llmstxt.ManifestEvent{})
	require.Error(t, err)
}
