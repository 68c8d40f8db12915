//go:build integration

package notification_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/lcvote/voteledger/internal/infra"
	"github.com/lcvote/voteledger/internal/notification"
)

func TestKafkaNotifierRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v23.3.3")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	const topic = "ledger-events-test"
	client, err := infra.NewKafkaClient(ctx, []string{broker}, topic)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	n := notification.NewKafkaNotifier(client, topic)
	msg := notification.Message{
		ID:         "evt-1",
		Kind:       notification.KindAdminAction,
		AccountID:  "acct-1",
		ActorID:    "admin-1",
		Payload:    json.RawMessage(`{"amount":3}`),
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, n.Send(ctx, msg))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	t.Cleanup(consumer.Close)

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.Empty(t, fetches.Errors())

	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "acct-1", string(records[0].Key))

	var got notification.Message
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, "evt-1", got.ID)
	require.Equal(t, "admin-1", got.ActorID)
}
