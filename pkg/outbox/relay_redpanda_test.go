package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/bank-melli/commission/pkg/models"
)

func createKafkaTopic(t *testing.T, ctx context.Context, brokers string, topic string) {
	admin, err := kgo.NewClient(kgo.SeedBrokers(brokers))
	require.NoError(t, err)
	defer admin.Close()

	req := kmsg.NewCreateTopicsRequest()
	req.Topics = []kmsg.CreateTopicsRequestTopic{
		{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}
	_, err = admin.Request(ctx, &req)
	require.NoError(t, err)

	time.Sleep(1 * time.Second)
}

func TestRelay_PublishToRedpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:latest")
	require.NoError(t, err)
	defer func() {
		_ = container.Terminate(ctx)
	}()

	brokers, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	topic := "test.commission-events"
	createKafkaTopic(t, ctx, brokers, topic)

	db := setupTestDB(t)
	entry := enqueue(t, db, "1403-12345-00001")

	relay, err := New(Config{
		DB:      db,
		Brokers: []string{brokers},
		Topic:   topic,
		Logger:  hclog.New(&hclog.LoggerOptions{Name: "test", Level: hclog.Debug}),
	})
	require.NoError(t, err)
	defer relay.Stop()

	n, err := relay.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(brokers),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup("test-consumer"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var received *Event
	for received == nil {
		fetches := consumer.PollFetches(fetchCtx)
		if fetches.IsClientClosed() || fetchCtx.Err() != nil {
			break
		}
		require.NoError(t, fetches.Err())

		fetches.EachRecord(func(record *kgo.Record) {
			var event Event
			require.NoError(t, json.Unmarshal(record.Value, &event))
			received = &event
		})
	}

	require.NotNil(t, received, "no message received from Redpanda")
	assert.Equal(t, entry.ID, received.ID)
	assert.Equal(t, entry.AggregateID.String(), received.AggregateID)
	assert.Equal(t, models.EventCommissionCaseCreated, received.EventType)
	assert.Equal(t, "1403-12345-00001", received.Payload["caseNumber"])
}
