package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	rediscommon "wisefido-rppg/common/redis"
	"wisefido-rppg/internal/models"
)

// EstimateStream is the Redis stream that receives every estimate.
const EstimateStream = "rppg:estimate:stream"

// StreamSink appends estimate events to a Redis stream.
type StreamSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStreamSink writes to stream, trimming it to about maxLen entries.
func NewStreamSink(client *redis.Client, stream string, maxLen int64) *StreamSink {
	if stream == "" {
		stream = EstimateStream
	}
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

func (s *StreamSink) Name() string { return "redis-stream" }

func (s *StreamSink) Publish(ctx context.Context, ev models.EstimateEvent) error {
	_, err := rediscommon.PublishJSONToStream(ctx, s.client, s.stream, s.maxLen, ev)
	return err
}

// StreamReader reads estimate events from a stream as one consumer of a group.
type StreamReader struct {
	client   *redis.Client
	stream   string
	group    string
	consumer string
}

// NewStreamReader creates the consumer group when missing.
func NewStreamReader(ctx context.Context, client *redis.Client, stream, group, consumer string) (*StreamReader, error) {
	if stream == "" {
		stream = EstimateStream
	}
	if err := rediscommon.CreateConsumerGroup(ctx, client, stream, group); err != nil {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", group, err)
	}
	return &StreamReader{client: client, stream: stream, group: group, consumer: consumer}, nil
}

// Read returns up to count new events, waiting at most block. Entries that do not hold
// an estimate event are skipped.
func (r *StreamReader) Read(ctx context.Context, count int64, block time.Duration) ([]models.EstimateEvent, error) {
	msgs, err := rediscommon.ReadFromStream(ctx, r.client, r.stream, r.group, r.consumer, count, block)
	if err != nil {
		return nil, err
	}
	events := make([]models.EstimateEvent, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var ev models.EstimateEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil || ev.Estimate == nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
