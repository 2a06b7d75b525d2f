package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-rppg/internal/models"
)

func event(session string) models.EstimateEvent {
	return models.EstimateEvent{
		SessionID: session,
		Estimate: &models.MetricEstimate{
			HeartRateBPM: models.Float64Ptr(72),
			HRVMs:        models.Float64Ptr(10),
			Label:        models.LabelSober,
			Timestamp:    5,
		},
	}
}

type recordingSink struct {
	name   string
	err    error
	events []models.EstimateEvent
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, ev models.EstimateEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestFanout_ContinuesPastFailures(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	good := &recordingSink{name: "good"}
	f := NewFanout(zap.NewNop(), bad, nil, good)
	assert.Equal(t, 2, f.Len())

	failed := f.Publish(context.Background(), event("s-1"))
	assert.Equal(t, 1, failed)
	assert.Len(t, bad.events, 1)
	require.Len(t, good.events, 1)
	assert.Equal(t, "s-1", good.events[0].SessionID)
}

func TestStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	sink := NewStreamSink(client, "", 1000)
	require.NoError(t, sink.Publish(ctx, event("s-1")))

	msgs, err := client.XRange(ctx, EstimateStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var got models.EstimateEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got))
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, 72.0, *got.Estimate.HeartRateBPM)
}

func TestStreamReader_ReadsPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	reader, err := NewStreamReader(ctx, client, "", "watchers", "w-1")
	require.NoError(t, err)

	sink := NewStreamSink(client, "", 0)
	require.NoError(t, sink.Publish(ctx, event("s-1")))
	require.NoError(t, sink.Publish(ctx, event("s-2")))
	_, err = client.XAdd(ctx, &redis.XAddArgs{Stream: EstimateStream, Values: map[string]interface{}{"other": "x"}}).Result()
	require.NoError(t, err)

	events, err := reader.Read(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "s-1", events[0].SessionID)
	assert.Equal(t, "s-2", events[1].SessionID)

	// already delivered to this group
	events, err = reader.Read(ctx, 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, events)

	// an existing group is reused
	_, err = NewStreamReader(ctx, client, "", "watchers", "w-2")
	require.NoError(t, err)
}

type fakeMQTT struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.topic, f.qos, f.retained, f.payload = topic, qos, retained, payload
	return nil
}

func TestMQTTSink(t *testing.T) {
	client := &fakeMQTT{}
	sink := NewMQTTSink(client, 1)
	require.NoError(t, sink.Publish(context.Background(), event("abc")))

	assert.Equal(t, "rppg/abc/estimate", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.True(t, client.retained)
	assert.Contains(t, string(client.payload), `"label":"Sober"`)
}

type fakeNATS struct{ msgs []*nats.Msg }

func (f *fakeNATS) PublishMsg(m *nats.Msg) error {
	f.msgs = append(f.msgs, m)
	return nil
}

func TestNATSSink(t *testing.T) {
	conn := &fakeNATS{}
	sink := NewNATSSink(conn, "")
	require.NoError(t, sink.Publish(context.Background(), event("s-7")))

	require.Len(t, conn.msgs, 1)
	assert.Equal(t, EstimateSubject, conn.msgs[0].Subject)
	assert.Equal(t, "s-7", conn.msgs[0].Header.Get("Session-Id"))
	assert.Contains(t, string(conn.msgs[0].Data), `"session_id":"s-7"`)
}

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_BroadcastsToMatchingClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	all := dialHub(t, srv, "")
	only := dialHub(t, srv, "?session_id=s-2")
	require.Eventually(t, func() bool { return hub.Len() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), event("s-1")))
	require.NoError(t, hub.Publish(context.Background(), event("s-2")))

	_ = all.SetReadDeadline(time.Now().Add(time.Second))
	_, first, err := all.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(first), `"session_id":"s-1"`)

	_ = only.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := only.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"session_id":"s-2"`)
}

func TestHub_DropsClosedClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn := dialHub(t, srv, "")
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}
