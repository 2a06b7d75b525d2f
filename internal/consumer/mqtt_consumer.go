package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	mqttcommon "wisefido-rppg/common/mqtt"
	"wisefido-rppg/internal/config"
	"wisefido-rppg/internal/models"
	"wisefido-rppg/internal/processor"
)

// MQTTClient is the part of the MQTT client the consumer uses.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Unsubscribe(topics ...string) error
}

// BatchProcessor runs a frame batch through a session pipeline.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, sessionID string, frames []models.EncodedFrame) (processor.Result, error)
}

// ResultTopic is where the consumer answers a session's batch.
func ResultTopic(sessionID string) string {
	return fmt.Sprintf("rppg/%s/result", sessionID)
}

// MQTTConsumer takes frame batches from devices and publishes the submission responses.
type MQTTConsumer struct {
	config     *config.Config
	mqttClient MQTTClient
	processor  BatchProcessor
	logger     *zap.Logger

	ctx context.Context
}

// NewMQTTConsumer creates the consumer.
func NewMQTTConsumer(cfg *config.Config, mqttClient MQTTClient, processor BatchProcessor, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		processor:  processor,
		logger:     logger,
		ctx:        context.Background(),
	}
}

// Start subscribes to the frames topic and blocks until ctx is done.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.mqttClient.Subscribe(c.config.Topics.Frames, c.config.MQTT.QoS, c.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to frames topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("topic", c.config.Topics.Frames),
	)

	<-ctx.Done()
	return nil
}

// Stop unsubscribes.
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.Topics.Frames); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("MQTT consumer stopped")
	return nil
}

// handleMessage processes one frame batch. Every batch with a parseable topic gets an
// answer on ResultTopic, including failures.
func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	// 1. session id from the topic
	// topic format: rppg/{session_id}/frames
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[1] == "" {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	sessionID := parts[1]

	// 2. parse the batch
	var req models.BatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.logger.Error("Failed to unmarshal MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return c.reply(sessionID, processor.ErrorResponse(sessionID, fmt.Errorf("invalid payload: %w", err)))
	}
	if len(req.Frames) == 0 {
		return c.reply(sessionID, processor.ErrorResponse(sessionID, errors.New("no frames in request")))
	}

	// 3. run the pipeline
	res, err := c.processor.ProcessBatch(c.ctx, sessionID, req.Frames)
	if err != nil {
		c.logger.Warn("Frame batch failed",
			zap.String("session_id", sessionID),
			zap.Int("frames", len(req.Frames)),
			zap.Error(err),
		)
		return c.reply(sessionID, processor.ErrorResponse(sessionID, err))
	}

	// 4. answer
	return c.reply(sessionID, res.Response())
}

func (c *MQTTConsumer) reply(sessionID string, resp models.SubmissionResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := c.mqttClient.Publish(ResultTopic(sessionID), c.config.MQTT.QoS, false, data); err != nil {
		return fmt.Errorf("failed to publish result: %w", err)
	}
	return nil
}
