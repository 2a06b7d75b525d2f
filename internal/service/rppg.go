// Package service wires the rPPG service: backends, frame processing, HTTP and MQTT ingress.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"wisefido-rppg/common/database"
	mqttcommon "wisefido-rppg/common/mqtt"
	natscommon "wisefido-rppg/common/nats"
	rediscommon "wisefido-rppg/common/redis"
	"wisefido-rppg/internal/config"
	"wisefido-rppg/internal/consumer"
	"wisefido-rppg/internal/detector"
	"wisefido-rppg/internal/httpapi"
	"wisefido-rppg/internal/pipeline"
	"wisefido-rppg/internal/processor"
	"wisefido-rppg/internal/publisher"
	"wisefido-rppg/internal/repository"
	"wisefido-rppg/internal/session"
	"wisefido-rppg/internal/store"
)

// RPPGService owns every long-lived component of the service.
type RPPGService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	redis      *redis.Client
	mqttClient *mqttcommon.Client
	natsConn   *nats.Conn
	sessions   *session.Manager
	processor  *processor.FrameProcessor
	hub        *publisher.Hub
	server     *Server
	consumer   *consumer.MQTTConsumer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRPPGService connects the enabled backends and builds the processing graph.
// An enabled backend that cannot be reached is an error.
func NewRPPGService(cfg *config.Config, logger *zap.Logger) (*RPPGService, error) {
	s := &RPPGService{config: cfg, logger: logger}
	if err := s.init(); err != nil {
		s.closeBackends()
		return nil, err
	}
	return s, nil
}

func (s *RPPGService) init() error {
	cfg := s.config
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. pipeline settings, checked once up front
	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		return fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	if _, err := pipeline.New(pcfg); err != nil {
		return fmt.Errorf("invalid pipeline configuration: %w", err)
	}
	roiMode, err := config.ParseROI(cfg.RPPG.ROI)
	if err != nil {
		return err
	}
	s.sessions = session.NewManager(func() (*pipeline.Pipeline, error) {
		return pipeline.New(pcfg)
	}, cfg.RPPG.SessionTTL, s.logger)

	sinks := publisher.NewFanout(s.logger)
	health := httpapi.NewHealthHandler(s.sessions.Len)
	var latestStore httpapi.LatestStore
	opts := processor.Options{ROIMode: roiMode, FacePadding: cfg.RPPG.FacePaddingPx, Sinks: sinks}

	// 2. Postgres history
	if cfg.DatabaseEnabled {
		db, err := database.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		repo := repository.NewEstimateRepository(db, s.logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare estimate table: %w", err)
		}
		opts.History = repo
		health.AddCheck("database", db.PingContext)
	}

	// 3. Redis latest cache and estimate stream
	if cfg.RedisEnabled {
		client, err := rediscommon.Connect(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = client
		latest := store.NewLatestCache(store.NewRedisKVStore(s.redis), cfg.Cache.EstimateTTL, s.logger)
		opts.Latest = latest
		latestStore = latest
		sinks.Add(publisher.NewStreamSink(s.redis, publisher.EstimateStream, cfg.Cache.StreamMaxLen))
		health.AddCheck("redis", rediscommon.Checker(s.redis))
	}

	// 4. MQTT estimates sink; the consumer is created below
	if cfg.MQTTEnabled {
		client, err := mqttcommon.NewClient(&cfg.MQTT, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to MQTT: %w", err)
		}
		s.mqttClient = client
		sinks.Add(publisher.NewMQTTSink(client, cfg.MQTT.QoS))
		health.AddCheck("mqtt", func(context.Context) error {
			if !client.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}

	// 5. NATS analytics bus
	if cfg.NATSEnabled {
		conn, err := natscommon.Connect(&cfg.NATS)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		s.natsConn = conn
		sinks.Add(publisher.NewNATSSink(conn, publisher.EstimateSubject))
		health.AddCheck("nats", func(context.Context) error {
			if !conn.IsConnected() {
				return fmt.Errorf("status %s", conn.Status())
			}
			return nil
		})
	}

	// 6. websocket hub for browsers
	s.hub = publisher.NewHub(s.logger)
	sinks.Add(s.hub)

	// 7. detector and processor
	var det detector.Detector = detector.FullFrame()
	if cfg.Detector.URL != "" {
		det = detector.NewLandmarkClient(cfg.Detector.URL, cfg.Detector.Timeout, s.logger)
	}
	s.processor = processor.NewFrameProcessor(s.sessions, det, opts, s.logger)

	// 8. transports
	router := httpapi.NewRouter(s.logger)
	router.RegisterFrameRoutes(httpapi.NewFrameHandler(s.processor, s.sessions, latestStore, cfg.HTTP.MaxBodyBytes, s.logger))
	router.RegisterLiveRoutes(s.hub)
	router.RegisterHealthRoutes(health)
	s.server = NewServer(cfg.HTTP.Addr, router, cfg.HTTP.ReadHeaderTimeout, s.logger)

	if s.mqttClient != nil {
		s.consumer = consumer.NewMQTTConsumer(cfg, s.mqttClient, s.processor, s.logger)
	}

	s.logger.Info("rPPG service configured",
		zap.String("buffer_policy", pcfg.Policy.String()),
		zap.Int("window", pcfg.WindowLen()),
		zap.String("classifier", pcfg.Table.Name()),
		zap.Bool("detector", cfg.Detector.URL != ""),
		zap.Int("sinks", sinks.Len()),
	)
	return nil
}

// Addr is the bound HTTP address once Start has returned.
func (s *RPPGService) Addr() string {
	return s.server.Addr()
}

// Start binds the HTTP listener and runs the server, the session janitor and the MQTT
// consumer in the background.
func (s *RPPGService) Start(ctx context.Context) error {
	s.logger.Info("Starting rPPG service components")

	if err := s.server.Listen(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Start(); err != nil {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessions.Run(ctx, sweepInterval(s.config.RPPG.SessionTTL))
	}()

	if s.consumer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil {
				s.logger.Error("MQTT consumer failed", zap.Error(err))
			}
		}()
	}

	s.logger.Info("rPPG service started successfully", zap.String("addr", s.Addr()))
	return nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return max(ttl/2, time.Second)
}

// Stop shuts the components down in reverse order of their dependencies.
func (s *RPPGService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping rPPG service")

	if s.server != nil {
		if err := s.server.Stop(ctx); err != nil {
			s.logger.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.closeBackends()

	s.logger.Info("rPPG service stopped")
	return nil
}

func (s *RPPGService) closeBackends() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.natsConn != nil {
		s.natsConn.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
