package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"medical-alert-service/internal/api"
	"medical-alert-service/internal/channels"
	"medical-alert-service/internal/config"
	"medical-alert-service/internal/db"
	"medical-alert-service/internal/escalation"
	"medical-alert-service/internal/fallback"
	"medical-alert-service/internal/history"
	"medical-alert-service/internal/kafka"
	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/metrics"
	"medical-alert-service/internal/monitoring"
	"medical-alert-service/internal/providers"
	"medical-alert-service/internal/ratelimit"
	"medical-alert-service/internal/taxonomy"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config load failed:", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatal("Logger init failed:", err)
	}
	defer logger.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Team directory
	directory := taxonomy.DefaultDirectory()
	if cfg.Pipeline.TeamsFile != "" {
		if directory, err = taxonomy.LoadDirectory(cfg.Pipeline.TeamsFile); err != nil {
			logger.Fatalf("Team directory load failed: %v", err)
		}
	}

	// Incident storage
	var incidents db.IncidentStore = db.NewMemory()
	if cfg.DB.DSN != "" {
		dbConn, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			logger.Fatalf("DB connect failed: %v", err)
		}
		defer dbConn.Close()
		if err := dbConn.Migrate(ctx); err != nil {
			logger.Fatalf("DB migrate failed: %v", err)
		}
		incidents = dbConn
	} else {
		logger.Warn("DB_DSN not set, incidents are kept in memory")
	}

	collector := metrics.NewCollector()

	// Monitoring sinks
	sinks := []monitoring.Sink{collector, monitoring.NewLogSink(logger)}
	var kafkaSink *monitoring.KafkaSink
	if cfg.Kafka.Broker != "" {
		kafkaSink = monitoring.NewKafkaSink([]string{cfg.Kafka.Broker}, cfg.Kafka.MonitoringTopic)
		sinks = append(sinks, kafkaSink)
	}

	// Channels
	limiter := ratelimit.New(cfg.RateLimits)
	dispatcher := channels.New(limiter, logger,
		channels.WithTimeout(cfg.Pipeline.DispatchTimeout),
		channels.WithObserver(collector),
	)
	registerChannels(dispatcher, cfg, logger)

	hub := fallback.NewHub(logger)

	// Initialize escalation service
	svc := escalation.New(escalation.Dependencies{
		Dispatcher: dispatcher,
		Directory:  directory,
		History:    history.New(cfg.Pipeline.HistoryCapacity),
		Monitor:    monitoring.NewMulti(sinks...),
		Incidents:  incidents,
		Fallback:   hub,
		Recorder:   collector,
		Logger:     logger,
	}, escalation.Config{
		QueueSize:  cfg.Pipeline.QueueSize,
		MaxWorkers: cfg.Pipeline.MaxWorkers,
	})
	var wg sync.WaitGroup
	svc.Start(&wg)

	// Start Kafka consumer
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(kafka.Config{
			Brokers: []string{cfg.Kafka.Broker},
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, svc, logger)
		consumer.Start(&wg)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	} else {
		logger.Warn("KAFKA_BROKER not set, accepting errors over HTTP only")
	}

	// Start API server
	handler := api.NewHandler(svc, incidents, dispatcher, limiter, logger)
	router := api.NewRouter(handler, logger, api.RouterConfig{
		BasePath: cfg.API.BasePath,
		Metrics:  collector.Handler(),
		Fallback: hub,
	})
	srv := &http.Server{Addr: cfg.API.Port, Handler: router}
	go func() {
		logger.Infof("API started on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("API run failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutting down...")

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown failed: %v", err)
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Errorf("Kafka consumer close failed: %v", err)
		}
	}
	svc.Stop()
	wg.Wait()
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			logger.Errorf("Kafka monitoring writer close failed: %v", err)
		}
	}
	logger.Info("Service stopped")
}

// registerChannels wires every transport that has credentials configured.
func registerChannels(d *channels.Dispatcher, cfg config.Config, logger *logging.Logger) {
	if email, err := providers.NewEmail(providers.EmailConfig{
		SMTPServer: cfg.Email.SMTPServer,
		SMTPPort:   cfg.Email.SMTPPort,
		Username:   cfg.Email.Username,
		Password:   cfg.Email.Password,
		From:       cfg.Email.From,
	}); err != nil {
		logger.Warnf("Email channel disabled: %v", err)
	} else {
		d.Register("email", email)
	}

	if voice, err := providers.NewVoice(providers.VoiceConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		FromNumber: cfg.Twilio.FromNumber,
	}); err != nil {
		logger.Warnf("Voice channel disabled: %v", err)
	} else {
		d.Register("voice", voice)
	}

	if cfg.Telegram.BotToken == "" {
		logger.Warn("Chat channel disabled: TELEGRAM_BOT_TOKEN not set")
	} else if chat, err := providers.NewChat(cfg.Telegram.BotToken, cfg.Telegram.RatePerSecond, logger); err != nil {
		logger.Warnf("Chat channel disabled: %v", err)
	} else {
		d.Register("chat", chat)
	}

	d.Register("webhook", providers.NewWebhook())
	logger.Infof("Registered channels: %v", d.Channels())
}
