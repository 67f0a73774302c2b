// Package kafka feeds error submissions from a Kafka topic into the pipeline.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"medical-alert-service/internal/logging"
	"medical-alert-service/internal/models"
)

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Submitter accepts submissions for asynchronous processing.
type Submitter interface {
	SubmitError(sub models.Submission)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	svc    Submitter
	logger *logging.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewConsumer(cfg Config, svc Submitter, logger *logging.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
		MaxWait:     time.Second,
	})
	return newConsumer(r, svc, logger)
}

func newConsumer(r messageReader, svc Submitter, logger *logging.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{reader: r, svc: svc, logger: logger, ctx: ctx, cancel: cancel}
}

// Start reads messages until Close is called.
func (c *Consumer) Start(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("Kafka consumer started")
		for {
			msg, err := c.reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				select {
				case <-c.ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			c.handle(msg)
		}
	}()
}

func (c *Consumer) handle(msg kafka.Message) {
	var sub models.Submission
	if err := json.Unmarshal(msg.Value, &sub); err != nil {
		c.logger.Errorf("Unmarshal message at offset %d failed: %v", msg.Offset, err)
		return
	}
	if sub.Error.Message == "" {
		c.logger.Warnf("Invalid message at offset %d: missing error.message", msg.Offset)
		return
	}
	c.svc.SubmitError(sub)
	c.logger.Debugf("Queued submission from offset %d", msg.Offset)
}

func (c *Consumer) Close() error {
	c.cancel()
	return c.reader.Close()
}
