package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"shortsmith/logger"

	"github.com/IBM/sarama"
)

// MessageHandler decides what happens to one consumed message. A message is
// committed only when shouldMark is true.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// Consumer reads one topic as part of a consumer group.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	ready   chan bool
	log     *logger.Logger
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
}

func NewConsumer(cfg ConsumerConfig, log *logger.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:   group,
		handler: cfg.Handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		ready:   make(chan bool),
		log:     log.Named("kafka"),
	}, nil
}

// Start joins the group and blocks until the first session is set up. The
// consume loop then runs until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		handler: c.handler,
		ready:   c.ready,
		log:     c.log,
	}

	go func() {
		for {
			if err := c.group.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, context.Canceled) {
					c.log.Info("consumer context canceled")
					return
				}
				c.log.WithError(err).Error("consume failed")
			}
			if ctx.Err() != nil {
				return
			}
			handler.ready = make(chan bool)
		}
	}()

	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.log.Infof("consumer started (group: %s, topic: %s)", c.groupID, c.topic)

	go func() {
		for err := range c.group.Errors() {
			c.log.WithError(err).Error("consumer error")
		}
	}()
	return nil
}

func (c *Consumer) Close() error {
	c.log.Info("closing consumer")
	return c.group.Close()
}

type groupHandler struct {
	handler MessageHandler
	ready   chan bool
	log     *logger.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}
			h.log.Debugf("received message partition=%d offset=%d key=%s",
				message.Partition, message.Offset, string(message.Key))

			shouldMark, err := h.handler.HandleMessage(sess.Context(), message.Value)
			if err != nil {
				h.log.WithError(err).Error("failed to handle message")
			}
			if shouldMark {
				sess.MarkMessage(message, "")
			}

		case <-sess.Context().Done():
			return nil
		}
	}
}

// TypedMessageHandler decodes JSON messages into T before handing them on.
type TypedMessageHandler[T any] struct {
	Validate func(msg *T) bool
	Process  func(ctx context.Context, msg *T) error
	// AlwaysMark commits undecodable and invalid messages so they are not
	// redelivered. Processing failures are never marked.
	AlwaysMark bool
	Log        *logger.Logger
}

func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		if h.Log != nil {
			h.Log.WithError(err).Warn("failed to unmarshal message")
		}
		return h.AlwaysMark, nil
	}

	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}

	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}

// JobHandler runs one job to completion.
type JobHandler func(ctx context.Context, sourceURL string) error

// NewJobHandler turns job requests into handler calls. valid screens the URL
// before any work starts; nil accepts any non-empty URL.
func NewJobHandler(run JobHandler, valid func(string) bool, log *logger.Logger) *TypedMessageHandler[JobRequest] {
	log = log.Named("jobs")
	return &TypedMessageHandler[JobRequest]{
		Validate: func(req *JobRequest) bool {
			req.SourceURL = strings.TrimSpace(req.SourceURL)
			if req.SourceURL == "" {
				log.Warn("job request missing source_url, skipping")
				return false
			}
			if valid != nil && !valid(req.SourceURL) {
				log.Warnf("skipping job with unsupported url %q", req.SourceURL)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, req *JobRequest) error {
			log.Infof("processing job for %s", req.SourceURL)
			if err := run(ctx, req.SourceURL); err != nil {
				return err
			}
			log.Infof("job for %s finished", req.SourceURL)
			return nil
		},
		AlwaysMark: true,
		Log:        log,
	}
}
