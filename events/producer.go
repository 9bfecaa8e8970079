package events

import (
	"encoding/json"
	"fmt"
	"time"

	"shortsmith/logger"
	"shortsmith/timecode"
	"shortsmith/types"

	"github.com/IBM/sarama"
)

// Producer publishes status and moment events. Publishing is best effort; a
// broker outage never fails a run.
type Producer struct {
	producer     sarama.SyncProducer
	statusTopic  string
	momentsTopic string
	log          *logger.Logger
	now          func() time.Time
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	StatusTopic  string
	MomentsTopic string
}

// NewProducerConfig is the sarama config the producer runs with.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

func NewProducer(cfg ProducerConfig, log *logger.Logger) (*Producer, error) {
	p, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return newProducer(p, cfg, log), nil
}

func newProducer(p sarama.SyncProducer, cfg ProducerConfig, log *logger.Logger) *Producer {
	return &Producer{
		producer:     p,
		statusTopic:  cfg.StatusTopic,
		momentsTopic: cfg.MomentsTopic,
		log:          log.Named("kafka"),
		now:          time.Now,
	}
}

// Status publishes one progress line keyed by run.
func (p *Producer) Status(runID, message string) {
	p.send(p.statusTopic, runID, StatusEvent{RunID: runID, Message: message, Time: p.now()})
}

// Moments publishes the moments a chunk produced.
func (p *Producer) Moments(runID string, chunk types.Chunk, moments []types.Moment) {
	if moments == nil {
		moments = []types.Moment{}
	}
	p.send(p.momentsTopic, runID, MomentEvent{
		RunID:      runID,
		ChunkIndex: chunk.Index,
		ChunkStart: timecode.Format(chunk.Start),
		Moments:    moments,
		Time:       p.now(),
	})
}

func (p *Producer) send(topic, key string, event any) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Error("failed to marshal event")
		return
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		p.log.WithError(err).Warnf("failed to publish to %s", topic)
		return
	}
	p.log.Debugf("published to %s partition=%d offset=%d", topic, partition, offset)
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
