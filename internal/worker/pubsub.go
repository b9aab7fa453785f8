package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in the job_type field of a message.
const (
	JobCatalogueImport = "catalogue_import"
	JobHealthCheck     = "health_check"
)

// PubSubHandler receives Pub/Sub messages and hands them to a Processor.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	processor        *Processor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Processor        *Processor
	Logger           zerolog.Logger
}

// JobMessage is the envelope of every worker message.
type JobMessage struct {
	JobType string            `json:"job_type"`
	BatchID string            `json:"batch_id,omitempty"`
	Spots   []json.RawMessage `json:"spots,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		processor:        cfg.Processor,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages. It blocks until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		logger := h.logger.With().
			Str("message_id", msg.ID).
			Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
			Logger()

		if err := h.processor.Process(logger.WithContext(ctx), msg.Data); err != nil {
			logger.Error().Err(err).Msg("job failed")
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// HealthCheckFunc probes the worker's dependencies.
type HealthCheckFunc func(ctx context.Context) error

// Processor dispatches decoded job messages.
type Processor struct {
	importJob   *ImportJob
	healthCheck HealthCheckFunc
	logger      zerolog.Logger
}

// NewProcessor creates a job processor. healthCheck may be nil.
func NewProcessor(importJob *ImportJob, healthCheck HealthCheckFunc, logger zerolog.Logger) *Processor {
	return &Processor{importJob: importJob, healthCheck: healthCheck, logger: logger}
}

// Process handles one message payload. A non-nil error means the message
// should be redelivered.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	startTime := time.Now()
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &p.logger
	}

	logger.Debug().Msg("received pubsub message")

	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	var err error
	switch msg.JobType {
	case JobCatalogueImport:
		err = p.handleImport(ctx, msg)
	case JobHealthCheck:
		err = p.handleHealthCheck(ctx)
	default:
		// Acked so unknown messages are not redelivered.
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
	if err != nil {
		return err
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")
	return nil
}

func (p *Processor) handleImport(ctx context.Context, msg JobMessage) error {
	result, err := p.importJob.Run(ctx, msg.BatchID, msg.Spots)
	if err != nil {
		return fmt.Errorf("catalogue import: %w", err)
	}

	// Consider it successful unless more spots failed than were stored.
	if result.Failed() > result.Succeeded() {
		return fmt.Errorf("too many import failures in batch %s: %d/%d", result.BatchID, result.Failed(), result.Total)
	}
	return nil
}

func (p *Processor) handleHealthCheck(ctx context.Context) error {
	p.logger.Debug().Msg("running health check")

	if p.healthCheck == nil {
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.healthCheck(checkCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}
