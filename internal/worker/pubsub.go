package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub consumer.
type PubSubConfig struct {
	ProjectID    string
	Subscription string

	// ResultTopic receives RouteJobResults; empty disables publishing.
	ResultTopic string

	// MaxOutstanding bounds concurrently handled messages (default: 10).
	MaxOutstanding int

	Logger zerolog.Logger
}

// PubSubClient owns the Pub/Sub connection used by the worker.
type PubSubClient struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	publisher    *pubsub.Publisher
	subscription string
	logger       zerolog.Logger

	received atomic.Int64
	lastSeen atomic.Int64 // unix nanos of the latest message
}

// NewPubSubClient connects to Pub/Sub and prepares the subscriber and the
// optional result publisher.
func NewPubSubClient(ctx context.Context, cfg PubSubConfig) (*PubSubClient, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}

	subscriber := client.Subscriber(cfg.Subscription)
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	c := &PubSubClient{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.Subscription,
		logger:       cfg.Logger,
	}
	if cfg.ResultTopic != "" {
		c.publisher = client.Publisher(cfg.ResultTopic)
	}
	return c, nil
}

// Publisher returns the result publisher, or nil when no topic is configured.
func (c *PubSubClient) Publisher() Publisher {
	if c.publisher == nil {
		return nil
	}
	return resultPublisher{p: c.publisher}
}

// Receive blocks, handing every message to proc until ctx is cancelled.
func (c *PubSubClient) Receive(ctx context.Context, proc *Processor) error {
	c.logger.Info().
		Str("subscription", c.subscription).
		Bool("publishing", c.publisher != nil).
		Msg("starting pubsub receiver")

	return c.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.received.Add(1)
		c.lastSeen.Store(time.Now().UnixNano())

		c.logger.Debug().
			Str("message_id", msg.ID).
			Time("publish_time", msg.PublishTime).
			Msg("received pubsub message")

		if proc.Process(ctx, msg.ID, msg.Data) == Nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// Stats returns the number of received messages and when the last one arrived.
func (c *PubSubClient) Stats() (received int64, lastSeen time.Time) {
	received = c.received.Load()
	if ns := c.lastSeen.Load(); ns > 0 {
		lastSeen = time.Unix(0, ns)
	}
	return received, lastSeen
}

// Close flushes pending results and closes the connection.
func (c *PubSubClient) Close() error {
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}

type resultPublisher struct {
	p *pubsub.Publisher
}

func (r resultPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	res := r.p.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publishing result: %w", err)
	}
	return nil
}
