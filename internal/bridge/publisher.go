// Package bridge orchestrates the webhook pipeline: parse the payload, encode
// it against the registered schemas, and publish the result to the broker.
package bridge

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"ltdevents/internal/ids"
	"ltdevents/internal/transport"
)

var (
	ErrPublisherRequired = errors.New("ltdevents: publisher is required")
	ErrTopicRequired     = errors.New("ltdevents: topic is required")
)

type correlationIDKey struct{}

// WithCorrelationID stores a request correlation ID on the context so the
// publisher can attach it to outgoing messages.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID returns the correlation ID stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// Publisher sends framed key/value pairs to a single configured topic. The
// underlying Watermill publisher is shared and safe for concurrent use.
type Publisher struct {
	publisher message.Publisher
	topic     string
}

func NewPublisher(publisher message.Publisher, topic string) (*Publisher, error) {
	if publisher == nil {
		return nil, ErrPublisherRequired
	}
	if topic == "" {
		return nil, ErrTopicRequired
	}
	return &Publisher{publisher: publisher, topic: topic}, nil
}

func (p *Publisher) Topic() string { return p.topic }

// Publish sends one message and returns once the broker acknowledges it.
// Exactly one attempt per call; redelivery is the webhook caller's concern.
func (p *Publisher) Publish(ctx context.Context, key, value []byte) error {
	msg := message.NewMessage(ids.NewID(), value)
	msg.Metadata.Set(transport.KeyMetadataField, string(key))
	if id := CorrelationID(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}
	msg.SetContext(ctx)

	return p.publisher.Publish(p.topic, msg)
}
