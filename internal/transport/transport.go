// Package transport builds the Watermill publisher for the configured broker.
// Kafka is the production transport; NATS and RabbitMQ are available for
// deployments without a Kafka cluster, and the in-process channel transport
// backs development and tests.
package transport

import (
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ltdevents/internal/config"
)

// GoChannelFactory is overridable so tests can capture the in-process pubsub.
var GoChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) message.Publisher {
	return gochannel.NewGoChannel(cfg, logger)
}

// NewPublisher constructs the publisher selected by conf.PubSubSystem.
func NewPublisher(conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}

	switch strings.ToLower(conf.PubSubSystem) {
	case "kafka", "":
		return newKafkaPublisher(conf, logger)
	case "nats":
		return newNATSPublisher(conf, logger)
	case "rabbitmq":
		return newRabbitMQPublisher(conf, logger)
	case "channel":
		return GoChannelFactory(gochannel.Config{}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported pubsub system %q", conf.PubSubSystem)
	}
}
