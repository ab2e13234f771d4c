package transport

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"ltdevents/internal/config"
)

var NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// The framed key bytes stay in message metadata on NATS; there is no record
// key concept to map them onto.
func newNATSPublisher(conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return NATSPublisherFactory(
		nats.PublisherConfig{
			URL:         conf.NATSURL,
			NatsOptions: []natsgo.Option{natsgo.Name(conf.Name)},
			Marshaler:   &nats.NATSMarshaler{},
		},
		logger,
	)
}
