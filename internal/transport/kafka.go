package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"ltdevents/internal/config"
)

// KeyMetadataField carries the already-framed message key bytes through
// Watermill metadata so the marshaler can place them in the Kafka record key.
const KeyMetadataField = "kafka_message_key"

const uuidHeaderKey = "_watermill_message_uuid"

var KafkaPublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// WireKeyMarshaler maps a Watermill message onto a Kafka record whose key is
// the schema-framed bytes from KeyMetadataField rather than a partition hash
// of the message UUID. Remaining metadata travels as record headers.
type WireKeyMarshaler struct{}

func (WireKeyMarshaler) Marshal(topic string, msg *message.Message) (*sarama.ProducerMessage, error) {
	key := msg.Metadata.Get(KeyMetadataField)
	if key == "" {
		return nil, fmt.Errorf("message %s has no %s metadata", msg.UUID, KeyMetadataField)
	}

	headers := make([]sarama.RecordHeader, 0, len(msg.Metadata))
	for field, value := range msg.Metadata {
		if field == KeyMetadataField {
			continue
		}
		headers = append(headers, sarama.RecordHeader{Key: []byte(field), Value: []byte(value)})
	}
	headers = append(headers, sarama.RecordHeader{Key: []byte(uuidHeaderKey), Value: []byte(msg.UUID)})

	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.ByteEncoder(key),
		Value:   sarama.ByteEncoder(msg.Payload),
		Headers: headers,
	}, nil
}

func newKafkaPublisher(conf *config.Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaConfig.ClientID = conf.KafkaClientID
	// Publish returns only after the full ISR has acknowledged the write.
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll

	if strings.EqualFold(conf.KafkaProtocol, "SSL") {
		tlsConfig, err := newTLSConfig(conf)
		if err != nil {
			return nil, err
		}
		saramaConfig.Net.TLS.Enable = true
		saramaConfig.Net.TLS.Config = tlsConfig
	}

	return KafkaPublisherFactory(
		kafka.PublisherConfig{
			Brokers:               conf.KafkaBrokers,
			Marshaler:             WireKeyMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		logger,
	)
}

func newTLSConfig(conf *config.Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(conf.KafkaClientCertPath, conf.KafkaClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load kafka client keypair: %w", err)
	}

	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}
	if conf.KafkaClusterCAPath != "" {
		caPEM, err := os.ReadFile(conf.KafkaClusterCAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read kafka cluster CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("no certificates found in %s", conf.KafkaClusterCAPath)
		}
		tlsConfig.RootCAs = pool
	}
	return tlsConfig, nil
}
