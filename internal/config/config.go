// Package config loads and validates the process configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting. All values come from LTD_EVENTS_*
// environment variables; see the envDefault tags for the defaults.
type Config struct {
	// Name doubles as the application identifier reported by GET /.
	Name     string `env:"LTD_EVENTS_NAME" envDefault:"ltdevents"`
	Version  string `env:"LTD_EVENTS_VERSION" envDefault:"dev"`
	Profile  string `env:"LTD_EVENTS_PROFILE" envDefault:"development"`
	LogLevel string `env:"LTD_EVENTS_LOG_LEVEL" envDefault:"info"`

	HTTPAddr string `env:"LTD_EVENTS_HTTP_ADDR" envDefault:":8080"`

	// PubSubSystem selects the broker transport: "kafka" (default), "nats",
	// "rabbitmq", or "channel" (in-process, for development and tests).
	PubSubSystem string `env:"LTD_EVENTS_PUBSUB_SYSTEM" envDefault:"kafka"`

	KafkaBrokers  []string `env:"LTD_EVENTS_KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaClientID string   `env:"LTD_EVENTS_KAFKA_CLIENT_ID" envDefault:"ltdevents"`
	// KafkaProtocol is "SSL" or "PLAINTEXT".
	KafkaProtocol       string `env:"LTD_EVENTS_KAFKA_PROTOCOL" envDefault:"PLAINTEXT"`
	KafkaClusterCAPath  string `env:"LTD_EVENTS_KAFKA_CLUSTER_CA"`
	KafkaClientCertPath string `env:"LTD_EVENTS_KAFKA_CLIENT_CERT"`
	KafkaClientKeyPath  string `env:"LTD_EVENTS_KAFKA_CLIENT_KEY"`

	NATSURL     string `env:"LTD_EVENTS_NATS_URL"`
	RabbitMQURL string `env:"LTD_EVENTS_RABBITMQ_URL"`

	// RegistryURL is the Confluent Schema Registry endpoint. Leaving it empty
	// disables schema registration and publication entirely (dry mode).
	RegistryURL string `env:"LTD_EVENTS_REGISTRY_URL"`
	// SchemaCompatibility is applied to every subject during registration.
	SchemaCompatibility string `env:"LTD_EVENTS_SCHEMA_COMPATIBILITY" envDefault:"FORWARD"`
	// SchemaSuffix distinguishes staging deployments sharing one registry.
	SchemaSuffix string `env:"LTD_EVENTS_SCHEMA_SUFFIX"`

	Topic string `env:"LTD_EVENTS_KAFKA_TOPIC" envDefault:"ltd.events"`

	MetricsEnabled bool `env:"LTD_EVENTS_METRICS_ENABLED" envDefault:"true"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is complete for the selected
// transport and registry mode.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateTransport()...)

	if c.Topic == "" {
		errs = append(errs, errors.New("topic: output topic is required"))
	}
	if c.RegistryURL != "" {
		if _, err := url.ParseRequestURI(c.RegistryURL); err != nil {
			errs = append(errs, fmt.Errorf("registry: invalid URL: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateTransport() []error {
	switch strings.ToLower(c.PubSubSystem) {
	case "kafka":
		var errs []error
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka: brokers are required"))
		}
		switch strings.ToUpper(c.KafkaProtocol) {
		case "PLAINTEXT":
		case "SSL":
			if c.KafkaClientCertPath == "" || c.KafkaClientKeyPath == "" {
				errs = append(errs, errors.New("kafka: SSL protocol requires client cert and key paths"))
			}
		default:
			errs = append(errs, fmt.Errorf("kafka: unsupported protocol %q", c.KafkaProtocol))
		}
		return errs
	case "nats":
		if c.NATSURL == "" {
			return []error{errors.New("nats: URL is required")}
		}
	case "rabbitmq":
		if c.RabbitMQURL == "" {
			return []error{errors.New("rabbitmq: URL is required")}
		}
	case "channel":
	default:
		return []error{fmt.Errorf("unsupported pubsub system %q", c.PubSubSystem)}
	}
	return nil
}

// String renders the configuration with credentials embedded in connection
// URLs masked, so it is safe to log at startup.
func (c Config) String() string {
	clone := c
	if clone.NATSURL != "" {
		clone.NATSURL = redactURLCredentials(clone.NATSURL)
	}
	if clone.RabbitMQURL != "" {
		clone.RabbitMQURL = redactURLCredentials(clone.RabbitMQURL)
	}
	if clone.RegistryURL != "" {
		clone.RegistryURL = redactURLCredentials(clone.RegistryURL)
	}
	// Type alias avoids recursing back into String.
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(clone))
}

func redactURLCredentials(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "***REDACTED_URL***"
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "***REDACTED***")
		}
	}
	return parsed.String()
}
