// Package schemaregistry registers the service's Avro schemas with a
// Confluent Schema Registry at startup and encodes key/value payloads into
// the Confluent wire format at request time.
//
// Registration and encoding are deliberately split: registration talks to the
// registry once during startup, while Encode only reads the in-memory
// registration record, keeping the request hot path free of registry I/O.
package schemaregistry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hamba/avro/v2"
	"github.com/riferrei/srclient"
)

// wireFormatMagicByte prefixes every encoded message per the Confluent wire
// format: magic byte, big-endian uint32 schema ID, Avro-encoded body.
const wireFormatMagicByte byte = 0x0

var ErrRegistryRequired = errors.New("ltdevents: registry client is required")

// EncodingError reports structured data that does not conform to its
// registered schema. The HTTP layer treats it as a validation failure.
type EncodingError struct {
	Name string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Name, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// RegistryClient is the slice of the Confluent registry API the manager
// needs. Production wires the srclient REST client; tests inject a fake.
type RegistryClient interface {
	// Register submits a schema under a subject and returns its registry ID.
	// Submitting a byte-identical schema again returns the existing ID.
	Register(subject, schema string) (int, error)
	// SetCompatibility applies a compatibility level to a subject.
	SetCompatibility(subject, level string) error
}

type registration struct {
	id     int
	schema avro.Schema
}

// Manager owns the subject naming convention and the registration record.
// After RegisterAll returns, the record is immutable and safe for concurrent
// readers.
type Manager struct {
	client        RegistryClient
	suffix        string
	compatibility string
	log           *slog.Logger

	registrations map[string]registration
}

// NewManager creates an unregistered manager. Call RegisterAll before Encode.
func NewManager(client RegistryClient, suffix, compatibility string, log *slog.Logger) (*Manager, error) {
	if client == nil {
		return nil, ErrRegistryRequired
	}
	return &Manager{
		client:        client,
		suffix:        suffix,
		compatibility: compatibility,
		log:           log,
		registrations: make(map[string]registration),
	}, nil
}

// RegisterAll submits every known schema to the registry and records the
// returned IDs. Re-running against an unchanged registry is a no-op success;
// any registry error (unreachable, incompatible revision) aborts startup.
func (m *Manager) RegisterAll() error {
	names := make([]string, 0, len(schemaFiles))
	for name := range schemaFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		text, err := schemaText(name)
		if err != nil {
			return err
		}
		parsed, err := avro.Parse(text)
		if err != nil {
			return fmt.Errorf("invalid embedded schema %q: %w", name, err)
		}

		subject := m.Subject(name)
		id, err := m.client.Register(subject, text)
		if err != nil {
			return fmt.Errorf("failed to register subject %q: %w", subject, err)
		}
		if err := m.client.SetCompatibility(subject, m.compatibility); err != nil {
			return fmt.Errorf("failed to set compatibility for subject %q: %w", subject, err)
		}

		m.registrations[name] = registration{id: id, schema: parsed}
		m.log.Info("registered schema",
			"subject", subject,
			"schema_id", id,
			"compatibility", m.compatibility,
		)
	}
	return nil
}

// Subject maps a schema name to its registry subject.
func (m *Manager) Subject(name string) string {
	return name + m.suffix
}

// Encode serializes v against the registered schema for name and frames it
// with the wire header. It never contacts the registry.
func (m *Manager) Encode(name string, v any) ([]byte, error) {
	reg, ok := m.registrations[name]
	if !ok {
		return nil, fmt.Errorf("schema %q is not registered", name)
	}

	body, err := avro.Marshal(reg.schema, v)
	if err != nil {
		return nil, &EncodingError{Name: name, Err: err}
	}

	out := make([]byte, 0, 5+len(body))
	out = append(out, wireFormatMagicByte)
	out = binary.BigEndian.AppendUint32(out, uint32(reg.id))
	return append(out, body...), nil
}

type confluentRegistry struct {
	client *srclient.SchemaRegistryClient
}

// NewConfluentRegistry returns a RegistryClient backed by the registry's REST
// API at url.
func NewConfluentRegistry(url string) RegistryClient {
	return &confluentRegistry{client: srclient.NewSchemaRegistryClient(url)}
}

func (r *confluentRegistry) Register(subject, schema string) (int, error) {
	registered, err := r.client.CreateSchema(subject, schema, srclient.Avro)
	if err != nil {
		return 0, err
	}
	return registered.ID(), nil
}

func (r *confluentRegistry) SetCompatibility(subject, level string) error {
	_, err := r.client.ChangeSubjectCompatibilityLevel(subject, srclient.CompatibilityLevel(level))
	return err
}
