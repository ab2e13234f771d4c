package schemaregistry

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hamba/avro/v2"

	"ltdevents/internal/events"
)

type fakeRegistry struct {
	nextID      int
	byQualified map[string]int // subject + "\x00" + schema -> id
	compat      map[string]string
	registerErr error
	compatErr   error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		nextID:      1,
		byQualified: make(map[string]int),
		compat:      make(map[string]string),
	}
}

func (f *fakeRegistry) Register(subject, schema string) (int, error) {
	if f.registerErr != nil {
		return 0, f.registerErr
	}
	key := subject + "\x00" + schema
	if id, ok := f.byQualified[key]; ok {
		return id, nil
	}
	id := f.nextID
	f.nextID++
	f.byQualified[key] = id
	return id, nil
}

func (f *fakeRegistry) SetCompatibility(subject, level string) error {
	if f.compatErr != nil {
		return f.compatErr
	}
	f.compat[subject] = level
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func registeredManager(t *testing.T, reg RegistryClient, suffix string) *Manager {
	t.Helper()
	m, err := NewManager(reg, suffix, "FORWARD", testLogger())
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	if err := m.RegisterAll(); err != nil {
		t.Fatalf("unexpected registration error: %v", err)
	}
	return m
}

func sampleEvent() *events.EditionUpdated {
	return &events.EditionUpdated{
		EventType:      events.TypeEditionUpdated,
		EventTimestamp: time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC),
		Product: events.ProductInfo{
			URL:          "https://keeper.lsst.codes/products/example",
			PublishedURL: "https://example.lsst.io/",
			Title:        "Example product",
			Slug:         "example",
		},
		Edition: events.EditionInfo{
			URL:          "https://keeper.lsst.codes/editions/1234",
			PublishedURL: "https://example.lsst.io/v/1.0",
			Title:        "Version 1.0",
			Slug:         "1.0",
			BuildURL:     "https://keeper.lsst.codes/builds/1",
		},
	}
}

func TestNewManagerRequiresClient(t *testing.T) {
	if _, err := NewManager(nil, "", "FORWARD", testLogger()); !errors.Is(err, ErrRegistryRequired) {
		t.Fatalf("expected ErrRegistryRequired, got %v", err)
	}
}

func TestRegisterAllIsIdempotent(t *testing.T) {
	fake := newFakeRegistry()

	first := registeredManager(t, fake, "")
	firstKey, err := first.Encode(SchemaEditionKey, events.EditionKey{ProductSlug: "p", EditionSlug: "e"})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	second := registeredManager(t, fake, "")
	secondKey, err := second.Encode(SchemaEditionKey, events.EditionKey{ProductSlug: "p", EditionSlug: "e"})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	if !bytes.Equal(firstKey, secondKey) {
		t.Fatal("expected identical encodings after re-registration of identical schemas")
	}
}

func TestRegisterAllAppliesCompatibilityAndSuffix(t *testing.T) {
	fake := newFakeRegistry()
	registeredManager(t, fake, "_staging")

	for _, subject := range []string{"ltd.edition_key_v1_staging", "ltd.edition_update_v1_staging"} {
		if fake.compat[subject] != "FORWARD" {
			t.Errorf("expected FORWARD compatibility on %s, got %q", subject, fake.compat[subject])
		}
	}
}

func TestRegisterAllPropagatesRegistryErrors(t *testing.T) {
	fake := newFakeRegistry()
	fake.registerErr = errors.New("incompatible schema")

	m, err := NewManager(fake, "", "FORWARD", testLogger())
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	if err := m.RegisterAll(); err == nil {
		t.Fatal("expected registration failure to propagate")
	}
}

func TestRegisterAllPropagatesCompatibilityErrors(t *testing.T) {
	fake := newFakeRegistry()
	fake.compatErr = errors.New("registry unreachable")

	m, err := NewManager(fake, "", "FORWARD", testLogger())
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	if err := m.RegisterAll(); err == nil {
		t.Fatal("expected compatibility failure to propagate")
	}
}

func TestEncodeWireHeader(t *testing.T) {
	fake := newFakeRegistry()
	m := registeredManager(t, fake, "")

	encoded, err := m.Encode(SchemaEditionKey, events.EditionKey{ProductSlug: "example", EditionSlug: "1.0"})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	if len(encoded) < 6 {
		t.Fatalf("encoded message too short: %d bytes", len(encoded))
	}
	if encoded[0] != 0x0 {
		t.Fatalf("expected magic byte 0x0, got %#x", encoded[0])
	}

	id := binary.BigEndian.Uint32(encoded[1:5])
	wantID := fake.byQualified[subjectKeyFor(t, fake, "ltd.edition_key_v1")]
	if int(id) != wantID {
		t.Fatalf("expected schema ID %d in header, got %d", wantID, id)
	}
}

// subjectKeyFor finds the fake's composite key for a subject, so header tests
// do not hardcode assignment order.
func subjectKeyFor(t *testing.T, fake *fakeRegistry, subject string) string {
	t.Helper()
	for key := range fake.byQualified {
		if strings.HasPrefix(key, subject+"\x00") {
			return key
		}
	}
	t.Fatalf("no registration found for subject %s", subject)
	return ""
}

func TestEncodeBodyRoundTrips(t *testing.T) {
	m := registeredManager(t, newFakeRegistry(), "")
	event := sampleEvent()

	encoded, err := m.Encode(SchemaEditionUpdate, event)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	text, err := schemaText(SchemaEditionUpdate)
	if err != nil {
		t.Fatalf("failed to load schema text: %v", err)
	}
	schema := avro.MustParse(text)

	var decoded events.EditionUpdated
	if err := avro.Unmarshal(schema, encoded[5:], &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.Product.Slug != "example" || decoded.Edition.Slug != "1.0" {
		t.Fatalf("unexpected decoded event %+v", decoded)
	}
	if !decoded.EventTimestamp.Equal(event.EventTimestamp) {
		t.Fatalf("expected timestamp %v, got %v", event.EventTimestamp, decoded.EventTimestamp)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	m := registeredManager(t, newFakeRegistry(), "")
	event := sampleEvent()

	first, err := m.Encode(SchemaEditionUpdate, event)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	second, err := m.Encode(SchemaEditionUpdate, event)
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected byte-identical output for repeated encoding")
	}
}

func TestEncodeUnregisteredSchema(t *testing.T) {
	m, err := NewManager(newFakeRegistry(), "", "FORWARD", testLogger())
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	if _, err := m.Encode(SchemaEditionKey, events.EditionKey{}); err == nil {
		t.Fatal("expected error for unregistered schema")
	}
}

func TestEncodeNonConformingValue(t *testing.T) {
	m := registeredManager(t, newFakeRegistry(), "")

	_, err := m.Encode(SchemaEditionUpdate, map[string]any{"event_type": 12})
	if err == nil {
		t.Fatal("expected encoding error for non-conforming value")
	}
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected *EncodingError, got %T", err)
	}
	if encErr.Name != SchemaEditionUpdate {
		t.Fatalf("expected schema name in error, got %q", encErr.Name)
	}
}
