package transport

import (
	"bytes"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
)

func TestWireKeyMarshalerSetsRecordKey(t *testing.T) {
	msg := message.NewMessage("uuid-1", []byte{0x0, 0x0, 0x0, 0x0, 0x2, 0xde, 0xad})
	keyBytes := []byte{0x0, 0x0, 0x0, 0x0, 0x1, 0xbe, 0xef}
	msg.Metadata.Set(KeyMetadataField, string(keyBytes))
	msg.Metadata.Set("correlation_id", "req-42")

	produced, err := WireKeyMarshaler{}.Marshal("ltd.events", msg)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	if produced.Topic != "ltd.events" {
		t.Errorf("expected topic ltd.events, got %q", produced.Topic)
	}

	gotKey, err := produced.Key.Encode()
	if err != nil {
		t.Fatalf("unexpected key encode error: %v", err)
	}
	if !bytes.Equal(gotKey, keyBytes) {
		t.Fatalf("expected record key %v, got %v", keyBytes, gotKey)
	}

	gotValue, err := produced.Value.Encode()
	if err != nil {
		t.Fatalf("unexpected value encode error: %v", err)
	}
	if !bytes.Equal(gotValue, msg.Payload) {
		t.Fatal("expected record value to be the message payload")
	}

	var sawCorrelation, sawKeyField bool
	for _, header := range produced.Headers {
		switch string(header.Key) {
		case "correlation_id":
			sawCorrelation = true
		case KeyMetadataField:
			sawKeyField = true
		}
	}
	if !sawCorrelation {
		t.Error("expected metadata to be copied into record headers")
	}
	if sawKeyField {
		t.Error("expected key metadata field to be excluded from headers")
	}
}

func TestWireKeyMarshalerRequiresKey(t *testing.T) {
	msg := message.NewMessage("uuid-2", []byte("payload"))
	if _, err := (WireKeyMarshaler{}).Marshal("ltd.events", msg); err == nil {
		t.Fatal("expected error for message without key metadata")
	}
}
