// Package events defines the webhook event model and the payload parser that
// turns decoded JSON objects into validated events.
//
// Events form a closed tagged union: the Event interface is sealed with an
// unexported marker method so the publication mapping can switch exhaustively
// over the concrete variants.
package events

import "time"

// TypeEditionUpdated is the discriminator value for edition update
// notifications from the control plane.
const TypeEditionUpdated = "edition.updated"

// Event is the sealed union of all webhook event variants. Instances are
// constructed per request by Parse and never mutated afterwards.
type Event interface {
	Type() string
	Timestamp() time.Time

	isEvent()
}

// ProductInfo describes the documentation project that owns an edition. The
// avro tags bind the fields to the registered value schema.
type ProductInfo struct {
	URL          string `avro:"url" json:"url"`
	PublishedURL string `avro:"published_url" json:"published_url"`
	Title        string `avro:"title" json:"title"`
	Slug         string `avro:"slug" json:"slug"`
}

// EditionInfo describes a published, versioned snapshot of a product's
// documentation site.
type EditionInfo struct {
	URL          string `avro:"url" json:"url"`
	PublishedURL string `avro:"published_url" json:"published_url"`
	Title        string `avro:"title" json:"title"`
	Slug         string `avro:"slug" json:"slug"`
	BuildURL     string `avro:"build_url" json:"build_url"`
}

// EditionUpdated is the "edition.updated" variant. The struct itself is the
// canonical value payload handed to the Avro encoder.
type EditionUpdated struct {
	EventType      string      `avro:"event_type" json:"event_type"`
	EventTimestamp time.Time   `avro:"event_timestamp" json:"event_timestamp"`
	Product        ProductInfo `avro:"product" json:"product"`
	Edition        EditionInfo `avro:"edition" json:"edition"`
}

func (e *EditionUpdated) Type() string         { return e.EventType }
func (e *EditionUpdated) Timestamp() time.Time { return e.EventTimestamp }
func (*EditionUpdated) isEvent()               {}

// EditionKey is the canonical key payload for an edition update. The pairing
// (product slug, edition slug) is the natural composite key for the message.
type EditionKey struct {
	ProductSlug string `avro:"product_slug" json:"product_slug"`
	EditionSlug string `avro:"edition_slug" json:"edition_slug"`
}

// Key flattens the nested slugs into the broker message key structure.
func (e *EditionUpdated) Key() EditionKey {
	return EditionKey{
		ProductSlug: e.Product.Slug,
		EditionSlug: e.Edition.Slug,
	}
}

// Unknown represents a structurally valid payload whose event_type matches no
// known variant. The handler accepts and drops these so the control plane can
// introduce new event types before this service learns to publish them.
type Unknown struct {
	EventType      string
	EventTimestamp time.Time
}

func (e *Unknown) Type() string         { return e.EventType }
func (e *Unknown) Timestamp() time.Time { return e.EventTimestamp }
func (*Unknown) isEvent()               {}
