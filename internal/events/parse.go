package events

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Kind classifies why a payload could not be parsed into an event.
type Kind string

const (
	KindMissingDiscriminator Kind = "missing_discriminator"
	KindUnknownEventType     Kind = "unknown_event_type"
	KindValidationError      Kind = "validation_error"
)

// FieldError pinpoints a single violated field so callers can see every
// problem with a payload, not just the first one found.
type FieldError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ParseError is the structured failure returned by Parse.
type ParseError struct {
	Kind      Kind         `json:"kind"`
	EventType string       `json:"event_type,omitempty"`
	Fields    []FieldError `json:"details,omitempty"`
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case KindMissingDiscriminator:
		return "payload does not contain event_type"
	case KindUnknownEventType:
		return fmt.Sprintf("payload type %q is not known", e.EventType)
	default:
		parts := make([]string, len(e.Fields))
		for i, fe := range e.Fields {
			parts[i] = fe.Path + " " + fe.Reason
		}
		return "invalid payload: " + strings.Join(parts, "; ")
	}
}

// Parse classifies and validates a decoded JSON object. It is pure and total:
// any JSON-decodable input yields either an Event or a ParseError, never a
// panic. An unrecognized event_type on an otherwise valid base payload parses
// into the Unknown variant.
func Parse(raw map[string]any) (Event, *ParseError) {
	typeValue, ok := raw["event_type"]
	if !ok {
		return nil, &ParseError{Kind: KindMissingDiscriminator}
	}
	eventType, ok := typeValue.(string)
	if !ok {
		return nil, &ParseError{
			Kind:   KindMissingDiscriminator,
			Fields: []FieldError{{Path: "event_type", Reason: "must be a string"}},
		}
	}

	switch eventType {
	case TypeEditionUpdated:
		return parseEditionUpdated(raw)
	default:
		var errs fieldErrors
		ts, _ := errs.timestamp(raw, "event_timestamp")
		if len(errs) > 0 {
			return nil, &ParseError{Kind: KindUnknownEventType, EventType: eventType, Fields: errs}
		}
		return &Unknown{EventType: eventType, EventTimestamp: ts}, nil
	}
}

func parseEditionUpdated(raw map[string]any) (Event, *ParseError) {
	var errs fieldErrors

	event := &EditionUpdated{EventType: TypeEditionUpdated}
	event.EventTimestamp, _ = errs.timestamp(raw, "event_timestamp")

	if product, ok := errs.object(raw, "product"); ok {
		event.Product = ProductInfo{
			URL:          errs.absoluteURL(product, "product.url"),
			PublishedURL: errs.absoluteURL(product, "product.published_url"),
			Title:        errs.nonEmptyString(product, "product.title"),
			Slug:         errs.nonEmptyString(product, "product.slug"),
		}
	}
	if edition, ok := errs.object(raw, "edition"); ok {
		event.Edition = EditionInfo{
			URL:          errs.absoluteURL(edition, "edition.url"),
			PublishedURL: errs.absoluteURL(edition, "edition.published_url"),
			Title:        errs.nonEmptyString(edition, "edition.title"),
			Slug:         errs.nonEmptyString(edition, "edition.slug"),
			BuildURL:     errs.absoluteURL(edition, "edition.build_url"),
		}
	}

	if len(errs) > 0 {
		return nil, &ParseError{Kind: KindValidationError, EventType: TypeEditionUpdated, Fields: errs}
	}
	return event, nil
}

// fieldErrors accumulates violations while the extraction helpers keep
// walking the payload, so one pass reports every problem.
type fieldErrors []FieldError

func (fe *fieldErrors) add(path, reason string) {
	*fe = append(*fe, FieldError{Path: path, Reason: reason})
}

func (fe *fieldErrors) str(obj map[string]any, path string) (string, bool) {
	name := path[strings.LastIndex(path, ".")+1:]
	value, ok := obj[name]
	if !ok {
		fe.add(path, "is required")
		return "", false
	}
	s, ok := value.(string)
	if !ok {
		fe.add(path, "must be a string")
		return "", false
	}
	return s, true
}

func (fe *fieldErrors) object(obj map[string]any, path string) (map[string]any, bool) {
	value, ok := obj[path]
	if !ok {
		fe.add(path, "is required")
		return nil, false
	}
	nested, ok := value.(map[string]any)
	if !ok {
		fe.add(path, "must be an object")
		return nil, false
	}
	return nested, true
}

func (fe *fieldErrors) nonEmptyString(obj map[string]any, path string) string {
	s, ok := fe.str(obj, path)
	if ok && s == "" {
		fe.add(path, "must not be empty")
	}
	return s
}

func (fe *fieldErrors) absoluteURL(obj map[string]any, path string) string {
	s, ok := fe.str(obj, path)
	if !ok {
		return ""
	}
	parsed, err := url.Parse(s)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		fe.add(path, "must be an absolute URL")
	}
	return s
}

// timestamp requires a fully time-qualified RFC 3339 value. A bare date has
// no unambiguous instant and is rejected.
func (fe *fieldErrors) timestamp(obj map[string]any, path string) (time.Time, bool) {
	s, ok := fe.str(obj, path)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		fe.add(path, "must be an RFC 3339 timestamp with a time component and zone")
		return time.Time{}, false
	}
	return ts, true
}
