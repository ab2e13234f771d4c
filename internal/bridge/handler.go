package bridge

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ltdevents/internal/events"
	"ltdevents/internal/ids"
	"ltdevents/internal/jsoncodec"
	"ltdevents/internal/schemaregistry"
)

// Webhook payloads are small JSON documents; anything larger is malformed.
const maxBodyBytes = 1 << 20

// AppMetadata is what GET / reports about the running process.
type AppMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Encoder is the schema-registry operation the handler needs at request time.
type Encoder interface {
	Encode(name string, v any) ([]byte, error)
}

// Handler converts control-plane webhook calls into broker messages. All
// collaborators are injected at construction; encoder and publisher are nil
// when the schema registry is unconfigured (dry mode), in which case payloads
// are validated and dropped.
type Handler struct {
	log       *slog.Logger
	encoder   Encoder
	publisher *Publisher
	metrics   *Metrics
	meta      AppMetadata
	tracer    trace.Tracer
}

func NewHandler(log *slog.Logger, encoder Encoder, publisher *Publisher, metrics *Metrics, meta AppMetadata) *Handler {
	return &Handler{
		log:       log,
		encoder:   encoder,
		publisher: publisher,
		metrics:   metrics,
		meta:      meta,
		tracer:    otel.Tracer("ltdevents"),
	}
}

// Router returns the HTTP routes. The webhook endpoint trusts its callers;
// the service runs on an internal network only.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/webhook", h.handleWebhook).Methods(http.MethodPost)
	return router
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.meta)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := ids.NewID()
	log := h.log.With("correlation_id", requestID)
	log.Debug("new webhook event")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.rejected.WithLabelValues("decode").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read request body"))
		return
	}

	var raw map[string]any
	if err := jsoncodec.Unmarshal(body, &raw); err != nil {
		log.Error("malformed request body", "error", err)
		h.metrics.rejected.WithLabelValues("decode").Inc()
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	event, perr := events.Parse(raw)
	if perr != nil {
		log.Error("validation error", "error", perr.Error())
		h.metrics.rejected.WithLabelValues(string(perr.Kind)).Inc()
		writeJSON(w, http.StatusBadRequest, errorBody(perr))
		return
	}
	h.metrics.received.WithLabelValues(event.Type()).Inc()

	switch ev := event.(type) {
	case *events.Unknown:
		// Forward compatible: a new event type the control plane emits before
		// this service maps it is accepted and dropped.
		log.Info("accepted event type with no publication mapping", "event_type", ev.Type())
		h.metrics.dropped.Inc()
		w.WriteHeader(http.StatusOK)
	case *events.EditionUpdated:
		ctx := WithCorrelationID(r.Context(), requestID)
		h.publishEditionUpdated(ctx, w, log, ev)
	}
}

func (h *Handler) publishEditionUpdated(ctx context.Context, w http.ResponseWriter, log *slog.Logger, ev *events.EditionUpdated) {
	if h.encoder == nil || h.publisher == nil {
		log.Info("schema registry not configured, dropping event",
			"event_type", ev.Type(),
			"product", ev.Product.Slug,
			"edition", ev.Edition.Slug,
		)
		h.metrics.dropped.Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, span := h.tracer.Start(ctx, "publish_edition_updated", trace.WithAttributes(
		attribute.String("product_slug", ev.Product.Slug),
		attribute.String("edition_slug", ev.Edition.Slug),
	))
	defer span.End()

	key, err := h.encoder.Encode(schemaregistry.SchemaEditionKey, ev.Key())
	if err != nil {
		h.rejectEncoding(w, log, span, err)
		return
	}
	value, err := h.encoder.Encode(schemaregistry.SchemaEditionUpdate, ev)
	if err != nil {
		h.rejectEncoding(w, log, span, err)
		return
	}

	// A client that hangs up after delivering a valid payload must not abort
	// the broker send; the publish runs on a cancellation-free context.
	if err := h.publisher.Publish(context.WithoutCancel(ctx), key, value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		log.Error("failed to publish event",
			"error", err,
			"topic", h.publisher.Topic(),
			"product", ev.Product.Slug,
			"edition", ev.Edition.Slug,
		)
		h.metrics.publishFailures.Inc()
		writeJSON(w, http.StatusBadGateway, errorBody("event could not be published"))
		return
	}

	h.metrics.published.Inc()
	log.Debug("sent broker message",
		"event_type", ev.Type(),
		"topic", h.publisher.Topic(),
		"product", ev.Product.Slug,
		"edition", ev.Edition.Slug,
	)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) rejectEncoding(w http.ResponseWriter, log *slog.Logger, span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "encoding failed")
	log.Error("failed to encode event", "error", err)
	h.metrics.rejected.WithLabelValues("encoding").Inc()
	writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
}

type errorResponse struct {
	Error any `json:"error"`
}

func errorBody(detail any) errorResponse {
	return errorResponse{Error: detail}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsoncodec.Encode(w, v)
}
