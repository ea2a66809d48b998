package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/basiceq"
	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Equalizer is the part of the Equalizer Session the HTTP surface drives.
type Equalizer interface {
	Sync(ctx context.Context) error
	SelectPreset(ctx context.Context, id string) error
	SetGain(ctx context.Context, band domain.Band, gain float64, transition bool) error
	SavePreset(ctx context.Context, name string) (domain.Preset, error)
	DeletePreset(ctx context.Context) error
	Presets() domain.PresetCollection
	Selected() (domain.Preset, error)
	Snapshot() session.Snapshot
	Subscribe(buffer int) (<-chan session.Snapshot, func())
}

var _ Equalizer = (*session.Session)(nil)

// DefaultStreamBuffer is the per-client snapshot buffer of the event stream.
const DefaultStreamBuffer = 16

// Server serves the REST and SSE surface of an Equalizer.
type Server struct {
	Equalizer Equalizer
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	buffer    int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes the gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithStreamBuffer sets how many snapshots a slow event client may lag behind.
func WithStreamBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// GetSwagger parses and validates the embedded API description.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// NewHandler creates a new HTTP handler for the equalizer.
func NewHandler(eq Equalizer, opts ...Option) http.Handler {
	server := &Server{
		Equalizer: eq,
		logger:    logging.NewNop(),
		buffer:    DefaultStreamBuffer,
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if server.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/state", server.GetState)
	r.Post("/sync", server.SyncSession)
	r.Get("/presets", server.ListPresets)
	r.Post("/presets", server.SavePreset)
	r.Delete("/presets/selected", server.DeleteSelectedPreset)
	r.Post("/presets/{id}/select", server.SelectPreset)
	r.Get("/selected", server.GetSelected)
	r.Put("/bands/{band}", server.SetGain)
	r.Get("/events", server.SubscribeEvents)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>basiceq API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "basiceq-http",
		"version":     strings.TrimSpace(basiceq.Version),
		"api_version": apiVersion,
	})
}

// GetState handles the GET /state request.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Equalizer.Snapshot())
}

// SyncSession handles the POST /sync request.
func (s *Server) SyncSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Equalizer.Sync(r.Context()); err != nil {
		s.writeError(w, "Sync", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Equalizer.Snapshot())
}

// ListPresets handles the GET /presets request.
func (s *Server) ListPresets(w http.ResponseWriter, r *http.Request) {
	presets := s.Equalizer.Presets()
	if presets == nil {
		presets = domain.PresetCollection{}
	}
	s.writeJSON(w, http.StatusOK, presets)
}

// GetSelected handles the GET /selected request.
func (s *Server) GetSelected(w http.ResponseWriter, r *http.Request) {
	preset, err := s.Equalizer.Selected()
	if err != nil {
		s.writeError(w, "GetSelected", err)
		return
	}
	s.writeJSON(w, http.StatusOK, preset)
}

// SelectPreset handles the POST /presets/{id}/select request.
func (s *Server) SelectPreset(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		s.badRequest(w, "SelectPreset", fmt.Sprintf("Invalid format for parameter id: %v", err))
		return
	}

	if err := s.Equalizer.SelectPreset(r.Context(), id); err != nil {
		s.writeError(w, "SelectPreset", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Equalizer.Snapshot())
}

// GainRequest is the body of PUT /bands/{band}.
type GainRequest struct {
	Gain       *float64 `json:"gain"`
	Transition bool     `json:"transition"`
}

// SetGain handles the PUT /bands/{band} request.
func (s *Server) SetGain(w http.ResponseWriter, r *http.Request) {
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "band", chi.URLParam(r, "band"), &name, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		s.badRequest(w, "SetGain", fmt.Sprintf("Invalid format for parameter band: %v", err))
		return
	}
	band, err := domain.ParseBand(name)
	if err != nil {
		s.writeError(w, "SetGain", err)
		return
	}

	var body GainRequest
	if err := decodeBody(r, &body); err != nil {
		s.badRequest(w, "SetGain", "Invalid request body")
		return
	}
	if body.Gain == nil {
		s.badRequest(w, "SetGain", "Missing gain")
		return
	}

	if err := s.Equalizer.SetGain(r.Context(), band, *body.Gain, body.Transition); err != nil {
		s.writeError(w, "SetGain", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Equalizer.Snapshot())
}

// SaveRequest is the body of POST /presets.
type SaveRequest struct {
	Name string `json:"name"`
}

// SavePreset handles the POST /presets request.
func (s *Server) SavePreset(w http.ResponseWriter, r *http.Request) {
	var body SaveRequest
	if err := decodeBody(r, &body); err != nil {
		s.badRequest(w, "SavePreset", "Invalid request body")
		return
	}

	preset, err := s.Equalizer.SavePreset(r.Context(), body.Name)
	if err != nil {
		s.writeError(w, "SavePreset", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, preset)
}

// DeleteSelectedPreset handles the DELETE /presets/selected request.
// Deleting while a default preset is selected is a no-op.
func (s *Server) DeleteSelectedPreset(w http.ResponseWriter, r *http.Request) {
	if err := s.Equalizer.DeletePreset(r.Context()); err != nil {
		s.writeError(w, "DeletePreset", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.Equalizer.Snapshot())
}

// SubscribeEvents handles the GET /events request (SSE).
// Each event carries a session snapshot, narrowed to the fields named in watch.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var watch []string
	if err := runtime.BindQueryParameter("form", false, false, "watch", r.URL.Query(), &watch); err != nil {
		s.badRequest(w, "SubscribeEvents", fmt.Sprintf("Invalid format for parameter watch: %v", err))
		return
	}
	filter, err := newFieldFilter(watch)
	if err != nil {
		s.badRequest(w, "SubscribeEvents", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Equalizer.Subscribe(s.buffer)
	defer cancel()

	s.logger.Info("SSE: Client subscribed", "watch", watch)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var last []byte
	send := func(snap session.Snapshot) {
		payload, err := json.Marshal(filter.apply(snap))
		if err != nil {
			s.logger.Error("SSE: Snapshot encode failed", "error", err)
			return
		}
		if last != nil && string(payload) == string(last) {
			return
		}
		last = payload
		fmt.Fprintf(w, "event: state\ndata: %s\n\n", payload)
		flusher.Flush()
	}

	send(s.Equalizer.Snapshot())
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected")
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			send(snap)
		}
	}
}

// fieldFilter narrows snapshots to the watched fields.
type fieldFilter map[string]bool

var watchableFields = []string{"selected", "displayed", "settled", "presets"}

func newFieldFilter(watch []string) (fieldFilter, error) {
	if len(watch) == 0 {
		return nil, nil
	}
	f := make(fieldFilter, len(watch))
	for _, field := range watch {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		known := false
		for _, w := range watchableFields {
			if w == field {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("unknown watch field %q", field)
		}
		f[field] = true
	}
	return f, nil
}

func (f fieldFilter) apply(snap session.Snapshot) any {
	if len(f) == 0 {
		return snap
	}
	out := make(map[string]any, len(f))
	if f["selected"] {
		out["selected"] = snap.Selected
	}
	if f["displayed"] {
		out["displayed"] = snap.Displayed
	}
	if f["settled"] {
		out["settled"] = snap.Settled
	}
	if f["presets"] {
		out["presets"] = snap.Presets
	}
	return out
}

// -- Helpers --

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, op, msg string) {
	s.logger.Warn(op+": Bad request", "reason", msg)
	s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPreset), errors.Is(err, domain.ErrUnknownBand):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCannotDeleteDefault), errors.Is(err, domain.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMalformedPreset):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err, "status", status)
	} else {
		s.logger.Warn(op+" rejected", "error", err, "status", status)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
