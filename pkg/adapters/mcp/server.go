package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/basiceq"
	"github.com/aretw0/basiceq/internal/logging"
	"github.com/aretw0/basiceq/pkg/domain"
	"github.com/aretw0/basiceq/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
)

// StateURI is the resource exposing the current session snapshot.
const StateURI = "basiceq://state"

// PresetView is the agent-facing shape of a preset.
type PresetView struct {
	ID        string             `json:"id" jsonschema_description:"Stable preset identifier"`
	Name      string             `json:"name" jsonschema_description:"Display name"`
	Gains     map[string]float64 `json:"gains" jsonschema_description:"Gain in dB per band (bass, mid, treble)"`
	IsDefault bool               `json:"isDefault" jsonschema_description:"Built-in presets cannot be deleted"`
}

// StateResponse aligns with the HTTP snapshot and provides a unified structure across adapters.
type StateResponse struct {
	Selected  PresetView         `json:"selected" jsonschema_description:"The selected preset"`
	Displayed map[string]float64 `json:"displayed" jsonschema_description:"Gain values currently shown, possibly mid-transition"`
	Settled   bool               `json:"settled" jsonschema_description:"True when every band shows its target value"`
	Presets   []PresetView       `json:"presets" jsonschema_description:"Presets in display order"`
}

// PresetList is the output of list_presets.
type PresetList struct {
	Presets  []PresetView `json:"presets"`
	Selected string       `json:"selected" jsonschema_description:"Id of the selected preset"`
}

// Equalizer is the part of the Equalizer Session exposed to agents.
type Equalizer interface {
	SelectPreset(ctx context.Context, id string) error
	SetGain(ctx context.Context, band domain.Band, gain float64, transition bool) error
	SavePreset(ctx context.Context, name string) (domain.Preset, error)
	DeletePreset(ctx context.Context) error
	Snapshot() session.Snapshot
}

// Server wraps the Equalizer and exposes it as an MCP Server.
type Server struct {
	eq        Equalizer
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(eq Equalizer, opts ...Option) *Server {
	s := &Server{
		eq:        eq,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("basiceq-mcp", strings.TrimSpace(basiceq.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_presets",
		mcp.WithDescription("List every preset in display order and the selected preset id."),
		mcp.WithOutputSchema[PresetList](),
	), mcp.NewStructuredToolHandler(s.handleListPresets))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the selected preset, the displayed gains and whether the display has settled."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetState))

	s.mcpServer.AddTool(mcp.NewTool("select_preset",
		mcp.WithDescription("Select a preset by id. The display animates to its gains."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Preset id, e.g. flat or bass_boost")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleSelectPreset))

	s.mcpServer.AddTool(mcp.NewTool("set_gain",
		mcp.WithDescription("Set one band's gain. The edit goes to the manual preset, which becomes selected."),
		mcp.WithString("band", mcp.Required(), mcp.Description("Band name"), mcp.Enum(bandNames()...)),
		mcp.WithNumber("gain", mcp.Required(), mcp.Description("Gain in dB")),
		mcp.WithBoolean("transition", mcp.Description("Jump to the value without animating")),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleSetGain))

	s.mcpServer.AddTool(mcp.NewTool("save_preset",
		mcp.WithDescription("Save the selected preset's gains as a new user preset and select it."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the new preset")),
		mcp.WithOutputSchema[PresetView](),
	), mcp.NewStructuredToolHandler(s.handleSavePreset))

	s.mcpServer.AddTool(mcp.NewTool("delete_preset",
		mcp.WithDescription("Delete the selected user preset and fall back to flat. Does nothing when a built-in preset is selected."),
		mcp.WithOutputSchema[StateResponse](),
	), mcp.NewStructuredToolHandler(s.handleDeletePreset))
}

func bandNames() []string {
	names := make([]string, 0, domain.BandCount)
	for _, b := range domain.Bands() {
		names = append(names, b.String())
	}
	return names
}

type selectArgs struct {
	ID string `json:"id"`
}

type gainArgs struct {
	Band       string  `json:"band"`
	Gain       float64 `json:"gain"`
	Transition bool    `json:"transition"`
}

type saveArgs struct {
	Name string `json:"name"`
}

// decodeArgs maps loosely typed tool arguments onto dst.
func decodeArgs(args map[string]interface{}, dst any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Handler methods for structured tools

func (s *Server) handleListPresets(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PresetList, error) {
	snap := s.eq.Snapshot()
	return PresetList{
		Presets:  presetViews(snap.Presets),
		Selected: snap.Selected.ID,
	}, nil
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	return toState(s.eq.Snapshot()), nil
}

func (s *Server) handleSelectPreset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	var in selectArgs
	if err := decodeArgs(args, &in); err != nil {
		return StateResponse{}, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return StateResponse{}, errors.New("id is required")
	}
	if err := s.eq.SelectPreset(ctx, in.ID); err != nil {
		s.logger.Warn("MCP SelectPreset failed", "preset_id", in.ID, "error", err)
		return StateResponse{}, fmt.Errorf("select failed: %w", err)
	}
	return toState(s.eq.Snapshot()), nil
}

func (s *Server) handleSetGain(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	var in gainArgs
	if err := decodeArgs(args, &in); err != nil {
		return StateResponse{}, err
	}
	if _, ok := args["gain"]; !ok {
		return StateResponse{}, errors.New("gain is required")
	}
	band, err := domain.ParseBand(in.Band)
	if err != nil {
		return StateResponse{}, err
	}
	if err := s.eq.SetGain(ctx, band, in.Gain, in.Transition); err != nil {
		s.logger.Warn("MCP SetGain failed", "band", band, "error", err)
		return StateResponse{}, fmt.Errorf("set gain failed: %w", err)
	}
	return toState(s.eq.Snapshot()), nil
}

func (s *Server) handleSavePreset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PresetView, error) {
	var in saveArgs
	if err := decodeArgs(args, &in); err != nil {
		return PresetView{}, err
	}
	preset, err := s.eq.SavePreset(ctx, in.Name)
	if err != nil {
		s.logger.Warn("MCP SavePreset failed", "name", in.Name, "error", err)
		return PresetView{}, fmt.Errorf("save failed: %w", err)
	}
	return presetView(preset), nil
}

func (s *Server) handleDeletePreset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	if err := s.eq.DeletePreset(ctx); err != nil {
		s.logger.Warn("MCP DeletePreset failed", "error", err)
		return StateResponse{}, fmt.Errorf("delete failed: %w", err)
	}
	return toState(s.eq.Snapshot()), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(StateURI, "Equalizer State",
		mcp.WithResourceDescription("Selected preset, displayed gains and settled flag"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(toState(s.eq.Snapshot()))
		if err != nil {
			return nil, fmt.Errorf("failed to encode state: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      StateURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func presetView(p domain.Preset) PresetView {
	return PresetView{
		ID:        p.ID,
		Name:      p.Name,
		Gains:     p.Gains.ToMap(),
		IsDefault: p.IsDefault,
	}
}

func presetViews(c domain.PresetCollection) []PresetView {
	out := make([]PresetView, 0, len(c))
	for _, p := range c {
		out = append(out, presetView(p))
	}
	return out
}

func toState(snap session.Snapshot) StateResponse {
	return StateResponse{
		Selected:  presetView(snap.Selected),
		Displayed: snap.Displayed.ToMap(),
		Settled:   snap.Settled,
		Presets:   presetViews(snap.Presets),
	}
}
