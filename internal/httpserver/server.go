// Package httpserver implements the Public Surface Wiring (C8): mounts
// the Dynamic Router under /a2a/agent, exposes the /a2a/agents
// enumeration, and mounts the OpenAI Adapter's chat-completions and
// models endpoints, all behind the same middleware chain.
//
// Grounded on the teacher's go/internal/httpserver/server.go: gorilla/mux
// router, ServerConfig/HTTPServer split, setupRoutes, and the
// Start/Stop/NeedLeaderElection manager.Runnable shape. Routes are this
// gateway's own (spec §4.8), not the teacher's CRUD surface.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/kagent-dev/a2agw/internal/openai"
	"github.com/kagent-dev/a2agw/internal/router"
	"github.com/kagent-dev/a2agw/pkg/auth"
)

const (
	// PathA2AAgent is the stable mount point for the Dynamic Router.
	PathA2AAgent = "/a2a/agent"
	// PathA2AAgents is the agent-enumeration endpoint.
	PathA2AAgents = "/a2a/agents"
	// PathOpenAIChatCompletions is the OpenAI-compatible chat endpoint.
	PathOpenAIChatCompletions = "/openai/v1/chat/completions"
	// PathOpenAIModels is the OpenAI-compatible model listing endpoint.
	PathOpenAIModels = "/openai/v1/models"
	// PathHealth is a liveness probe endpoint.
	PathHealth = "/health"
)

// ServerConfig holds everything needed to wire the public HTTP surface.
type ServerConfig struct {
	BindAddr      string
	Dynamic       *router.Router
	OpenAI        *openai.Handler
	Authenticator auth.Provider
	Log           logr.Logger
}

// HTTPServer owns the public-facing *http.Server and its mux.Router.
type HTTPServer struct {
	config     ServerConfig
	router     *mux.Router
	httpServer *http.Server
	log        logr.Logger
}

// NewHTTPServer builds the server and registers all routes eagerly so
// Names()-dependent routes (the agent enumeration) are ready for Start.
func NewHTTPServer(config ServerConfig) *HTTPServer {
	s := &HTTPServer{
		config: config,
		router: mux.NewRouter(),
		log:    config.Log.WithName("http-server"),
	}
	s.setupRoutes()
	return s
}

// Handler returns the public mux.Router as an http.Handler, for tests and
// for embedding behind an external listener (e.g. httptest.Server).
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) setupRoutes() {
	s.router.HandleFunc(PathHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	// Registration order matters: gorilla/mux tries routes in the order
	// added, and PathPrefix("/a2a/agent") would otherwise also match the
	// literal "/a2a/agents" (a plain string prefix match, not
	// segment-aware), so the enumeration route must come first.
	s.router.HandleFunc(PathA2AAgents, s.handleListAgents).Methods(http.MethodGet)
	s.router.PathPrefix(PathA2AAgent).Handler(http.StripPrefix(PathA2AAgent, s.config.Dynamic))

	s.router.HandleFunc(PathOpenAIChatCompletions, s.config.OpenAI.ChatCompletions).Methods(http.MethodPost)
	s.router.HandleFunc(PathOpenAIModels, s.config.OpenAI.Models).Methods(http.MethodGet)

	authenticator := s.config.Authenticator
	if authenticator == nil {
		authenticator = auth.OpenProvider{}
	}
	s.router.Use(auth.AuthnMiddleware(authenticator))
	s.router.Use(loggingMiddleware(s.log))
}

// agentListEntry is spec §4.8's /a2a/agents element: note `capabilities`
// here is the AgentCard's projected skill names, a different field than
// AgentCapabilities, and `host` is the literal "localhost" — both
// preserved deliberately, see SPEC_FULL.md 3.4.
type agentListEntry struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Capabilities []string           `json:"capabilities"`
	Host         string             `json:"host"`
	AgentCard    string             `json:"agent-card"`
	CreatedAt    string             `json:"created_at"`
	Metadata     agentListEntryMeta `json:"metadata"`
}

type agentListEntryMeta struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

func (s *HTTPServer) handleListAgents(w http.ResponseWriter, r *http.Request) {
	names := s.config.Dynamic.Names()
	entries := make([]agentListEntry, 0, len(names))
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	for _, name := range names {
		card, ok := s.config.Dynamic.Card(name)
		if !ok {
			continue
		}
		capabilities := make([]string, 0, len(card.Skills))
		for _, skill := range card.Skills {
			capabilities = append(capabilities, skill.Name)
		}
		entries = append(entries, agentListEntry{
			Name:         card.Name,
			Description:  card.Description,
			Capabilities: capabilities,
			Host:         "localhost",
			AgentCard:    PathA2AAgent + "/" + name + "/.well-known/agent.json",
			CreatedAt:    now,
			Metadata: agentListEntryMeta{
				Type:    "analytical",
				Version: card.Version,
			},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries) //nolint:errcheck
}

// Start implements controller-runtime's manager.Runnable: it starts the
// HTTP listener in the background and shuts down on ctx.Done().
func (s *HTTPServer) Start(ctx context.Context) error {
	log := ctrllog.FromContext(ctx).WithName("http-server")
	log.Info("starting HTTP server", "address", s.config.BindAddr)

	s.httpServer = &http.Server{
		Addr:    s.config.BindAddr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Stop shuts the server down directly, for callers outside the
// manager.Runnable lifecycle (tests).
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// NeedLeaderElection reports that the public surface runs on every
// replica, matching the Dynamic Router it serves.
func (s *HTTPServer) NeedLeaderElection() bool {
	return false
}

func loggingMiddleware(log logr.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.V(1).Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}
