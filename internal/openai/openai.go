// Package openai implements the OpenAI Adapter (C6): translates
// chat-completion requests to Queries and returns either a single
// ChatCompletion (non-stream) or an SSE stream of ChatCompletionChunk
// frames (stream), proxying a backend streaming channel when configured.
//
// Grounded on original_source's services/.../api/v1/openai.py for
// request/response field shapes and the streaming decision tree, and on
// .../utils/query_polling.py + .../utils/streaming.py for the exact
// token-estimate, error-detail and single-chunk-fallback behaviors
// (SPEC_FULL.md 3.5).
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/queryrun"
	"github.com/kagent-dev/a2agw/internal/registry"
	"github.com/kagent-dev/a2agw/internal/sse"
)

// Message is one chat message, request or response side.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is POST /chat/completions's body.
type ChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []Message         `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// arkMetadata is the shape metadata["ark"] must parse as.
type arkMetadata struct {
	Annotations map[string]string `json:"annotations,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletion is the non-stream response shape.
type ChatCompletion struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	Created        int64             `json:"created"`
	Model          string            `json:"model"`
	Choices        []choice          `json:"choices"`
	Usage          usage             `json:"usage"`
	ArkAnnotations map[string]string `json:"ark.annotations,omitempty"`
}

type chunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE frame payload on the streaming path.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

// Model is one /models listing entry.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// errorEnvelope is the OpenAI-style error body used by validation and
// unexpected-error failures; writeChatError answers an upstream timeout
// and an error-phase query with other shapes.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, typ, code, message string) {
	env := errorEnvelope{}
	env.Error.Message = message
	env.Error.Type = typ
	env.Error.Code = code
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// StreamingConfig is the cluster-scoped config spec §3 names, resolved
// once per request.
type StreamingConfig struct {
	Enabled bool
	BaseURL string
}

// StreamingConfigResolver resolves StreamingConfig; the gateway does not
// cache results (spec §5: double-fetching on cache miss is acceptable).
type StreamingConfigResolver interface {
	Resolve(ctx context.Context) (StreamingConfig, error)
}

// Handler implements C6's two HTTP operations.
type Handler struct {
	reg      *registry.Reader
	driver   *queryrun.Driver
	streamer StreamingConfigResolver
	log      logr.Logger
}

func NewHandler(reg *registry.Reader, driver *queryrun.Driver, streamer StreamingConfigResolver, log logr.Logger) *Handler {
	return &Handler{reg: reg, driver: driver, streamer: streamer, log: log.WithName("openai")}
}

// ChatCompletions implements POST /openai/v1/chat/completions.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_value", fmt.Sprintf("invalid request body: %s", err))
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_value", "model and messages are required")
		return
	}

	targetType, targetName := parseModel(req.Model)

	annotations, err := mergeArkMetadata(req.Metadata)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_ark_metadata", fmt.Sprintf("Invalid Ark metadata: %s", err))
		return
	}

	input, err := json.Marshal(toQueryMessages(req.Messages))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
		return
	}
	promptText := joinContents(req.Messages)

	if req.Stream {
		h.handleStream(w, r, targetType, targetName, string(input), promptText, req.Model, annotations)
		return
	}
	h.handleNonStream(w, r, targetType, targetName, string(input), promptText, req.Model, annotations)
}

func (h *Handler) handleNonStream(w http.ResponseWriter, r *http.Request, targetType arkv1alpha1.QueryTargetType, targetName, input, promptText, model string, annotations map[string]string) {
	ctx := r.Context()
	name, err := h.driver.PostQuery(ctx, "openai", targetType, targetName, input, arkv1alpha1.QueryInputMessages, 300, annotations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
		return
	}

	result, err := h.driver.WaitForQueryChat(ctx, name, promptText)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	resp := ChatCompletion{
		ID:      name,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []choice{{
			Index:        0,
			Message:      Message{Role: "assistant", Content: result.Content},
			FinishReason: "stop",
		}},
		Usage: usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.PromptTokens + result.CompletionTokens,
		},
	}
	if len(annotations) > 0 {
		resp.ArkAnnotations = annotations
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request, targetType arkv1alpha1.QueryTargetType, targetName, input, promptText, model string, annotations map[string]string) {
	ctx := r.Context()
	if annotations == nil {
		annotations = map[string]string{}
	}
	annotations["streaming-enabled"] = "true"

	name, err := h.driver.PostQuery(ctx, "openai", targetType, targetName, input, arkv1alpha1.QueryInputMessages, 300, annotations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	cfg, err := h.streamer.Resolve(ctx)
	if err != nil || !cfg.Enabled {
		h.singleChunkFallback(w, ctx, name, promptText, model)
		return
	}

	flusher, _ := w.(http.Flusher)
	url := fmt.Sprintf("%s/stream/%s?from-beginning=true&wait-for-query=30s", cfg.BaseURL, name)
	_ = sse.Proxy(ctx, url, func(f sse.Frame) error {
		if _, err := w.Write([]byte(f)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
}

// singleChunkFallback implements spec §4.6's streaming-disabled path:
// poll to completion, then emit exactly one ChatCompletionChunk carrying
// the full content, followed by the [DONE] sentinel.
func (h *Handler) singleChunkFallback(w http.ResponseWriter, ctx context.Context, name, promptText, model string) {
	flusher, _ := w.(http.Flusher)
	result, err := h.driver.WaitForQueryChat(ctx, name, promptText)

	var content string
	var finishReason = "stop"
	if err != nil {
		content = chatErrorMessage(err)
	} else {
		content = result.Content
	}

	chunk := ChatCompletionChunk{
		ID:      name,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chunkChoice{{
			Index:        0,
			Delta:        chunkDelta{Role: "assistant", Content: content},
			FinishReason: &finishReason,
		}},
	}
	payload, _ := json.Marshal(chunk)
	_, _ = w.Write([]byte("data: " + string(payload) + "\n\n"))
	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	if flusher != nil {
		flusher.Flush()
	}
}

func chatErrorMessage(err error) string {
	switch e := err.(type) {
	case *queryrun.ErrorDetail:
		return e.Message
	case *queryrun.TimeoutError:
		return e.Error()
	default:
		return err.Error()
	}
}

// writeChatError implements spec §7's error taxonomy for the OpenAI
// non-stream path: upstream timeout -> 504 plain text; error-phase ->
// structured 500; anything else -> 500 server_error envelope.
func (h *Handler) writeChatError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case *queryrun.TimeoutError:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(e.Error()))
	case *queryrun.ErrorDetail:
		type detail struct {
			Message string                 `json:"message"`
			Errors  []queryrun.TargetError `json:"errors"`
		}
		body := detail{Message: e.Message, Errors: e.Errors}
		if body.Errors == nil {
			body.Errors = []queryrun.TargetError{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": body})
	default:
		writeError(w, http.StatusInternalServerError, "server_error", "internal_error", err.Error())
	}
}

// Models implements GET /openai/v1/models. Each kind is listed
// independently: a failure listing one kind is logged and skipped so it
// doesn't take down the whole listing.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var entries []Model

	agents, err := h.reg.ListAgents(ctx)
	if err != nil {
		h.log.Info("failed to list agents for model listing, skipping", "error", err.Error())
	}
	for i := range agents {
		entries = append(entries, toModel("agent", &agents[i].ObjectMeta))
	}

	teams, err := h.reg.ListTeams(ctx)
	if err != nil {
		h.log.Info("failed to list teams for model listing, skipping", "error", err.Error())
	}
	for i := range teams {
		entries = append(entries, toModel("team", &teams[i].ObjectMeta))
	}

	models, err := h.reg.ListModels(ctx)
	if err != nil {
		h.log.Info("failed to list models for model listing, skipping", "error", err.Error())
	}
	for i := range models {
		entries = append(entries, toModel("model", &models[i].ObjectMeta))
	}

	tools, err := h.reg.ListTools(ctx)
	if err != nil {
		h.log.Info("failed to list tools for model listing, skipping", "error", err.Error())
	}
	for i := range tools {
		entries = append(entries, toModel("tool", &tools[i].ObjectMeta))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(modelList{Object: "list", Data: entries})
}

func toModel(kind string, meta metav1.Object) Model {
	created := time.Now().Unix()
	if ts := meta.GetCreationTimestamp(); !ts.IsZero() {
		created = ts.Unix()
	}
	return Model{
		ID:      fmt.Sprintf("%s/%s", kind, meta.GetName()),
		Object:  "model",
		Created: created,
		OwnedBy: "ark",
	}
}

// parseModel splits "type/name" into (type, name); an unrecognized or
// absent prefix yields ("model", raw) per spec §4.6.
func parseModel(model string) (arkv1alpha1.QueryTargetType, string) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 {
		return arkv1alpha1.QueryTargetModel, model
	}
	switch parts[0] {
	case "agent":
		return arkv1alpha1.QueryTargetAgent, parts[1]
	case "team":
		return arkv1alpha1.QueryTargetTeam, parts[1]
	case "model":
		return arkv1alpha1.QueryTargetModel, parts[1]
	case "tool":
		return arkv1alpha1.QueryTargetTool, parts[1]
	default:
		return arkv1alpha1.QueryTargetModel, model
	}
}

// mergeArkMetadata parses metadata["ark"] (if present) as arkMetadata
// JSON and returns its annotations; other metadata keys are ignored.
func mergeArkMetadata(metadata map[string]string) (map[string]string, error) {
	raw, ok := metadata["ark"]
	if !ok || raw == "" {
		return nil, nil
	}
	var parsed arkMetadata
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, err
	}
	return parsed.Annotations, nil
}

func toQueryMessages(messages []Message) []arkv1alpha1.QueryMessage {
	out := make([]arkv1alpha1.QueryMessage, len(messages))
	for i, m := range messages {
		out[i] = arkv1alpha1.QueryMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// joinContents joins every message's content with a single space before
// word-counting, matching the original's prompt token estimate exactly
// (not a per-message sum) per SPEC_FULL.md 3.5.
func joinContents(messages []Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, " ")
}
