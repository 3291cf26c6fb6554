package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"trpc.group/trpc-go/trpc-a2a-go/server"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/agentcard"
	"github.com/kagent-dev/a2agw/internal/httpserver"
	"github.com/kagent-dev/a2agw/internal/openai"
	"github.com/kagent-dev/a2agw/internal/queryrun"
	"github.com/kagent-dev/a2agw/internal/registry"
	"github.com/kagent-dev/a2agw/internal/router"
)

func newFakeReader(t *testing.T, objects ...client.Object) *registry.Reader {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(s))
	require.NoError(t, arkv1alpha1.AddToScheme(s))
	c := fake.NewClientBuilder().WithScheme(s).WithObjects(objects...).Build()
	return registry.New(c, "ns1")
}

func echoFactory() router.HandlerFactory {
	return func(agentName string, card *server.AgentCard) (http.Handler, error) {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}), nil
	}
}

type disabledStreaming struct{}

func (disabledStreaming) Resolve(context.Context) (openai.StreamingConfig, error) {
	return openai.StreamingConfig{Enabled: false}, nil
}

func newServer(t *testing.T) *httpserver.HTTPServer {
	t.Helper()
	agent := &arkv1alpha1.Agent{
		ObjectMeta: metav1.ObjectMeta{Name: "foo", Namespace: "ns1"},
		Spec:       arkv1alpha1.AgentSpec{Description: "a test agent", Version: "v1"},
	}
	reg := newFakeReader(t, agent)
	projector := agentcard.New(agentcard.URLConfig{Protocol: "http", Host: "localhost", Port: "8080"}, logr.Discard())
	dynamic := router.New(reg, projector, echoFactory(), time.Minute, logr.Discard())
	require.NoError(t, dynamic.Reconcile(context.Background()))

	driver := queryrun.New(reg, logr.Discard())
	oa := openai.NewHandler(reg, driver, disabledStreaming{}, logr.Discard())

	return httpserver.NewHTTPServer(httpserver.ServerConfig{
		BindAddr: ":0",
		Dynamic:  dynamic,
		OpenAI:   oa,
		Log:      logr.Discard(),
	})
}

func do(s *httpserver.HTTPServer, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newServer(t)
	rec := do(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentsEnumerationListsLocalhostHost(t *testing.T) {
	s := newServer(t)
	rec := do(s, http.MethodGet, "/a2a/agents")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "foo", entries[0]["name"])
	assert.Equal(t, "localhost", entries[0]["host"], "host is always localhost regardless of agent card url config")
	assert.Equal(t, "/a2a/agent/foo/.well-known/agent.json", entries[0]["agent-card"])
}

func TestAgentsEnumerationRouteDoesNotShadowDynamicPrefix(t *testing.T) {
	s := newServer(t)
	rec := do(s, http.MethodGet, "/a2a/agent/foo/.well-known/agent.json")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownAgentIs404(t *testing.T) {
	s := newServer(t)
	rec := do(s, http.MethodGet, "/a2a/agent/missing/.well-known/agent.json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenAIModelsEndpoint(t *testing.T) {
	s := newServer(t)
	rec := do(s, http.MethodGet, "/openai/v1/models")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Object string         `json:"object"`
		Data   []openai.Model `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "agent/foo", body.Data[0].ID)
}
