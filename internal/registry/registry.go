// Package registry implements the Registry Reader (C1): a read-only,
// namespace-scoped view over Agent/Team/Model/Tool/Memory records plus
// create/get/patch/delete for Query, the gateway's one writable kind.
//
// Grounded on the teacher's api/v1alpha2 + a2a_registrar.go client.Client
// usage; namespace is resolved once at construction per spec §9's
// "ambient namespace" design note, not re-read from process state.
package registry

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/utils"
)

// NotFoundError wraps a registry 404 for a named resource.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func mapErr(kind, name string, err error) error {
	if err == nil {
		return nil
	}
	if utils.IsNotFound(err) {
		return &NotFoundError{Kind: kind, Name: name}
	}
	return fmt.Errorf("registry: %s %q: %w", kind, name, err)
}

// Reader is the namespace-scoped, read-mostly view the rest of the
// gateway depends on. All methods are safe for concurrent use; the
// underlying client.Client is itself concurrency-safe.
type Reader struct {
	client    client.Client
	namespace string
}

// New builds a Reader bound to namespace; callers typically pass
// utils.GetResourceNamespace().
func New(c client.Client, namespace string) *Reader {
	return &Reader{client: c, namespace: namespace}
}

// Namespace returns the namespace this Reader is scoped to.
func (r *Reader) Namespace() string {
	return r.namespace
}

// ListAgents returns every Agent record in the reader's namespace.
func (r *Reader) ListAgents(ctx context.Context) ([]arkv1alpha1.Agent, error) {
	var list arkv1alpha1.AgentList
	if err := r.client.List(ctx, &list, client.InNamespace(r.namespace)); err != nil {
		return nil, fmt.Errorf("registry: list agents: %w", err)
	}
	return list.Items, nil
}

// GetAgent returns a single Agent by name, or a *NotFoundError.
func (r *Reader) GetAgent(ctx context.Context, name string) (*arkv1alpha1.Agent, error) {
	var agent arkv1alpha1.Agent
	key := types.NamespacedName{Namespace: r.namespace, Name: name}
	if err := r.client.Get(ctx, key, &agent); err != nil {
		return nil, mapErr("agent", name, err)
	}
	return &agent, nil
}

// ListTeams, ListModels, ListTools support the /openai/v1/models
// enumeration (SPEC supplement 3.1); these kinds carry no other behavior
// in this gateway.
func (r *Reader) ListTeams(ctx context.Context) ([]arkv1alpha1.Team, error) {
	var list arkv1alpha1.TeamList
	if err := r.client.List(ctx, &list, client.InNamespace(r.namespace)); err != nil {
		return nil, fmt.Errorf("registry: list teams: %w", err)
	}
	return list.Items, nil
}

func (r *Reader) ListModels(ctx context.Context) ([]arkv1alpha1.Model, error) {
	var list arkv1alpha1.ModelList
	if err := r.client.List(ctx, &list, client.InNamespace(r.namespace)); err != nil {
		return nil, fmt.Errorf("registry: list models: %w", err)
	}
	return list.Items, nil
}

func (r *Reader) ListTools(ctx context.Context) ([]arkv1alpha1.Tool, error) {
	var list arkv1alpha1.ToolList
	if err := r.client.List(ctx, &list, client.InNamespace(r.namespace)); err != nil {
		return nil, fmt.Errorf("registry: list tools: %w", err)
	}
	return list.Items, nil
}

// ListMemories lists Memory records, optionally filtered by name
// substring. No HTTP operation in this gateway exposes the result today;
// it exists so in-scope code has a read path (SPEC supplement 3.2).
func (r *Reader) ListMemories(ctx context.Context, filter string) ([]arkv1alpha1.Memory, error) {
	var list arkv1alpha1.MemoryList
	if err := r.client.List(ctx, &list, client.InNamespace(r.namespace)); err != nil {
		return nil, fmt.Errorf("registry: list memories: %w", err)
	}
	if filter == "" {
		return list.Items, nil
	}
	out := list.Items[:0]
	for _, m := range list.Items {
		if strings.Contains(m.Name, filter) {
			out = append(out, m)
		}
	}
	return out, nil
}

// CreateQuery writes a new Query record. The caller is responsible for
// giving it a unique name (see queryrun.NewName).
func (r *Reader) CreateQuery(ctx context.Context, q *arkv1alpha1.Query) error {
	q.Namespace = r.namespace
	if err := r.client.Create(ctx, q); err != nil {
		return fmt.Errorf("registry: create query %q: %w", q.Name, err)
	}
	return nil
}

// GetQuery returns a single Query by name, or a *NotFoundError.
func (r *Reader) GetQuery(ctx context.Context, name string) (*arkv1alpha1.Query, error) {
	var q arkv1alpha1.Query
	key := types.NamespacedName{Namespace: r.namespace, Name: name}
	if err := r.client.Get(ctx, key, &q); err != nil {
		return nil, mapErr("query", name, err)
	}
	return &q, nil
}

// PatchQuery applies a merge patch to a Query's spec; the only caller in
// this gateway uses it to set spec.cancel = true.
func (r *Reader) PatchQuery(ctx context.Context, name string, patch client.Patch) error {
	q := &arkv1alpha1.Query{}
	q.Namespace = r.namespace
	q.Name = name
	if err := r.client.Patch(ctx, q, patch); err != nil {
		return mapErr("query", name, err)
	}
	return nil
}

// DeleteQuery removes a Query record. The gateway itself never calls
// this in the normal lifecycle (deletion is left to the cluster's TTL
// mechanism per spec §3); it exists for completeness and tests.
func (r *Reader) DeleteQuery(ctx context.Context, name string) error {
	q := &arkv1alpha1.Query{}
	q.Namespace = r.namespace
	q.Name = name
	if err := r.client.Delete(ctx, q); err != nil {
		return mapErr("query", name, err)
	}
	return nil
}
