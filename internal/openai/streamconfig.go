package openai

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// StreamingConfigMapName and its data keys are the cluster-scoped
// streaming backend config spec §3 names, read the way the teacher's
// internal/utils.GetConfigMapValue reads any other ConfigMap-backed
// setting.
const (
	StreamingConfigMapName = "ark-streaming-config"
	streamingEnabledKey    = "enabled"
	streamingBaseURLKey    = "base-url"
)

// ConfigMapStreamingConfigResolver resolves the streaming backend config
// from a namespace-scoped ConfigMap, mirroring original_source's
// get_streaming_config(v1, namespace) read against the cluster.
type ConfigMapStreamingConfigResolver struct {
	client    client.Client
	namespace string
}

func NewConfigMapStreamingConfigResolver(c client.Client, namespace string) *ConfigMapStreamingConfigResolver {
	return &ConfigMapStreamingConfigResolver{client: c, namespace: namespace}
}

func (r *ConfigMapStreamingConfigResolver) Resolve(ctx context.Context) (StreamingConfig, error) {
	cm := &corev1.ConfigMap{}
	ref := client.ObjectKey{Namespace: r.namespace, Name: StreamingConfigMapName}
	if err := r.client.Get(ctx, ref, cm); err != nil {
		// No ConfigMap deployed means streaming is simply unavailable,
		// not an error: callers fall back to the single-chunk response.
		return StreamingConfig{}, nil
	}

	baseURL := cm.Data[streamingBaseURLKey]
	return StreamingConfig{
		Enabled: cm.Data[streamingEnabledKey] == "true" && baseURL != "",
		BaseURL: baseURL,
	}, nil
}
