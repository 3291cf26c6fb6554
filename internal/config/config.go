// Package config centralizes the gateway's environment-derived
// configuration, read through viper the way the teacher's cli/cmd
// packages bind flags and env vars through a single viper instance.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kagent-dev/a2agw/internal/utils"
)

// AuthMode mirrors the external auth collaborator's configured mode; the
// gateway only reads it to decide which auth.Provider to wire up.
type AuthMode string

const (
	AuthModeSSO    AuthMode = "sso"
	AuthModeBasic  AuthMode = "basic"
	AuthModeHybrid AuthMode = "hybrid"
	AuthModeOpen   AuthMode = "open"
)

// Config holds every environment-derived knob named in spec §6.
type Config struct {
	// BindAddr is the address the public HTTP surface listens on.
	BindAddr string

	// Namespace is the cluster namespace the Registry Reader is scoped to.
	Namespace string

	// DefaultTimeout bounds a single Per-Agent Executor task.
	DefaultTimeout time.Duration

	// ClusterHosted selects the 30s reconcile period; otherwise
	// PollInterval (default 3s) applies.
	ClusterHosted bool
	PollInterval  time.Duration

	// AgentCardProtocol/Host/Port/Path assemble the externally reachable
	// AgentCard.URL.
	AgentCardProtocol string
	AgentCardHost     string
	AgentCardPort     string
	AgentCardPath     string

	OIDCIssuerURL     string
	OIDCApplicationID string
	AuthMode          AuthMode
}

// Load reads configuration from the environment via viper, applying the
// defaults spec §6 names.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bind_addr", ":8080")
	v.SetDefault("a2a_default_timeout", 300)
	v.SetDefault("a2a_poll_interval_seconds", 3)
	v.SetDefault("cluster_hosted", false)
	v.SetDefault("ark_a2a_agent_card_protocol", "http")
	v.SetDefault("ark_a2a_agent_card_host", "localhost")
	v.SetDefault("ark_a2a_agent_card_port", "8080")
	v.SetDefault("ark_a2a_agent_card_path", "")
	v.SetDefault("auth_mode", string(AuthModeOpen))

	return &Config{
		BindAddr:          v.GetString("bind_addr"),
		Namespace:         utils.GetResourceNamespace(),
		DefaultTimeout:    time.Duration(v.GetInt("a2a_default_timeout")) * time.Second,
		ClusterHosted:     v.GetBool("cluster_hosted"),
		PollInterval:      time.Duration(v.GetInt("a2a_poll_interval_seconds")) * time.Second,
		AgentCardProtocol: v.GetString("ark_a2a_agent_card_protocol"),
		AgentCardHost:     v.GetString("ark_a2a_agent_card_host"),
		AgentCardPort:     v.GetString("ark_a2a_agent_card_port"),
		AgentCardPath:     v.GetString("ark_a2a_agent_card_path"),
		OIDCIssuerURL:     v.GetString("oidc_issuer_url"),
		OIDCApplicationID: v.GetString("oidc_application_id"),
		AuthMode:          AuthMode(v.GetString("auth_mode")),
	}
}

// ReconcilePeriod returns the effective Dynamic Router reconcile period.
func (c *Config) ReconcilePeriod() time.Duration {
	if c.ClusterHosted {
		return 30 * time.Second
	}
	return c.PollInterval
}
