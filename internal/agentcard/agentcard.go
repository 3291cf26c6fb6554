// Package agentcard implements the Agent-Card Projector (C2): a pure
// function translating an Agent record into an A2A AgentCard.
//
// Grounded on the teacher's
// internal/controller/translator/agent/utils.go:GetA2AAgentCard for the
// overall shape, and on original_source's
// services/.../a2agw/registry.py:ark_to_agent_card for the two-key
// skills-annotation behavior spec.md §9 flags as an Open Question
// (decided in SPEC_FULL.md 3.3: keep it).
package agentcard

import (
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"
	"trpc.group/trpc-go/trpc-a2a-go/server"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
)

// URLConfig supplies the externally reachable components assembled into
// AgentCard.URL, read once from ARK_A2A_AGENT_CARD_{PROTOCOL,HOST,PORT,PATH}.
type URLConfig struct {
	Protocol string
	Host     string
	Port     string
	Path     string
}

// Projector is a pure Agent -> AgentCard translator. It carries only
// configuration, no mutable state, so Project is safe to call
// concurrently and never fails the whole card on a malformed skill entry.
type Projector struct {
	urls URLConfig
	log  logr.Logger
}

func New(urls URLConfig, log logr.Logger) *Projector {
	return &Projector{urls: urls, log: log.WithName("agentcard")}
}

// Project implements spec §3's AgentCard derivation rules exactly.
func (p *Projector) Project(agent *arkv1alpha1.Agent) *server.AgentCard {
	skills := p.projectSkills(agent)

	card := &server.AgentCard{
		Name:        agent.Name,
		Description: agent.Spec.Description,
		URL:         p.url(agent.Name),
		Capabilities: server.AgentCapabilities{
			Streaming:              boolPtr(true),
			PushNotifications:      boolPtr(false),
			StateTransitionHistory: boolPtr(false),
		},
		Skills:             skills,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Version:            agent.Spec.Version,
	}
	return card
}

func (p *Projector) url(name string) string {
	return fmt.Sprintf("%s://%s:%s%s/a2a/agent/%s/", p.urls.Protocol, p.urls.Host, p.urls.Port, p.urls.Path, name)
}

// projectSkills implements the exact two-annotation-key behavior: the
// singular "skill" annotation's mere presence suppresses the synthetic
// fallback; the plural "skills" annotation supplies the structured list.
// A present-but-empty "skills" value does not re-trigger the fallback
// when "skill" is also present — this is the byte-for-byte-preserved
// Open Question from spec.md §9.
func (p *Projector) projectSkills(agent *arkv1alpha1.Agent) []server.AgentSkill {
	_, hasSkillMarker := agent.Annotations[arkv1alpha1.SkillAnnotation]
	raw, hasSkillsList := agent.Annotations[arkv1alpha1.SkillsAnnotation]

	var specs []arkv1alpha1.AgentSkillSpec
	if hasSkillsList && raw != "" {
		var entries []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			p.log.Info("dropping malformed skills annotation", "agent", agent.Name, "error", err.Error())
		} else {
			specs = make([]arkv1alpha1.AgentSkillSpec, 0, len(entries))
			for i, entry := range entries {
				var s arkv1alpha1.AgentSkillSpec
				if err := json.Unmarshal(entry, &s); err != nil {
					p.log.Info("dropping malformed skill entry", "agent", agent.Name, "index", i, "error", err.Error())
					continue
				}
				specs = append(specs, s)
			}
		}
	}

	if len(specs) == 0 && !hasSkillMarker {
		return []server.AgentSkill{{
			ID:   fmt.Sprintf("%s-default-skill", agent.Name),
			Name: "General",
		}}
	}

	skills := make([]server.AgentSkill, 0, len(specs))
	for i, s := range specs {
		if s.Name == "" && s.ID == "" {
			p.log.Info("dropping structurally invalid skill entry", "agent", agent.Name, "index", i)
			continue
		}
		id := s.ID
		if id == "" {
			id = fmt.Sprintf("%s-skill-%d", agent.Name, i)
		}
		skills = append(skills, server.AgentSkill{
			ID:          id,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
		})
	}
	return skills
}

func boolPtr(b bool) *bool { return &b }
