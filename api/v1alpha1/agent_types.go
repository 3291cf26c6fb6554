/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// SkillAnnotation is the presence-only annotation suffix: when set on an
// Agent (to any value), the synthetic "General" fallback skill is
// suppressed even if SkillsAnnotation is absent or empty.
const SkillAnnotation = "a2a.kagent.dev/skill"

// SkillsAnnotation holds the structured skill list, JSON-encoded as
// []AgentSkillSpec, that the projector reads to populate AgentCard.Skills.
const SkillsAnnotation = "a2a.kagent.dev/skills"

// AgentSkillSpec is one entry of the SkillsAnnotation JSON array.
type AgentSkillSpec struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentSpec defines the desired state of Agent.
type AgentSpec struct {
	// +optional
	Description string `json:"description,omitempty"`

	// Version is surfaced verbatim on the projected AgentCard.
	// +optional
	Version string `json:"version,omitempty"`
}

// AgentStatus defines the observed state of Agent.
type AgentStatus struct {
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Description",type=string,JSONPath=`.spec.description`

// Agent is a cluster-scoped record describing one agent the gateway can
// route A2A and OpenAI-compatible traffic to. The gateway is a pure reader;
// an external controller owns creation, update and deletion.
type Agent struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   AgentSpec   `json:"spec,omitempty"`
	Status AgentStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// AgentList contains a list of Agent.
type AgentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Agent `json:"items"`
}

func (a *Agent) DeepCopyInto(out *Agent) {
	*out = *a
	out.TypeMeta = a.TypeMeta
	a.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	if a.Status.Conditions != nil {
		out.Status.Conditions = make([]metav1.Condition, len(a.Status.Conditions))
		for i := range a.Status.Conditions {
			a.Status.Conditions[i].DeepCopyInto(&out.Status.Conditions[i])
		}
	}
}

func (a *Agent) DeepCopy() *Agent {
	if a == nil {
		return nil
	}
	out := new(Agent)
	a.DeepCopyInto(out)
	return out
}

func (a *Agent) DeepCopyObject() runtime.Object {
	return a.DeepCopy()
}

func (l *AgentList) DeepCopyInto(out *AgentList) {
	*out = *l
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]Agent, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (l *AgentList) DeepCopy() *AgentList {
	if l == nil {
		return nil
	}
	out := new(AgentList)
	l.DeepCopyInto(out)
	return out
}

func (l *AgentList) DeepCopyObject() runtime.Object {
	return l.DeepCopy()
}
