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

// DescriptiveSpec is shared by the record kinds this gateway only ever
// enumerates (Team, Model, Tool, Memory): they carry no executable
// semantics here, just enough to project an OpenAI-style model listing.
type DescriptiveSpec struct {
	// +optional
	Description string `json:"description,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Team is a cluster-scoped record enumerated alongside Agent, Model and
// Tool under /openai/v1/models. The gateway does not execute Teams.
type Team struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              DescriptiveSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// TeamList contains a list of Team.
type TeamList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Team `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Model is a cluster-scoped record describing an LLM backend, enumerated
// under /openai/v1/models.
type Model struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              DescriptiveSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// ModelList contains a list of Model.
type ModelList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Model `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Tool is a cluster-scoped record describing a callable tool, enumerated
// under /openai/v1/models.
type Tool struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              DescriptiveSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// ToolList contains a list of Tool.
type ToolList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Tool `json:"items"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Memory is a cluster-scoped record describing a memory backend. The
// gateway only lists Memories; it neither reads nor writes their content.
type Memory struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              DescriptiveSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// MemoryList contains a list of Memory.
type MemoryList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Memory `json:"items"`
}

// --- hand-written deepcopy (no codegen is run against this module) ---

func (t *Team) DeepCopyInto(out *Team) {
	*out = *t
	out.TypeMeta = t.TypeMeta
	t.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
}

func (t *Team) DeepCopy() *Team {
	if t == nil {
		return nil
	}
	out := new(Team)
	t.DeepCopyInto(out)
	return out
}

func (t *Team) DeepCopyObject() runtime.Object { return t.DeepCopy() }

func (l *TeamList) DeepCopyInto(out *TeamList) {
	*out = *l
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]Team, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (l *TeamList) DeepCopy() *TeamList {
	if l == nil {
		return nil
	}
	out := new(TeamList)
	l.DeepCopyInto(out)
	return out
}

func (l *TeamList) DeepCopyObject() runtime.Object { return l.DeepCopy() }

func (m *Model) DeepCopyInto(out *Model) {
	*out = *m
	out.TypeMeta = m.TypeMeta
	m.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
}

func (m *Model) DeepCopy() *Model {
	if m == nil {
		return nil
	}
	out := new(Model)
	m.DeepCopyInto(out)
	return out
}

func (m *Model) DeepCopyObject() runtime.Object { return m.DeepCopy() }

func (l *ModelList) DeepCopyInto(out *ModelList) {
	*out = *l
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]Model, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (l *ModelList) DeepCopy() *ModelList {
	if l == nil {
		return nil
	}
	out := new(ModelList)
	l.DeepCopyInto(out)
	return out
}

func (l *ModelList) DeepCopyObject() runtime.Object { return l.DeepCopy() }

func (t *Tool) DeepCopyInto(out *Tool) {
	*out = *t
	out.TypeMeta = t.TypeMeta
	t.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
}

func (t *Tool) DeepCopy() *Tool {
	if t == nil {
		return nil
	}
	out := new(Tool)
	t.DeepCopyInto(out)
	return out
}

func (t *Tool) DeepCopyObject() runtime.Object { return t.DeepCopy() }

func (l *ToolList) DeepCopyInto(out *ToolList) {
	*out = *l
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]Tool, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (l *ToolList) DeepCopy() *ToolList {
	if l == nil {
		return nil
	}
	out := new(ToolList)
	l.DeepCopyInto(out)
	return out
}

func (l *ToolList) DeepCopyObject() runtime.Object { return l.DeepCopy() }

func (m *Memory) DeepCopyInto(out *Memory) {
	*out = *m
	out.TypeMeta = m.TypeMeta
	m.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
}

func (m *Memory) DeepCopy() *Memory {
	if m == nil {
		return nil
	}
	out := new(Memory)
	m.DeepCopyInto(out)
	return out
}

func (m *Memory) DeepCopyObject() runtime.Object { return m.DeepCopy() }

func (l *MemoryList) DeepCopyInto(out *MemoryList) {
	*out = *l
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]Memory, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (l *MemoryList) DeepCopy() *MemoryList {
	if l == nil {
		return nil
	}
	out := new(MemoryList)
	l.DeepCopyInto(out)
	return out
}

func (l *MemoryList) DeepCopyObject() runtime.Object { return l.DeepCopy() }
