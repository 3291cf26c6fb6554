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

// QueryInputType discriminates between a plain string input and an
// ordered list of chat messages.
// +kubebuilder:validation:Enum=user;messages
type QueryInputType string

const (
	QueryInputUser     QueryInputType = "user"
	QueryInputMessages QueryInputType = "messages"
)

// QueryTargetType is the kind of record a Query is routed to.
// +kubebuilder:validation:Enum=agent;team;model;tool
type QueryTargetType string

const (
	QueryTargetAgent QueryTargetType = "agent"
	QueryTargetTeam  QueryTargetType = "team"
	QueryTargetModel QueryTargetType = "model"
	QueryTargetTool  QueryTargetType = "tool"
)

// QueryMessage is one entry of a messages-typed query input.
type QueryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QueryTarget names exactly one execution target for a Query.
type QueryTarget struct {
	Name string          `json:"name"`
	Type QueryTargetType `json:"type"`
}

// QuerySpec is written exactly once by the gateway; the only permitted
// mutation afterward is a cancel-patch (Cancel = true).
type QuerySpec struct {
	// Input is either a plain string (Type == user) or JSON-encoded
	// []QueryMessage (Type == messages). Kept as a raw string because the
	// two shapes share one wire field in the original record format.
	Input string `json:"input"`

	Type QueryInputType `json:"type"`

	// Targets names the query's single execution target. The field is
	// plural for forward compatibility with multi-target queries, but
	// this gateway only ever writes exactly one entry.
	Targets []QueryTarget `json:"targets"`

	// Timeout is an "Ns" duration string, e.g. "300s".
	Timeout string `json:"timeout,omitempty"`

	// Cancel, when patched to true, requests cooperative cancellation of
	// the query by its executing controller. Never set at creation time.
	// +optional
	Cancel bool `json:"cancel,omitempty"`
}

// QueryPhase is the lifecycle phase of a Query as advanced by an external
// controller; the gateway only ever reads this field.
type QueryPhase string

const (
	QueryPhasePending QueryPhase = "pending"
	QueryPhaseRunning QueryPhase = "running"
	QueryPhaseDone    QueryPhase = "done"
	QueryPhaseError   QueryPhase = "error"
)

// QueryResponse is one entry of status.responses.
type QueryResponse struct {
	Target  string `json:"target,omitempty"`
	Content string `json:"content,omitempty"`
}

// QueryStatus is advanced by an external controller; the gateway polls it.
type QueryStatus struct {
	Phase     QueryPhase      `json:"phase,omitempty"`
	Responses []QueryResponse `json:"responses,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`

// Query is a write-then-watch record: the gateway creates it with exactly
// one target and polls status.phase until it reaches a terminal value.
// Query execution itself belongs to a separate controller; this gateway
// never advances status.
type Query struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   QuerySpec   `json:"spec,omitempty"`
	Status QueryStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// QueryList contains a list of Query.
type QueryList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Query `json:"items"`
}

func (q *Query) DeepCopyInto(out *Query) {
	*out = *q
	out.TypeMeta = q.TypeMeta
	q.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	if q.Spec.Targets != nil {
		out.Spec.Targets = make([]QueryTarget, len(q.Spec.Targets))
		copy(out.Spec.Targets, q.Spec.Targets)
	}
	if q.Status.Responses != nil {
		out.Status.Responses = make([]QueryResponse, len(q.Status.Responses))
		copy(out.Status.Responses, q.Status.Responses)
	}
}

func (q *Query) DeepCopy() *Query {
	if q == nil {
		return nil
	}
	out := new(Query)
	q.DeepCopyInto(out)
	return out
}

func (q *Query) DeepCopyObject() runtime.Object { return q.DeepCopy() }

func (l *QueryList) DeepCopyInto(out *QueryList) {
	*out = *l
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]Query, len(l.Items))
		for i := range l.Items {
			l.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

func (l *QueryList) DeepCopy() *QueryList {
	if l == nil {
		return nil
	}
	out := new(QueryList)
	l.DeepCopyInto(out)
	return out
}

func (l *QueryList) DeepCopyObject() runtime.Object { return l.DeepCopy() }
