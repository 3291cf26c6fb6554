// Package queryrun implements the Query Driver (C3): create a Query from
// a (target, input, timeout) tuple, poll until a terminal phase, and
// extract response content or structured error detail.
//
// Grounded on original_source's
// services/ark-api/.../api/v1/a2agw/query.py (post_query / wait_for_query
// / post_query_and_wait) for the A2A-path polling cadence, and on
// .../utils/query_polling.py for the OpenAI-path structured response and
// error-detail construction (SPEC_FULL.md 3.5).
package queryrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/metrics"
	"github.com/kagent-dev/a2agw/internal/registry"
	"github.com/kagent-dev/a2agw/internal/utils"
)

// path labels for the QueryPhase metric.
const (
	pathA2A    = "a2a"
	pathOpenAI = "openai"
)

const (
	// a2aPollInterval is C3's fixed inter-poll sleep on the A2A path.
	a2aPollInterval = time.Second

	// openAIPollInterval and openAIMaxAttempts bound the OpenAI-path
	// extension to a flat 5-minute ceiling (60 * 5s).
	openAIPollInterval = 5 * time.Second
	openAIMaxAttempts  = 60
)

// TimeoutError marks a wait_for_query deadline exceeded.
type TimeoutError struct {
	QueryName string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query %q timed out after %s", e.QueryName, e.Timeout)
}

// PhaseError marks a Query that reached phase == "error".
type PhaseError struct {
	QueryName string
	Message   string
}

func (e *PhaseError) Error() string { return e.Message }

// ErrorDetail is the structured error surfaced on the OpenAI path when a
// Query reaches phase == "error", per spec §4.3.
type ErrorDetail struct {
	Message string
	Errors  []TargetError
}

// TargetError is one entry of ErrorDetail.Errors.
type TargetError struct {
	Target  string
	Message string
}

func (e *ErrorDetail) Error() string { return e.Message }

// ChatResult is the structured success result of the OpenAI-path
// extension: the first response's content plus a rough word-count token
// estimate, joining all prompt message contents with a single space
// before splitting on whitespace (SPEC_FULL.md 3.5).
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Driver is the Query Driver. It is safe for concurrent use; all state
// lives in the registry, not in the Driver itself.
type Driver struct {
	reg *registry.Reader
	log logr.Logger
}

func New(reg *registry.Reader, log logr.Logger) *Driver {
	return &Driver{reg: reg, log: log.WithName("queryrun")}
}

// NewName synthesizes a unique Query name of the given form, e.g.
// "a2agw-query-<8 hex>" or "openai-query-<8 hex>" (spec §4.3, P5).
func NewName(prefix string) string {
	return fmt.Sprintf("%s-query-%s", prefix, utils.RandomHexSuffix(8))
}

// PostQuery synthesizes a unique name, writes a Query with exactly one
// target, and returns the name. annotations may be nil.
func (d *Driver) PostQuery(ctx context.Context, namePrefix string, targetType arkv1alpha1.QueryTargetType, targetName, input string, inputType arkv1alpha1.QueryInputType, timeoutSec int, annotations map[string]string) (string, error) {
	name := NewName(namePrefix)
	q := &arkv1alpha1.Query{
		ObjectMeta: objectMetaWithAnnotations(name, annotations),
		Spec: arkv1alpha1.QuerySpec{
			Input: input,
			Type:  inputType,
			Targets: []arkv1alpha1.QueryTarget{
				{Name: targetName, Type: targetType},
			},
			Timeout: fmt.Sprintf("%ds", timeoutSec),
		},
	}
	if err := d.reg.CreateQuery(ctx, q); err != nil {
		return "", err
	}
	return name, nil
}

// WaitForQuery polls get_query at a 1-second interval (the A2A path
// cadence) until phase is terminal or timeoutSec elapses.
func (d *Driver) WaitForQuery(ctx context.Context, queryName string, timeoutSec int) (string, error) {
	deadline := time.Now().Add(time.Duration(timeoutSec) * time.Second)
	ticker := time.NewTicker(a2aPollInterval)
	defer ticker.Stop()

	for {
		content, done, err := d.pollOnce(ctx, queryName)
		if done {
			return content, err
		}
		if time.Now().After(deadline) {
			metrics.QueryPhase.WithLabelValues("timeout", pathA2A).Inc()
			return "", &TimeoutError{QueryName: queryName, Timeout: time.Duration(timeoutSec) * time.Second}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// pollOnce performs one get_query and reports whether the query reached
// a terminal phase.
func (d *Driver) pollOnce(ctx context.Context, queryName string) (content string, done bool, err error) {
	q, err := d.reg.GetQuery(ctx, queryName)
	if err != nil {
		// Transient list/get errors are retriable; only the caller's
		// deadline ends the loop.
		d.log.Info("transient error polling query, retrying", "query", queryName, "error", err.Error())
		return "", false, nil
	}

	switch q.Status.Phase {
	case arkv1alpha1.QueryPhaseDone:
		metrics.QueryPhase.WithLabelValues("done", pathA2A).Inc()
		if len(q.Status.Responses) == 0 {
			return "Query completed but no response available", true, nil
		}
		if q.Status.Responses[0].Content == "" {
			return "No response content", true, nil
		}
		return q.Status.Responses[0].Content, true, nil
	case arkv1alpha1.QueryPhaseError:
		metrics.QueryPhase.WithLabelValues("error", pathA2A).Inc()
		msg := "Query failed"
		if len(q.Status.Responses) > 0 && q.Status.Responses[0].Content != "" {
			msg = q.Status.Responses[0].Content
		}
		return "", true, &PhaseError{QueryName: queryName, Message: msg}
	default:
		return "", false, nil
	}
}

// PostQueryAndWait composes PostQuery and WaitForQuery.
func (d *Driver) PostQueryAndWait(ctx context.Context, namePrefix string, targetType arkv1alpha1.QueryTargetType, targetName, input string, inputType arkv1alpha1.QueryInputType, timeoutSec int, annotations map[string]string) (string, error) {
	name, err := d.PostQuery(ctx, namePrefix, targetType, targetName, input, inputType, timeoutSec, annotations)
	if err != nil {
		return "", err
	}
	return d.WaitForQuery(ctx, name, timeoutSec)
}

// WaitForQueryChat is the OpenAI-path extension: polls up to
// openAIMaxAttempts at openAIPollInterval, returning a structured
// ChatResult or ErrorDetail on phase == "error".
func (d *Driver) WaitForQueryChat(ctx context.Context, queryName string, promptText string) (*ChatResult, error) {
	ticker := time.NewTicker(openAIPollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < openAIMaxAttempts; attempt++ {
		q, err := d.reg.GetQuery(ctx, queryName)
		if err != nil {
			d.log.Info("transient error polling query, retrying", "query", queryName, "error", err.Error())
		} else {
			switch q.Status.Phase {
			case arkv1alpha1.QueryPhaseDone:
				metrics.QueryPhase.WithLabelValues("done", pathOpenAI).Inc()
				if len(q.Status.Responses) == 0 {
					return nil, &ErrorDetail{Message: "No response received"}
				}
				content := q.Status.Responses[0].Content
				return &ChatResult{
					Content:          content,
					PromptTokens:     wordCount(promptText),
					CompletionTokens: wordCount(content),
				}, nil
			case arkv1alpha1.QueryPhaseError:
				metrics.QueryPhase.WithLabelValues("error", pathOpenAI).Inc()
				return nil, d.buildErrorDetail(q)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	metrics.QueryPhase.WithLabelValues("timeout", pathOpenAI).Inc()
	return nil, &TimeoutError{QueryName: queryName, Timeout: openAIPollInterval * openAIMaxAttempts}
}

// buildErrorDetail implements spec §4.3's OpenAI-path error-phase rules.
func (d *Driver) buildErrorDetail(q *arkv1alpha1.Query) *ErrorDetail {
	var nonEmpty []arkv1alpha1.QueryResponse
	for _, r := range q.Status.Responses {
		if r.Content != "" {
			nonEmpty = append(nonEmpty, r)
		}
	}

	message := "Query execution failed: No error details available"
	switch {
	case len(nonEmpty) > 0:
		message = nonEmpty[0].Content
	case q.Status.Message != "":
		message = q.Status.Message
	}

	var errs []TargetError
	if len(nonEmpty) >= 2 {
		for _, r := range nonEmpty {
			errs = append(errs, TargetError{Target: r.Target, Message: r.Content})
		}
	}

	return &ErrorDetail{Message: message, Errors: errs}
}

// CancelQuery patches spec.cancel = true on the named Query.
func (d *Driver) CancelQuery(ctx context.Context, queryName string) error {
	patch := client.RawPatch(client.Merge.Type(), []byte(`{"spec":{"cancel":true}}`))
	return d.reg.PatchQuery(ctx, queryName, patch)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func objectMetaWithAnnotations(name string, annotations map[string]string) metav1.ObjectMeta {
	meta := metav1.ObjectMeta{Name: name}
	if len(annotations) > 0 {
		meta.Annotations = annotations
	}
	return meta
}
