// Package executor implements the Per-Agent Executor (C4): given an
// inbound A2A request targeting one agent, emits a stream of status
// events (working -> completed|failed|canceled) plus the agent's textual
// response, honoring timeout and cancellation.
//
// Grounded on original_source's
// services/ark-api-a2a/src/a2agw/execution.py:ARKAgentExecutor (the
// execute/cancel sequence, active-coroutine bookkeeping, timeout and
// cancellation handling) and on the teacher's
// internal/a2a/a2a_task_processor.go for the adjacent idiom of wrapping
// a query/message backend behind the A2A task lifecycle. The task map
// here is this gateway's own (spec §9: "prefer a cancellation handle...
// store handles in a guarded map keyed by task_id"), independent of
// whatever bookkeeping the third-party taskmanager keeps internally.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/metrics"
	"github.com/kagent-dev/a2agw/internal/queryrun"
)

// TaskState mirrors protocol.TaskState's vocabulary for this package's
// own event sink, so callers outside the A2A adapter layer (tests) don't
// need the third-party package.
type TaskState string

const (
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
)

// StatusEvent is the {context_id, task_id, status, final} envelope spec
// §4.4 describes.
type StatusEvent struct {
	ContextID string
	TaskID    string
	State     TaskState
	Message   string
	Timestamp time.Time
	Final     bool
}

// EventSink receives the totally-ordered event stream a single execute
// (or cancel) call produces. Implementations must not block materially;
// the Executor holds no lock while calling it.
type EventSink interface {
	SendStatus(StatusEvent) error
	SendMessage(contextID, taskID, text string) error
}

// runningTask is the cancellation handle registered per task_id while a
// query is in flight.
type runningTask struct {
	cancel context.CancelFunc
}

// Executor runs queries for exactly one agent name.
type Executor struct {
	agentName      string
	driver         *queryrun.Driver
	namespace      string
	defaultTimeout time.Duration
	log            logr.Logger

	mu    sync.Mutex
	tasks map[string]*runningTask
}

// New builds an Executor bound to one agent. defaultTimeout bounds every
// Execute call and is also the query's own timeout (env
// A2A_DEFAULT_TIMEOUT, default 300s); requests cannot override it.
func New(agentName string, driver *queryrun.Driver, namespace string, defaultTimeout time.Duration, log logr.Logger) *Executor {
	return &Executor{
		agentName:      agentName,
		driver:         driver,
		namespace:      namespace,
		defaultTimeout: defaultTimeout,
		log:            log.WithName("executor").WithValues("agent", agentName, "namespace", namespace),
		tasks:          make(map[string]*runningTask),
	}
}

func orDefault(id, fallback string) string {
	if id == "" {
		return fallback
	}
	return id
}

// Execute implements spec §4.4's execute sequence. text is the already
// extracted user message ("No message" when extraction found nothing).
func (e *Executor) Execute(ctx context.Context, taskID, contextID, text string, sink EventSink) error {
	taskID = orDefault(taskID, "unknown")
	contextID = orDefault(contextID, "default")

	if err := sink.SendStatus(StatusEvent{ContextID: contextID, TaskID: taskID, State: TaskStateWorking, Timestamp: time.Now().UTC()}); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.register(taskID, cancel)
	defer cancel()

	type result struct {
		content string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		content, err := e.driver.PostQueryAndWait(runCtx, "a2agw", arkv1alpha1.QueryTargetAgent, e.agentName, text, arkv1alpha1.QueryInputUser, int(e.defaultTimeout.Seconds()), nil)
		done <- result{content: content, err: err}
	}()

	var timedOut bool
	var r result
	select {
	case r = <-done:
	case <-time.After(e.defaultTimeout):
		timedOut = true
		cancel()
		r = <-done // drain so the goroutine doesn't leak
	}

	// Whichever of {this finalization, a concurrent Cancel} removes the
	// task map entry first owns emitting the sole final event (P1/P7);
	// the loser no-ops.
	if !e.claim(taskID) {
		return nil
	}

	if timedOut {
		msg := fmt.Sprintf("Query timed out after %d seconds", int(e.defaultTimeout.Seconds()))
		if err := sink.SendMessage(contextID, taskID, msg); err != nil {
			return err
		}
		return sink.SendStatus(StatusEvent{ContextID: contextID, TaskID: taskID, State: TaskStateFailed, Message: msg, Timestamp: time.Now().UTC(), Final: true})
	}
	return e.finish(contextID, taskID, r.content, r.err, sink)
}

func (e *Executor) finish(contextID, taskID, content string, err error, sink EventSink) error {
	if err != nil {
		msg := fmt.Sprintf("Error: %s", err.Error())
		if sendErr := sink.SendMessage(contextID, taskID, msg); sendErr != nil {
			return sendErr
		}
		return sink.SendStatus(StatusEvent{ContextID: contextID, TaskID: taskID, State: TaskStateFailed, Message: msg, Timestamp: time.Now().UTC(), Final: true})
	}

	if sendErr := sink.SendMessage(contextID, taskID, content); sendErr != nil {
		return sendErr
	}
	return sink.SendStatus(StatusEvent{ContextID: contextID, TaskID: taskID, State: TaskStateCompleted, Timestamp: time.Now().UTC(), Final: true})
}

// Cancel implements spec §4.4's cancel sequence. It is idempotent: a
// second call for the same task_id finds no entry, logs, and no-ops.
func (e *Executor) Cancel(ctx context.Context, taskID, contextID string, sink EventSink) error {
	taskID = orDefault(taskID, "unknown")
	contextID = orDefault(contextID, "default")

	e.mu.Lock()
	t, ok := e.tasks[taskID]
	if ok {
		delete(e.tasks, taskID)
		metrics.ActiveTasks.WithLabelValues(e.agentName).Dec()
	}
	e.mu.Unlock()

	if !ok {
		e.log.Info("cancel called for unknown or already-finished task", "taskID", taskID)
		return nil
	}

	t.cancel()
	return sink.SendStatus(StatusEvent{ContextID: contextID, TaskID: taskID, State: TaskStateCanceled, Timestamp: time.Now().UTC(), Final: true})
}

func (e *Executor) register(taskID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks[taskID] = &runningTask{cancel: cancel}
	metrics.ActiveTasks.WithLabelValues(e.agentName).Inc()
}

// claim atomically removes taskID from the map, reporting whether it was
// still present. Execute and Cancel race to claim the same entry; only
// the winner may emit a final event.
func (e *Executor) claim(taskID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.tasks[taskID]
	if ok {
		delete(e.tasks, taskID)
		metrics.ActiveTasks.WithLabelValues(e.agentName).Dec()
	}
	return ok
}

// ExtractText returns the text of the first part whose Text() is
// non-empty, or "No message" when no part has any. Parts of other kinds
// and empty text parts are skipped; turning a protocol part into text is
// left to the caller's TextCarrier. Parallel to the teacher's
// a2a_utils.go:ExtractText but operating on this package's own minimal
// Part representation so callers outside the A2A adapter layer don't
// need the third-party protocol package.
func ExtractText(parts []TextCarrier) string {
	for _, p := range parts {
		if t := p.Text(); t != "" {
			return t
		}
	}
	return "No message"
}

// TextCarrier is implemented by whatever message-part representation the
// caller has (the A2A adapter layer wraps protocol.Part with this).
type TextCarrier interface {
	Text() string
}
