// Package a2a bridges the Per-Agent Executor to the trpc-a2a-go library's
// taskmanager.TaskManager/server.Server surface, and exposes a
// router.HandlerFactory so the Dynamic Router never needs to know about
// the protocol library directly.
//
// Grounded directly on the teacher's
// go-adk/pkg/core/a2a/server/task_manager.go (the concrete
// taskmanager.TaskManager method set, the uuid.New().String() taskID/
// contextID defaulting pattern, and the TaskStatusUpdateEvent-on-error
// shape for OnSendMessageStream) and go/internal/a2a/manager.go (the
// deprecated OnSendTask/OnSendTaskSubscribe stubs). Unlike both teacher
// variants this gateway keeps no persistent task store (spec's Task
// type is scoped to a single request's lifetime, see DESIGN.md); OnGetTask,
// OnPushNotificationSet/Get and OnResubscribe are therefore stubbed with
// explicit "not supported" errors rather than backed by a fake store.
package a2a

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	"trpc.group/trpc-go/trpc-a2a-go/server"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/kagent-dev/a2agw/internal/executor"
	"github.com/kagent-dev/a2agw/internal/queryrun"
	"github.com/kagent-dev/a2agw/internal/router"
)

// TaskManager adapts one agent's Executor to taskmanager.TaskManager.
type TaskManager struct {
	exec *executor.Executor
	log  logr.Logger
}

// NewTaskManager builds the taskmanager.TaskManager the A2A server library
// dispatches every protocol method against.
func NewTaskManager(exec *executor.Executor, log logr.Logger) taskmanager.TaskManager {
	return &TaskManager{exec: exec, log: log.WithName("a2a-taskmanager")}
}

// OnSendMessage implements the non-streaming message/send method.
func (m *TaskManager) OnSendMessage(ctx context.Context, request protocol.SendMessageParams) (*protocol.MessageResult, error) {
	taskID, contextID := resolveIDs(&request.Message)
	text := extractText(request.Message)

	sink := &collectingSink{state: protocol.TaskStateCompleted}
	if err := m.exec.Execute(ctx, taskID, contextID, text, sink); err != nil {
		return nil, err
	}

	final := newAgentMessage(contextID, taskID, sink.text())
	return &protocol.MessageResult{Result: &final}, nil
}

// OnSendMessageStream implements message/stream: status updates and the
// agent's reply are forwarded as they arrive from the Executor.
func (m *TaskManager) OnSendMessageStream(ctx context.Context, request protocol.SendMessageParams) (<-chan protocol.StreamingMessageEvent, error) {
	taskID, contextID := resolveIDs(&request.Message)
	text := extractText(request.Message)

	ch := make(chan protocol.StreamingMessageEvent)
	sink := &streamingSink{ch: ch}

	go func() {
		defer close(ch)
		if err := m.exec.Execute(ctx, taskID, contextID, text, sink); err != nil {
			m.log.Error(err, "execute failed", "taskID", taskID)
			failMsg := newAgentMessage(contextID, taskID, err.Error())
			ch <- protocol.StreamingMessageEvent{
				Result: &protocol.TaskStatusUpdateEvent{
					Kind:      protocol.KindTaskStatusUpdate,
					TaskID:    taskID,
					ContextID: contextID,
					Status: protocol.TaskStatus{
						State:     protocol.TaskStateFailed,
						Message:   &failMsg,
						Timestamp: time.Now().UTC().Format(time.RFC3339),
					},
					Final: true,
				},
			}
		}
	}()

	return ch, nil
}

// OnCancelTask implements tasks/cancel. Cancellation is idempotent; a
// task_id this gateway no longer knows about (already finished, or never
// seen on this replica) still reports a canceled task rather than an
// error, matching the Executor's own idempotency guarantee.
func (m *TaskManager) OnCancelTask(ctx context.Context, params protocol.TaskIDParams) (*protocol.Task, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("a2a: task ID is required")
	}

	sink := &collectingSink{state: protocol.TaskStateCanceled}
	if err := m.exec.Cancel(ctx, params.ID, "", sink); err != nil {
		return nil, err
	}

	return &protocol.Task{
		ID: params.ID,
		Status: protocol.TaskStatus{
			State:     sink.state,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// OnGetTask, OnPushNotificationSet/Get and OnResubscribe have no backing
// store in this gateway: a Task exists only for the duration of the
// Execute/Cancel call that produced it (spec §3). Callers needing task
// history or push notifications are expected to consume the streaming
// path instead.
func (m *TaskManager) OnGetTask(ctx context.Context, params protocol.TaskQueryParams) (*protocol.Task, error) {
	return nil, fmt.Errorf("a2a: task history is not retained, query %q unavailable", params.ID)
}

func (m *TaskManager) OnPushNotificationSet(ctx context.Context, params protocol.TaskPushNotificationConfig) (*protocol.TaskPushNotificationConfig, error) {
	return nil, fmt.Errorf("a2a: push notifications are not supported")
}

func (m *TaskManager) OnPushNotificationGet(ctx context.Context, params protocol.TaskIDParams) (*protocol.TaskPushNotificationConfig, error) {
	return nil, fmt.Errorf("a2a: push notifications are not supported")
}

func (m *TaskManager) OnResubscribe(ctx context.Context, params protocol.TaskIDParams) (<-chan protocol.StreamingMessageEvent, error) {
	return nil, fmt.Errorf("a2a: resubscribe is not supported, task history is not retained")
}

// Deprecated: OnSendTask is superseded by OnSendMessage.
func (m *TaskManager) OnSendTask(ctx context.Context, request protocol.SendTaskParams) (*protocol.Task, error) {
	return nil, fmt.Errorf("a2a: tasks/send is deprecated, use message/send")
}

// Deprecated: OnSendTaskSubscribe is superseded by OnSendMessageStream.
func (m *TaskManager) OnSendTaskSubscribe(ctx context.Context, request protocol.SendTaskParams) (<-chan protocol.TaskEvent, error) {
	return nil, fmt.Errorf("a2a: tasks/sendSubscribe is deprecated, use message/stream")
}

// resolveIDs defaults a request message's task_id/context_id, following
// the teacher's A2ATaskManager.OnSendMessage pattern: a missing id gets a
// fresh uuid rather than a sentinel string, since this id is handed back
// to the caller and used as the correlation key for cancel.
func resolveIDs(msg *protocol.Message) (taskID, contextID string) {
	if msg.TaskID != nil && *msg.TaskID != "" {
		taskID = *msg.TaskID
	} else {
		taskID = uuid.New().String()
	}
	if msg.ContextID != nil && *msg.ContextID != "" {
		contextID = *msg.ContextID
	} else {
		contextID = uuid.New().String()
	}
	return taskID, contextID
}

// extractText adapts protocol.Message's Parts to executor.ExtractText's
// minimal TextCarrier so the executor package stays independent of
// trpc-a2a-go/protocol.
func extractText(msg protocol.Message) string {
	carriers := make([]executor.TextCarrier, len(msg.Parts))
	for i, p := range msg.Parts {
		carriers[i] = textCarrier{part: p}
	}
	return executor.ExtractText(carriers)
}

type textCarrier struct{ part protocol.Part }

func (t textCarrier) Text() string {
	if tp, ok := t.part.(*protocol.TextPart); ok {
		return tp.Text
	}
	return ""
}

func newAgentMessage(contextID, taskID, text string) protocol.Message {
	return protocol.Message{
		MessageID: protocol.GenerateMessageID(),
		Role:      protocol.MessageRoleAgent,
		ContextID: &contextID,
		TaskID:    &taskID,
		Parts:     []protocol.Part{protocol.NewTextPart(text)},
		Kind:      protocol.KindMessage,
	}
}

// collectingSink implements executor.EventSink by recording the single
// status and message text a non-streaming call resolves to; OnSendMessage
// and OnCancelTask only need the final state, not the full event stream.
type collectingSink struct {
	mu    sync.Mutex
	state protocol.TaskState
	body  string
}

func (s *collectingSink) SendStatus(e executor.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = toProtocolState(e.State)
	return nil
}

func (s *collectingSink) SendMessage(contextID, taskID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = text
	return nil
}

func (s *collectingSink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

// streamingSink implements executor.EventSink by forwarding every status
// and message event onto a StreamingMessageEvent channel as it happens.
type streamingSink struct {
	ch chan protocol.StreamingMessageEvent
}

func (s *streamingSink) SendStatus(e executor.StatusEvent) error {
	var msg *protocol.Message
	if e.Message != "" {
		m := newAgentMessage(e.ContextID, e.TaskID, e.Message)
		msg = &m
	}
	s.ch <- protocol.StreamingMessageEvent{
		Result: &protocol.TaskStatusUpdateEvent{
			Kind:      protocol.KindTaskStatusUpdate,
			TaskID:    e.TaskID,
			ContextID: e.ContextID,
			Status: protocol.TaskStatus{
				State:     toProtocolState(e.State),
				Message:   msg,
				Timestamp: e.Timestamp.Format(time.RFC3339),
			},
			Final: e.Final,
		},
	}
	return nil
}

func (s *streamingSink) SendMessage(contextID, taskID, text string) error {
	msg := newAgentMessage(contextID, taskID, text)
	s.ch <- protocol.StreamingMessageEvent{Result: &msg}
	return nil
}

func toProtocolState(s executor.TaskState) protocol.TaskState {
	switch s {
	case executor.TaskStateWorking:
		return protocol.TaskStateWorking
	case executor.TaskStateCompleted:
		return protocol.TaskStateCompleted
	case executor.TaskStateFailed:
		return protocol.TaskStateFailed
	case executor.TaskStateCanceled:
		return protocol.TaskStateCanceled
	default:
		return protocol.TaskStateWorking
	}
}

// NewHandlerFactory returns a router.HandlerFactory that builds one
// Executor and one trpc-a2a-go server.Server per agent, mirroring the
// teacher's internal/httpserver mount of server.NewA2AServer(...).Handler()
// under a path prefix.
func NewHandlerFactory(driver *queryrun.Driver, namespace string, defaultTimeout time.Duration, log logr.Logger) router.HandlerFactory {
	return func(agentName string, card *server.AgentCard) (http.Handler, error) {
		exec := executor.New(agentName, driver, namespace, defaultTimeout, log)
		tm := NewTaskManager(exec, log)

		srv, err := server.NewA2AServer(*card, tm)
		if err != nil {
			return nil, fmt.Errorf("a2a: build server for %q: %w", agentName, err)
		}
		return srv.Handler(), nil
	}
}
