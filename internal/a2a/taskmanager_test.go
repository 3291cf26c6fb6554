package a2a_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"

	arkv1alpha1 "github.com/kagent-dev/a2agw/api/v1alpha1"
	"github.com/kagent-dev/a2agw/internal/a2a"
	"github.com/kagent-dev/a2agw/internal/executor"
	"github.com/kagent-dev/a2agw/internal/queryrun"
	"github.com/kagent-dev/a2agw/internal/registry"
)

func newFakeClient(t *testing.T, objects ...client.Object) client.Client {
	t.Helper()
	s := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(s))
	require.NoError(t, arkv1alpha1.AddToScheme(s))
	return fake.NewClientBuilder().WithScheme(s).WithObjects(objects...).WithStatusSubresource(&arkv1alpha1.Query{}).Build()
}

// resolveQueriesWith marks every Query that appears in c's store with the
// given status, simulating the external controller that actually
// executes queries.
func resolveQueriesWith(t *testing.T, c client.Client, status arkv1alpha1.QueryStatus) (stop func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		seen := map[string]bool{}
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			select {
			case <-done:
				return
			default:
			}
			var list arkv1alpha1.QueryList
			if err := c.List(context.Background(), &list); err == nil {
				for _, q := range list.Items {
					if seen[q.Name] {
						continue
					}
					q.Status = status
					if err := c.Status().Update(context.Background(), &q); err == nil {
						seen[q.Name] = true
					}
				}
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()
	return func() { close(done) }
}

func newTaskManager(t *testing.T, c client.Client, agentName string, timeout time.Duration) *a2a.TaskManager {
	t.Helper()
	reg := registry.New(c, "ns1")
	driver := queryrun.New(reg, logr.Discard())
	exec := executor.New(agentName, driver, "ns1", timeout, logr.Discard())
	return a2a.NewTaskManager(exec, logr.Discard()).(*a2a.TaskManager)
}

func TestOnSendMessageReturnsAgentReply(t *testing.T) {
	c := newFakeClient(t, &arkv1alpha1.Agent{ObjectMeta: metav1.ObjectMeta{Name: "foo", Namespace: "ns1"}})
	stop := resolveQueriesWith(t, c, arkv1alpha1.QueryStatus{
		Phase:     arkv1alpha1.QueryPhaseDone,
		Responses: []arkv1alpha1.QueryResponse{{Content: "hello there"}},
	})
	defer stop()

	tm := newTaskManager(t, c, "foo", 5*time.Second)
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("hi")})

	result, err := tm.OnSendMessage(context.Background(), protocol.SendMessageParams{Message: msg})
	require.NoError(t, err)
	require.NotNil(t, result.Result)

	reply, ok := result.Result.(*protocol.Message)
	require.True(t, ok, "expected a Message result")
	require.Len(t, reply.Parts, 1)
	textPart, ok := reply.Parts[0].(*protocol.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hello there", textPart.Text)
}

func TestOnSendMessageDefaultsMissingIDs(t *testing.T) {
	c := newFakeClient(t, &arkv1alpha1.Agent{ObjectMeta: metav1.ObjectMeta{Name: "foo", Namespace: "ns1"}})
	stop := resolveQueriesWith(t, c, arkv1alpha1.QueryStatus{
		Phase:     arkv1alpha1.QueryPhaseDone,
		Responses: []arkv1alpha1.QueryResponse{{Content: "ok"}},
	})
	defer stop()

	tm := newTaskManager(t, c, "foo", 5*time.Second)
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("hi")})
	msg.TaskID = nil
	msg.ContextID = nil

	result, err := tm.OnSendMessage(context.Background(), protocol.SendMessageParams{Message: msg})
	require.NoError(t, err)
	reply := result.Result.(*protocol.Message)
	require.NotNil(t, reply.TaskID)
	require.NotNil(t, reply.ContextID)
	assert.NotEmpty(t, *reply.TaskID)
	assert.NotEmpty(t, *reply.ContextID)
}

func TestOnSendMessageStreamEmitsWorkingThenCompleted(t *testing.T) {
	c := newFakeClient(t, &arkv1alpha1.Agent{ObjectMeta: metav1.ObjectMeta{Name: "foo", Namespace: "ns1"}})
	stop := resolveQueriesWith(t, c, arkv1alpha1.QueryStatus{
		Phase:     arkv1alpha1.QueryPhaseDone,
		Responses: []arkv1alpha1.QueryResponse{{Content: "streamed"}},
	})
	defer stop()

	tm := newTaskManager(t, c, "foo", 5*time.Second)
	msg := protocol.NewMessage(protocol.MessageRoleUser, []protocol.Part{protocol.NewTextPart("hi")})

	ch, err := tm.OnSendMessageStream(context.Background(), protocol.SendMessageParams{Message: msg})
	require.NoError(t, err)

	var states []protocol.TaskState
	var sawText bool
	for ev := range ch {
		switch r := ev.Result.(type) {
		case *protocol.TaskStatusUpdateEvent:
			states = append(states, r.Status.State)
		case *protocol.Message:
			sawText = true
		}
	}

	require.NotEmpty(t, states)
	assert.Equal(t, protocol.TaskStateWorking, states[0])
	assert.Equal(t, protocol.TaskStateCompleted, states[len(states)-1])
	assert.True(t, sawText)
}

func TestOnCancelTaskUnknownTaskIsIdempotent(t *testing.T) {
	c := newFakeClient(t)
	tm := newTaskManager(t, c, "foo", 5*time.Second)

	task, err := tm.OnCancelTask(context.Background(), protocol.TaskIDParams{ID: "does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, protocol.TaskStateCanceled, task.Status.State)
}

func TestOnGetTaskUnsupported(t *testing.T) {
	c := newFakeClient(t)
	tm := newTaskManager(t, c, "foo", 5*time.Second)

	_, err := tm.OnGetTask(context.Background(), protocol.TaskQueryParams{ID: "x"})
	assert.Error(t, err)
}
