package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ensemble/hook"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	messages []message
	err      error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message{subject: subject, data: data})
	return nil
}

func TestNATSNotifier_PublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNATSNotifier(pub, "ensemble.hook", nil)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	n.HookFired(context.Background(), hook.Event{
		RunID:     "run-1",
		Workflow:  "export",
		Phase:     hook.PostSimulation,
		Target:    "iter-0",
		Timestamp: ts,
	})

	require.Len(t, pub.messages, 1)
	assert.Equal(t, "ensemble.hook.POST_SIMULATION", pub.messages[0].subject)

	var got hook.Event
	require.NoError(t, json.Unmarshal(pub.messages[0].data, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "export", got.Workflow)
	assert.Equal(t, hook.PostSimulation, got.Phase)
	assert.Equal(t, "iter-0", got.Target)
	assert.True(t, ts.Equal(got.Timestamp))
}

func TestNATSNotifier_Subject(t *testing.T) {
	n := NewNATSNotifier(&fakePublisher{}, "case.a", nil)
	for _, phase := range hook.Phases() {
		assert.Equal(t, "case.a."+phase.String(), n.Subject(phase))
	}
}

func TestNATSNotifier_PublishErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	pub := &fakePublisher{err: errors.New("connection closed")}
	n := NewNATSNotifier(pub, "ensemble.hook", slog.New(slog.NewTextHandler(&logs, nil)))

	n.HookFired(context.Background(), hook.Event{RunID: "run-2", Workflow: "plot", Phase: hook.PreUpdate})

	assert.Empty(t, pub.messages)
	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "connection closed")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", nil)
	assert.Error(t, err)
}
