// Package notify publishes hook activity to NATS so other services can
// follow an ensemble run.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/ensemble/hook"
)

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes one JSON message per fired hook on
// "<prefix>.<phase>", for example "ensemble.hook.POST_SIMULATION".
type NATSNotifier struct {
	pub    Publisher
	prefix string
	logger *slog.Logger
}

// NewNATSNotifier creates a notifier publishing through pub.
func NewNATSNotifier(pub Publisher, prefix string, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{pub: pub, prefix: prefix, logger: logger}
}

// Subject returns the subject events of phase are published on.
func (n *NATSNotifier) Subject(phase hook.Phase) string {
	return n.prefix + "." + phase.String()
}

// HookFired implements hook.Notifier. Publish failures are logged and do not
// affect dispatch.
func (n *NATSNotifier) HookFired(_ context.Context, event hook.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to marshal hook event", "workflow", event.Workflow, "error", err)
		return
	}

	subject := n.Subject(event.Phase)
	if err := n.pub.Publish(subject, data); err != nil {
		n.logger.Error("Failed to publish hook event",
			"subject", subject,
			"run_id", event.RunID,
			"workflow", event.Workflow,
			"error", err)
		return
	}

	n.logger.Debug("Published hook event", "subject", subject, "run_id", event.RunID, "workflow", event.Workflow)
}

// Connect opens a NATS connection named after the ensemble tool.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("ensemble"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}
