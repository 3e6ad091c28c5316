package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	domain "github.com/bryanwahyu/neuroscan/internal/domain/notify"
	"github.com/bryanwahyu/neuroscan/internal/logger"
)

const (
	streamName    = "NOTICES"
	defaultPrefix = "neuroscan.notices"
)

// NATSNotifier publishes notices on JetStream under <prefix>.<owner>.
type NATSNotifier struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
}

func NewNATSNotifier(url, prefix string, log logger.ILogger) (*NATSNotifier, error) {
	if prefix == "" {
		prefix = defaultPrefix
	}
	nc, err := nats.Connect(url,
		nats.Name("neuroscan"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{prefix + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		// stream may already exist with a different config or NATS is still starting
		log.Warn("notify", "failed to ensure stream", map[string]interface{}{"stream": streamName, "error": err})
	}
	return &NATSNotifier{nc: nc, js: js, prefix: prefix}, nil
}

func (n *NATSNotifier) Notify(ctx context.Context, notice domain.Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}
	subject := Subject(n.prefix, notice.OwnerID)
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish notice to subject %s: %w", subject, err)
	}
	return nil
}

// Ping reports whether the connection is up.
func (n *NATSNotifier) Ping(context.Context) error {
	if !n.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return nil
}

func (n *NATSNotifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}

// Subject builds the per-owner subject. Tokens NATS treats specially are replaced.
func Subject(prefix, owner string) string {
	if owner == "" {
		owner = "anonymous"
	}
	owner = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, owner)
	return prefix + "." + owner
}
