// Package events publishes interval lifecycle events to NATS JetStream so the
// surrounding application (dashboards, notification workers) can react without
// polling. Publishing is best-effort: an unreachable broker never fails a
// transition, it only logs.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/focusd/internal/interval"
	"git.home.luguber.info/inful/focusd/internal/logfields"
)

// Event is the payload published for every successful transition.
type Event struct {
	Action     string            `json:"action"`
	OccurredAt time.Time         `json:"occurred_at"`
	Interval   interval.Interval `json:"interval"`
}

// Publisher sends interval lifecycle events. The zero value and a nil
// Publisher are both safe no-ops so the service can run without a broker.
type Publisher struct {
	conn          *nats.Conn
	js            jetstream.JetStream
	subjectPrefix string
	logger        *slog.Logger
}

// Options configures the publisher connection.
type Options struct {
	URL           string
	SubjectPrefix string // defaults to "focusd"
	StreamName    string // defaults to "FOCUSD"
}

// Connect establishes the NATS connection and ensures the event stream exists.
func Connect(opts Options, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = "focusd"
	}
	if opts.StreamName == "" {
		opts.StreamName = "FOCUSD"
	}

	conn, err := nats.Connect(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     opts.StreamName,
		Subjects: []string{opts.SubjectPrefix + ".interval.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ensure event stream: %w", err)
	}

	logger.Info("NATS event publisher connected",
		"url", opts.URL,
		logfields.Subject(opts.SubjectPrefix+".interval.>"))

	return &Publisher{
		conn:          conn,
		js:            js,
		subjectPrefix: opts.SubjectPrefix,
		logger:        logger,
	}, nil
}

// Publish emits one lifecycle event for a successful transition. Errors are
// logged, never returned: the transition has already been persisted and must
// not be reported as failed.
func (p *Publisher) Publish(ctx context.Context, action string, iv interval.Interval) {
	if p == nil || p.js == nil {
		return
	}
	subject := fmt.Sprintf("%s.interval.%s", p.subjectPrefix, action)
	payload, err := json.Marshal(Event{Action: action, OccurredAt: time.Now().UTC(), Interval: iv})
	if err != nil {
		p.logger.Error("Marshal interval event", logfields.Subject(subject), logfields.Error(err))
		return
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		p.logger.Warn("Publish interval event",
			logfields.Subject(subject),
			logfields.IntervalID(iv.ID),
			logfields.Error(err))
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
