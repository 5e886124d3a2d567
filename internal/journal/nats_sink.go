package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/towerbuild/internal/events"
	ferrors "git.home.luguber.info/inful/towerbuild/internal/foundation/errors"
)

// DefaultSubject is used when no NATS subject is configured.
const DefaultSubject = "towerbuild.events"

// NATSSink publishes every event as JSON. The subject is suffixed with the
// event kind, so "towerbuild.events" receives "towerbuild.events.task.finished".
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to url. An unreachable server is a startup failure.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("towerbuild-journal"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "failed to connect to NATS").
			WithContext("url", url).
			Fatal().
			Build()
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject an event of kind is published on.
func (s *NATSSink) Subject(kind events.Kind) string {
	return s.subject + "." + string(kind)
}

func (s *NATSSink) Write(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := s.conn.Publish(s.Subject(e.Kind), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	if err != nil {
		s.conn.Close()
	}
	return err
}
