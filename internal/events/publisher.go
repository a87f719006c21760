// Package events publishes launch lifecycle events for downstream
// consumers (auditing, notifications). The broker is optional: a nil
// publisher drops everything silently.
package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Subjects used on the bus.
const (
	SubjectLaunch  = "lti.launch"
	SubjectConsent = "lti.consent"
)

// LaunchEvent is the payload published for every decided launch.
type LaunchEvent struct {
	PlacementID string    `json:"placement_id"`
	Role        string    `json:"role"`
	Outcome     string    `json:"outcome"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ConsentEvent is published when a member grants consent.
type ConsentEvent struct {
	PlacementID string    `json:"placement_id"`
	ActivityID  uint      `json:"activity_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher wraps a NATS connection.
type Publisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

// Connect dials the broker. An empty URL yields a nil publisher, which is
// safe to use.
func Connect(url string, logger zerolog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url, nats.Name("lti-bridge-api"))
	if err != nil {
		return nil, err
	}

	return &Publisher{
		conn:   conn,
		logger: logger.With().Str("component", "events").Logger(),
	}, nil
}

// Publish sends payload as JSON on subject. Failures are logged, never
// propagated: event delivery must not affect the launch flow.
func (p *Publisher) Publish(subject string, payload interface{}) {
	if p == nil || p.conn == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("failed to encode event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
