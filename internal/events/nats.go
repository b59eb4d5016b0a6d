package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "docqa.answers"

// NewNATS constructs a thin NATS-based publisher.
func NewNATS(log *slog.Logger, nc *nats.Conn, subject string) Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &natsPublisher{log: log, nc: nc, subject: subject}
}

type natsPublisher struct {
	log     *slog.Logger
	nc      *nats.Conn
	subject string
}

func (p *natsPublisher) Publish(_ context.Context, ev AnswerEvent) error {
	if p.nc == nil {
		return errors.New("nats connection required")
	}
	body, err := json.Marshal(withDefaults(ev))
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, body)
}

// Close flushes pending messages and closes the connection.
func (p *natsPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.log.Warn("nats drain failed", "err", err)
		p.nc.Close()
		return err
	}
	return nil
}
