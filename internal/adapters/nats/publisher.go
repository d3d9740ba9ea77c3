package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dira-ar/dira/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist. Frame events age out fast; manifest requests
	// are work-queue items consumed by the manifest worker.
	streams := []nats.StreamConfig{
		{
			Name:      "NAV_ANALYSES",
			Subjects:  []string{"nav.frames.>", "nav.horizon.>", "nav.guidance.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "NAV_MANIFESTS",
			Subjects:  []string{"nav.manifests.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishFrameAnalysis(ctx context.Context, fa *domain.FrameAnalysis) error {
	data, err := json.Marshal(fa)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("nav.frames."+fa.Source, data)
	return err
}

func (p *Publisher) PublishHorizonAnalysis(ctx context.Context, ha *domain.HorizonAnalysis) error {
	data, err := json.Marshal(ha)
	if err != nil {
		return err
	}
	subject := "nav.horizon.refined"
	if ha.SkippedReason != "" {
		subject = "nav.horizon.skipped"
	}
	_, err = p.js.Publish(subject, data)
	return err
}

func (p *Publisher) PublishGuidance(ctx context.Context, tg *domain.TurnGuidance) error {
	data, err := json.Marshal(tg)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("nav.guidance."+string(tg.Status), data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("nav.updates.broadcast", data)
}

// PublishManifestRequest enqueues a route manifest job for the worker.
func (p *Publisher) PublishManifestRequest(ctx context.Context, req *ManifestRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("nav.manifests.requested", data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
