package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dira-ar/dira/internal/core/domain"
)

// ManifestRequest is the queued payload asking the manifest worker to
// pre-analyze a route.
type ManifestRequest struct {
	ManifestID  string          `json:"manifest_id"`
	WaypointIDs []string        `json:"waypoint_ids"`
	Origin      domain.GeoPoint `json:"origin"`
	RequestedAt time.Time       `json:"requested_at"`
}

// Subscriber consumes navigation events from NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeManifestRequests delivers queued manifest jobs to handler. The
// durable queue group lets multiple workers share the stream; a handler
// error NAKs the message for redelivery.
func (s *Subscriber) SubscribeManifestRequests(ctx context.Context, handler func(ctx context.Context, req *ManifestRequest) error) error {
	sub, err := s.js.QueueSubscribe("nav.manifests.requested", "manifest-workers", func(msg *nats.Msg) {
		var req ManifestRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &req); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.ManualAck(), nats.Durable("manifest-workers"))
	if err != nil {
		return fmt.Errorf("subscribe manifest requests: %w", err)
	}

	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeFrameAnalyses delivers published frame analyses, used by the
// WebSocket relay.
func (s *Subscriber) SubscribeFrameAnalyses(ctx context.Context, handler func(ctx context.Context, fa *domain.FrameAnalysis) error) error {
	sub, err := s.js.Subscribe("nav.frames.>", func(msg *nats.Msg) {
		var fa domain.FrameAnalysis
		if err := json.Unmarshal(msg.Data, &fa); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &fa); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		return fmt.Errorf("subscribe frame analyses: %w", err)
	}

	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes everything and drains the connection.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
