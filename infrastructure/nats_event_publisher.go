package infrastructure

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"trustbit/domain/events"
	"trustbit/domain/interfaces"
)

// NATSEventPublisher publishes domain events to NATS as JSON.
// Subjects follow "trustbit.events.<event type>".
type NATSEventPublisher struct {
	nc *nats.Conn
}

// NewNATSEventPublisher connects to NATS for event publishing
func NewNATSEventPublisher(servers string) (*NATSEventPublisher, error) {
	opts := []nats.Option{
		nats.Name("trustbit-events"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS event connection lost")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS event connection restored")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventPublisher{nc: nc}, nil
}

// NewNATSEventPublisherWithConn wraps an existing connection
func NewNATSEventPublisherWithConn(nc *nats.Conn) *NATSEventPublisher {
	return &NATSEventPublisher{nc: nc}
}

// Publish serializes the event and publishes it to its subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	if p.nc == nil || p.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type(), err)
	}

	subject := fmt.Sprintf("trustbit.events.%s", event.Type())
	if err := p.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	return nil
}

// Close drains and closes the connection
func (p *NATSEventPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

var _ interfaces.EventPublisher = (*NATSEventPublisher)(nil)
