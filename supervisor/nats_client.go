package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"trustbit/domain/entities"
	"trustbit/domain/interfaces"
)

// NATS subjects the external supervisor agent listens on
const (
	subjectStart = "supervisor.process.start"
	subjectStop  = "supervisor.process.stop"
)

// startRequest is the wire form of a launch request
type startRequest struct {
	ProcessName string                `json:"process_name"`
	Spec        interfaces.LaunchSpec `json:"spec"`
}

// stopRequest is the wire form of a termination request
type stopRequest struct {
	ProcessName string `json:"process_name"`
}

// reply is the supervisor agent's response envelope
type reply struct {
	Status  string `json:"status"` // "ok" or "error"
	Code    string `json:"code,omitempty"`
	Port    int    `json:"port,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	codeLaunchFailed = "launch_failed"
	codeNotFound     = "not_found"
)

// NATSClient talks to the external process supervisor over NATS
// request/reply. Every call carries a timeout; the supervisor assigns ports.
type NATSClient struct {
	nc      *nats.Conn
	timeout time.Duration
}

// NewNATSClient connects to the supervisor's NATS servers
func NewNATSClient(servers string, timeout time.Duration) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name("trustbit-supervisor-client"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSClient{nc: nc, timeout: timeout}, nil
}

// NewNATSClientWithConn wraps an existing NATS connection
func NewNATSClientWithConn(nc *nats.Conn, timeout time.Duration) *NATSClient {
	return &NATSClient{nc: nc, timeout: timeout}
}

// Start requests a process launch and returns the supervisor-assigned port
func (c *NATSClient) Start(ctx context.Context, processName string, spec interfaces.LaunchSpec) (int, error) {
	payload, err := json.Marshal(startRequest{ProcessName: processName, Spec: spec})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal start request: %w", err)
	}

	resp, err := c.request(ctx, subjectStart, payload)
	if err != nil {
		return 0, err
	}

	if resp.Status != "ok" {
		if resp.Code == codeLaunchFailed {
			return 0, fmt.Errorf("%w: %s", entities.ErrLaunchFailed, resp.Message)
		}
		return 0, fmt.Errorf("%w: %s", entities.ErrSupervisorUnavailable, resp.Message)
	}

	return resp.Port, nil
}

// Stop requests termination. A "not found" reply counts as success: the
// process may already be gone from a prior partial sweep.
func (c *NATSClient) Stop(ctx context.Context, processName string) error {
	payload, err := json.Marshal(stopRequest{ProcessName: processName})
	if err != nil {
		return fmt.Errorf("failed to marshal stop request: %w", err)
	}

	resp, err := c.request(ctx, subjectStop, payload)
	if err != nil {
		return err
	}

	if resp.Status != "ok" && resp.Code != codeNotFound {
		return fmt.Errorf("%w: %s", entities.ErrSupervisorUnavailable, resp.Message)
	}

	return nil
}

func (c *NATSClient) request(ctx context.Context, subject string, payload []byte) (*reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(ctx, subject, payload)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
			return nil, fmt.Errorf("%w: %s", entities.ErrSupervisorTimeout, subject)
		case errors.Is(err, nats.ErrNoResponders), errors.Is(err, nats.ErrConnectionClosed):
			return nil, fmt.Errorf("%w: %s", entities.ErrSupervisorUnavailable, subject)
		default:
			return nil, fmt.Errorf("supervisor request %s failed: %w", subject, err)
		}
	}

	var resp reply
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode supervisor reply: %w", err)
	}

	return &resp, nil
}

// Close drains and closes the underlying NATS connection
func (c *NATSClient) Close() {
	if c.nc != nil {
		c.nc.Drain()
		c.nc.Close()
	}
}
