// Package client provides the JetStream client used by node runners to
// receive run requests and report results.
package client

import (
	"context"
	"fmt"

	natsclient "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wehubfusion/Talos/internal/nats"
	sdkerrors "github.com/wehubfusion/Talos/pkg/errors"
	"github.com/wehubfusion/Talos/pkg/message"
)

// Client is the central JetStream client that manages the connection and
// provides access to the message service. It is the entry point for all
// JetStream operations.
//
// Note: the SDK uses JetStream exclusively for all messaging operations.
// Standard NATS publish/subscribe is not supported.
//
// Example usage:
//
//	c := client.NewClient("nats://localhost:4222")
//	if err := c.Connect(ctx); err != nil {
//	    logger.Fatal("Failed to connect", zap.Error(err))
//	}
//	defer c.Close()
type Client struct {
	conn   *natsclient.Conn
	js     natsclient.JetStreamContext
	config *nats.ConnectionConfig
	logger *zap.Logger

	// Messages provides access to JetStream run request and result
	// operations: publish, pull-based consumption, and result reporting
	Messages *message.Service
}

// NewClient creates a JetStream SDK client with default configuration.
// The URL parameter specifies the NATS server address.
//
// JetStream must be enabled on the NATS server. The client must be
// connected using Connect() before use.
func NewClient(url string) *Client {
	logger, _ := zap.NewProduction()
	return &Client{
		config: nats.DefaultConnectionConfig(url),
		logger: logger,
	}
}

// NewClientWithConfig creates a JetStream SDK client with custom
// configuration, giving full control over reconnection settings, timeouts,
// authentication, and result stream naming.
func NewClientWithConfig(config *nats.ConnectionConfig) *Client {
	logger, _ := zap.NewProduction()
	return &Client{
		config: config,
		logger: logger,
	}
}

// NewClientWithJSContext creates a client wired to a provided JSContext
// implementation. Useful for tests to avoid connecting to a real NATS server.
func NewClientWithJSContext(js message.JSContext) *Client {
	logger, _ := zap.NewProduction()
	svc, _ := message.NewService(js, 5, 3, "RESULTS", "result")
	return &Client{
		Messages: svc,
		logger:   logger,
	}
}

// Connect establishes a connection to the NATS server and initializes the
// JetStream context and message service. Must be called before using any
// service methods. Returns an error if connection fails or JetStream is not
// enabled on the server.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil && c.conn.IsConnected() {
		return nil
	}

	conn, err := nats.Connect(ctx, c.config, c.logger)
	if err != nil {
		return sdkerrors.NewInternalError("", "failed to connect to NATS", "CONNECTION_FAILED", err)
	}

	c.conn = conn

	js, err := conn.JetStream()
	if err != nil {
		_ = nats.Close(c.conn)
		c.conn = nil
		return sdkerrors.NewInternalError("", "JetStream is not enabled on the NATS server", "JETSTREAM_NOT_ENABLED", err)
	}
	c.js = js

	msgService, err := message.NewService(
		message.WrapNATSJetStream(c.js),
		c.config.MaxDeliver,
		c.config.PublishMaxRetries,
		c.config.ResultStream,
		c.config.ResultSubject,
	)
	if err != nil {
		_ = nats.Close(c.conn)
		c.conn = nil
		c.js = nil
		return sdkerrors.NewInternalError("", "failed to initialize message service", "SERVICE_INIT_FAILED", err)
	}
	msgService.SetLogger(c.logger)
	c.Messages = msgService

	return nil
}

// SetLogger sets a custom zap logger for the client.
func (c *Client) SetLogger(logger *zap.Logger) {
	if logger != nil {
		c.logger = logger
		if c.Messages != nil {
			c.Messages.SetLogger(logger)
		}
	}
}

// Close gracefully closes the NATS connection, draining in-flight messages
// first. Should always be called when done with the client, typically with
// defer immediately after Connect().
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	if err := nats.Close(c.conn); err != nil {
		return sdkerrors.NewInternalError("", "failed to close connection", "CLOSE_FAILED", err)
	}

	c.conn = nil
	c.js = nil
	c.Messages = nil

	return nil
}

// IsConnected returns true if the client is currently connected to the
// NATS server.
func (c *Client) IsConnected() bool {
	return nats.IsConnected(c.conn)
}

// Connection returns the underlying NATS connection for advanced use cases.
//
// Warning: direct manipulation of the connection can interfere with the
// SDK's connection management.
func (c *Client) Connection() *natsclient.Conn {
	return c.conn
}

// JetStream returns the JetStream context for advanced JetStream operations
// like stream and consumer management. Returns nil before Connect.
func (c *Client) JetStream() natsclient.JetStreamContext {
	return c.js
}

// Stats returns current connection statistics.
func (c *Client) Stats() ConnectionStats {
	if c.conn == nil {
		return ConnectionStats{}
	}

	stats := c.conn.Stats()
	return ConnectionStats{
		InMsgs:     stats.InMsgs,
		OutMsgs:    stats.OutMsgs,
		InBytes:    stats.InBytes,
		OutBytes:   stats.OutBytes,
		Reconnects: stats.Reconnects,
	}
}

// ConnectionStats holds connection statistics for monitoring and debugging.
type ConnectionStats struct {
	InMsgs     uint64
	OutMsgs    uint64
	InBytes    uint64
	OutBytes   uint64
	Reconnects uint64
}

func (c *Client) ensureConnected() error {
	if !c.IsConnected() {
		return sdkerrors.NewInternalError("", "not connected to NATS", "NOT_CONNECTED", sdkerrors.ErrNotConnected)
	}
	return nil
}

// Ping sends a ping to the NATS server to verify connectivity. Respects
// the context deadline and can be cancelled via context.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- c.conn.FlushTimeout(c.config.Timeout)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("ping cancelled: %w", ctx.Err())
	case err := <-resultCh:
		if err != nil {
			return sdkerrors.NewInternalError("", "ping failed", "PING_FAILED", err)
		}
		return nil
	}
}
