// Package client is a JSON-RPC 2.0 WebSocket client for the bridge. It
// issues one call at a time over a single connection and correlates the
// reply by request id.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// RPCError is a JSON-RPC error object returned by the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      int64    `json:"id"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int64     `json:"id"`
	Result  *string   `json:"result"`
	Error   *RPCError `json:"error"`
}

// Client talks to a bridge endpoint such as ws://localhost:3000/ws.
type Client struct {
	url  string
	conn *websocket.Conn

	// mu serializes calls: the protocol on a single connection is
	// request/response lockstep.
	mu     sync.Mutex
	nextID int64
}

// Dial connects to the endpoint once.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{url: url, conn: conn}, nil
}

// DialRetry keeps dialing at the given interval until it connects or ctx
// expires. Hosts load the bridge plugin at their own pace, so clients
// typically retry at startup.
func DialRetry(ctx context.Context, url string, interval time.Duration) (*Client, error) {
	for {
		c, err := Dial(ctx, url)
		if err == nil {
			return c, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial %s: %w (last error: %v)", url, ctx.Err(), err)
		case <-time.After(interval):
		}
	}
}

// Execute runs a command on the host and returns its textual result. The
// reply arrives only after the host's next tick, so the deadline on ctx
// must cover the queueing delay.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	return c.call(ctx, "execute", []string{command})
}

// Ping checks liveness of the bridge without touching the host.
func (c *Client) Ping(ctx context.Context) error {
	result, err := c.call(ctx, "ping", []string{})
	if err != nil {
		return err
	}
	if result != "pong" {
		return fmt.Errorf("unexpected ping reply %q", result)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	// A zero deadline means no timeout, matching context semantics.
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return "", err
	}
	if err := c.conn.WriteJSON(request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}); err != nil {
		return "", fmt.Errorf("send %s: %w", method, err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return "", err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read %s reply: %w", method, err)
	}

	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("decode %s reply: %w", method, err)
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	if resp.ID != id {
		return "", fmt.Errorf("reply id %d does not match request id %d", resp.ID, id)
	}
	if resp.Result == nil {
		return "", fmt.Errorf("%s reply carries neither result nor error", method)
	}
	return *resp.Result, nil
}

// Close shuts the connection down.
func (c *Client) Close() error {
	return c.conn.Close()
}
