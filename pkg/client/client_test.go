package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers every request with the payload produced by reply.
func fakeServer(t *testing.T, reply func(req request) string) string {
	t.Helper()

	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req request
			if err := json.Unmarshal(data, &req); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply(req))); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestExecute(t *testing.T) {
	url := fakeServer(t, func(req request) string {
		b, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "ok: " + req.Params[0],
		})
		return string(b)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	out, err := c.Execute(ctx, "tv_version")
	require.NoError(t, err)
	assert.Equal(t, "ok: tv_version", out)

	// The id auto-increments per call.
	out, err = c.Execute(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "ok: second", out)
}

func TestServerErrorBecomesRPCError(t *testing.T) {
	url := fakeServer(t, func(req request) string {
		b, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": -32000, "message": "Error when executing command"},
		})
		return string(b)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Execute(ctx, "tv_broken")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
	assert.Equal(t, "Error when executing command", rpcErr.Message)
}

func TestPingRejectsUnexpectedReply(t *testing.T) {
	url := fakeServer(t, func(req request) string {
		b, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "nope"})
		return string(b)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	assert.Error(t, c.Ping(ctx))
}

func TestMismatchedReplyID(t *testing.T) {
	url := fakeServer(t, func(req request) string {
		b, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": req.ID + 99, "result": "x"})
		return string(b)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Execute(ctx, "cmd")
	assert.ErrorContains(t, err, "does not match")
}

func TestDialRetryGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	// Nothing listens here.
	_, err := DialRetry(ctx, "ws://127.0.0.1:1/ws", 50*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
