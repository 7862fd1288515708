package bridge_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostbridge/internal/bridge"
	"hostbridge/internal/config"
	"hostbridge/internal/host"
	"hostbridge/internal/logging"
	"hostbridge/pkg/client"
)

func startBridge(t *testing.T, cfg config.Config, h host.Executor) *bridge.Bridge {
	t.Helper()

	b, err := bridge.New(cfg, h, logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, b.Stop())
	})

	// Stand-in for the host scheduler: tick at a fast fixed cadence
	// until the test is over.
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				b.Tick()
			}
		}
	}()

	return b
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:         0, // pick a free port
		TickInterval: 2 * time.Millisecond,
		LogLevel:     "error",
		LogFormat:    "text",
	}
}

func TestPingAndExecuteRoundTrip(t *testing.T) {
	script := host.NewScript()
	script.Reply("tv_version", `"TVP Animation 11 Pro" 11.5.3 fr`)
	b := startBridge(t, testConfig(t), script)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, "ws://"+b.Addr()+"/ws")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	result, err := c.Execute(ctx, "tv_version")
	require.NoError(t, err)
	assert.Equal(t, `"TVP Animation 11 Pro" 11.5.3 fr`, result)

	// Unscripted commands echo back through the full cycle.
	result, err = c.Execute(ctx, "tv_projectcurrentid")
	require.NoError(t, err)
	assert.Equal(t, "tv_projectcurrentid", result)
}

func TestHostFailureSurfacesAsServerError(t *testing.T) {
	script := host.NewScript()
	script.Fail("tv_broken")
	b := startBridge(t, testConfig(t), script)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, "ws://"+b.Addr()+"/ws")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Execute(ctx, "tv_broken")
	var rpcErr *client.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestConcurrentClients(t *testing.T) {
	b := startBridge(t, testConfig(t), host.NewScript())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const clients = 5
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			c, err := client.Dial(ctx, "ws://"+b.Addr()+"/ws")
			if err != nil {
				errs <- err
				return
			}
			defer c.Close()

			for j := 0; j < 10; j++ {
				cmd := fmt.Sprintf("cmd_%d_%d", i, j)
				out, err := c.Execute(ctx, cmd)
				if err != nil {
					errs <- err
					return
				}
				if out != cmd {
					errs <- fmt.Errorf("got %q, want %q", out, cmd)
					return
				}
			}
			errs <- nil
		}(i)
	}
	for i := 0; i < clients; i++ {
		require.NoError(t, <-errs)
	}
}

func TestHealthz(t *testing.T) {
	b := startBridge(t, testConfig(t), host.NewScript())

	resp, err := http.Get("http://" + b.Addr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHistoryEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")
	b := startBridge(t, cfg, host.NewScript())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, "ws://"+b.Addr()+"/ws")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Execute(ctx, "tv_version")
	require.NoError(t, err)

	// The history writer is asynchronous; poll until the entry lands.
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + b.Addr() + "/history")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var body struct {
			Executions []struct {
				Command string `json:"command"`
			} `json:"executions"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false
		}
		return len(body.Executions) == 1 && body.Executions[0].Command == "tv_version"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestStopIsIdempotentWithContextCancel(t *testing.T) {
	b, err := bridge.New(testConfig(t), host.NewScript(), logging.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))

	cancel()
	assert.NoError(t, b.Stop())
}
