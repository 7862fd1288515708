// Package bridge wires the session server, handoff queue and executor
// into one explicitly owned object with start/tick/stop hooks. There is
// no global instance: the embedding process constructs a Bridge once per
// run and tears it down on shutdown.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"hostbridge/internal/config"
	"hostbridge/internal/executor"
	"hostbridge/internal/history"
	"hostbridge/internal/host"
	"hostbridge/internal/model"
	"hostbridge/internal/queue"
	"hostbridge/internal/registry"
	"hostbridge/internal/transport/ws"
)

const shutdownTimeout = 5 * time.Second

// Bridge connects WebSocket JSON-RPC clients to a single-threaded host.
// The network side runs on its own goroutines; the host side only ever
// enters through Tick, which the host (or the standalone runner)
// schedules at its own cadence. The bridge never self-schedules.
type Bridge struct {
	cfg  config.Config
	log  *slog.Logger
	reg  *registry.Registry
	pend *queue.Queue[model.PendingCommand]
	exec *executor.Executor
	hist *history.Store
	srv  *http.Server
	ln   net.Listener

	group    *errgroup.Group
	stopOnce sync.Once
	stopErr  error
}

func New(cfg config.Config, h host.Executor, log *slog.Logger) (*Bridge, error) {
	reg := registry.New(log)
	pend := queue.New[model.PendingCommand]()

	var hist *history.Store
	if cfg.HistoryPath != "" {
		var err error
		hist, err = history.NewStore(cfg.HistoryPath, log)
		if err != nil {
			return nil, fmt.Errorf("open history store: %w", err)
		}
	}

	b := &Bridge{
		cfg:  cfg,
		log:  log,
		reg:  reg,
		pend: pend,
		exec: executor.New(pend, h, reg, hist, log),
		hist: hist,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	ws.NewServer(reg, pend, log).Routes(router)
	router.GET("/healthz", b.handleHealthz)
	if hist != nil {
		router.GET("/history", b.handleHistory)
	}

	b.srv = &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: router,
	}
	return b, nil
}

// Start begins listening and serving on network goroutines. It returns
// once the listener is bound; a canceled ctx triggers a graceful
// shutdown.
func (b *Bridge) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", b.srv.Addr, err)
	}
	b.ln = ln
	b.log.Info("bridge listening", "addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)
	b.group = g
	g.Go(func() error {
		if err := b.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		b.shutdown()
		return nil
	})
	return nil
}

// Addr reports the bound listen address. Valid after Start.
func (b *Bridge) Addr() string {
	if b.ln == nil {
		return ""
	}
	return b.ln.Addr().String()
}

// Tick runs one executor cycle. The host's tick callback is the only
// caller; it is never invoked concurrently with itself.
func (b *Bridge) Tick() {
	b.exec.Tick()
}

// Pending reports how many commands are waiting for a tick.
func (b *Bridge) Pending() int {
	return b.pend.Len()
}

func (b *Bridge) shutdown() {
	b.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		b.stopErr = b.srv.Shutdown(ctx)
	})
}

// Stop gracefully shuts the server down, waits for the network goroutines
// and closes the history store. Queued commands that never got a tick are
// discarded; they are not persisted.
func (b *Bridge) Stop() error {
	b.shutdown()

	var groupErr error
	if b.group != nil {
		groupErr = b.group.Wait()
	}

	var histErr error
	if b.hist != nil {
		histErr = b.hist.Close()
	}
	return errors.Join(b.stopErr, groupErr, histErr)
}

func (b *Bridge) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"pending": b.pend.Len(),
	})
}

func (b *Bridge) handleHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := b.hist.Recent(limit)
	if err != nil {
		b.log.Warn("history query failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": entries})
}
