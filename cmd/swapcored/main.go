// Command swapcored wires the swap pipeline components into a running
// process: load config, open the RocksDB-backed RIO engine, build the
// executor, and pump its completion queue until SIGTERM.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openimsdk/tools/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/swapdb/swapcore/internal/swap/rio"
	"github.com/swapdb/swapcore/internal/swap/stats"
	"github.com/swapdb/swapcore/internal/swap/swapctx"
	"github.com/swapdb/swapcore/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to swapcored config file (optional, defaults used if absent)")
	numDBs := flag.Int("dbs", 16, "number of logical databases")
	flag.Parse()

	ctx := context.Background()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath, "SWAPCORE")
		if err != nil {
			log.ZError(ctx, "failed to load config, falling back to defaults", err, "path", *configPath)
		} else {
			cfg = loaded
		}
	}

	engine, err := rio.OpenRocksEngine(cfg.RocksDBDir)
	if err != nil {
		log.ZError(ctx, "failed to open rocksdb engine", err, "dir", cfg.RocksDBDir)
		os.Exit(1)
	}
	defer engine.Close()

	st := stats.New(cfg.SlowLogRingSize, cfg.SlowSwapSampleRate, cfg.SlowSwapThreshold)
	registry := prometheus.NewRegistry()
	for _, c := range st.Collectors() {
		registry.MustRegister(c)
	}

	executor := swapctx.New(*numDBs, cfg.Workers, engine, st, cfg.AbsentCacheCapacity)
	executor.Start()
	defer executor.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return pumpCompletions(gctx, executor, cfg.BatchInterval) })

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-sigs:
		log.ZInfo(ctx, "received shutdown signal")
	case <-gctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.ZError(ctx, "pump loop exited with error", err)
	}
}

// pumpCompletions periodically flushes open submission batches and
// drains the completion queue, standing in for the host event loop a
// real Redis-style server would already have.
func pumpCompletions(ctx context.Context, e *swapctx.Executor, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.FlushBoundary()
			e.DrainCompletions()
		}
	}
}
