// Command flowqueue-demo wires a flowqueue.Manager to an in-memory
// loopback switch and drives a configurable number of requests through
// it, printing completion statistics and serving Prometheus metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"

	"github.com/openflow-go/flowqueue"
	"github.com/openflow-go/flowqueue/internal/frame"
	"github.com/openflow-go/flowqueue/internal/loopback"
	"github.com/openflow-go/flowqueue/internal/logging"
)

func main() {
	var (
		requests  = flag.Int("requests", 10000, "Number of requests to drive through the queue")
		queueSize = flag.Uint("queue-size", 256, "Maximum non-barrier entries per generation")
		verbose   = flag.Bool("v", false, "Verbose output")
		metricsAddr = flag.String("metrics-addr", ":9090", "Address to serve /metrics on, empty to disable")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	registry := prometheus.NewRegistry()
	observer := flowqueue.NewPrometheusObserver(registry, "flowqueue", "demo")

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("serving metrics", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := loopback.NewEventLoop(1024)
	adapter := loopback.NewAdapter(loop, 1024)
	handler := &echoingHandler{}
	mgr := flowqueue.NewManager(flowqueue.ManagerParams{
		Adapter:  adapter,
		Handler:  handler,
		Config:   flowqueue.Config{QueueSize: uint32(*queueSize)},
		Observer: observer,
	})

	sw := loopback.NewSwitch(adapter, managerAdapter{mgr}, echoResponder)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); loop.Run(ctx) }()
	go func() { defer wg.Done(); sw.Run(ctx) }()

	logger.Info("driving requests", "count", *requests, "queue_size", *queueSize)
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	go driveRequests(mgr, *requests, logger)

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			dumpStacks(logger)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		logger.Info("shutdown timeout, forcing exit")
	}
	os.Exit(0)
}

// echoingHandler builds bare barrier frames and ignores reservation-target
// changes.
type echoingHandler struct{}

func (echoingHandler) CreateBarrierRequest(xid uint32) flowqueue.Frame {
	return flowqueue.StubFrame{XIDValue: xid, BarrierValue: true}
}

func (echoingHandler) OnConnectionQueueChanged(flowqueue.Reserver) {}

// managerAdapter lets loopback.Switch/Connect, which only know about
// internal/frame.Frame, drive a flowqueue.Manager, whose OnMessage
// speaks the public flowqueue.Frame alias of the same type.
type managerAdapter struct{ mgr *flowqueue.Manager }

func (m managerAdapter) OnMessage(resp frame.Frame) bool { return m.mgr.OnMessage(resp) }

func echoResponder(req frame.Frame) frame.Frame {
	return flowqueue.StubFrame{XIDValue: req.XID()}
}

func driveRequests(mgr *flowqueue.Manager, count int, logger *flowqueue.Logger) {
	var completed, failed atomic.Int64
	start := time.Now()

	for i := 0; i < count; i++ {
		xid, err := mgr.Reserve(false)
		if err != nil {
			failed.Add(1)
			continue
		}
		err = mgr.Commit(xid, flowqueue.StubFrame{XIDValue: xid}, func(r flowqueue.Result) {
			if r.Err != nil {
				failed.Add(1)
				return
			}
			completed.Add(1)
		})
		if err != nil {
			failed.Add(1)
		}
	}

	time.Sleep(500 * time.Millisecond)
	elapsed := time.Since(start)
	logger.Info("drive complete",
		"completed", completed.Load(),
		"failed", failed.Load(),
		"elapsed", elapsed.String())
}

func dumpStacks(logger *flowqueue.Logger) {
	logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
	buf := make([]byte, 1024*1024)
	n := runtime.Stack(buf, true)
	fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n%s\n=== END STACK DUMP ===\n\n", buf[:n])

	filename := fmt.Sprintf("flowqueue-stacks-%d.txt", time.Now().Unix())
	f, err := os.Create(filename)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "Goroutine stack dump at %s\nProcess ID: %d\n\n", time.Now().Format(time.RFC3339), os.Getpid())
	f.Write(buf[:n])
	fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
	pprof.Lookup("goroutine").WriteTo(f, 2)
	logger.Info("stack trace written to file", "file", filename)
}
