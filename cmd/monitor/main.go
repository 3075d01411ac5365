// Sift watches a collector-produced feed of process observations,
// consolidates and risk-scores new process identities, and appends them
// to a durable output log exactly once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/health"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/metrics"
	"github.com/linnemanlabs/go-core/opshttp"
	"github.com/linnemanlabs/go-core/otelx"
	"github.com/linnemanlabs/go-core/prof"
	v "github.com/linnemanlabs/go-core/version"

	sc "github.com/linnemanlabs/sift/internal/cfg"
	"github.com/linnemanlabs/sift/internal/feed"
	"github.com/linnemanlabs/sift/internal/notify/console"
	"github.com/linnemanlabs/sift/internal/triage"
	"github.com/linnemanlabs/sift/internal/triage/filestore"
	"github.com/linnemanlabs/sift/internal/triage/memstore"
	"github.com/linnemanlabs/sift/internal/watch"
)

const appName = "sift"
const component = "monitor"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set app name and component
	v.AppName = appName
	v.Component = component

	// Get build/version info
	vi := v.Get()

	// each package registers its own flags and options struct
	var (
		appCfg   sc.Config
		logCfg   log.Config
		opsCfg   opshttp.Config
		profCfg  prof.Config
		traceCfg otelx.Config
	)

	// register flags for each package, which will be parsed into the shared config struct
	appCfg.RegisterFlags(flag.CommandLine)
	logCfg.RegisterFlags(flag.CommandLine)
	opsCfg.RegisterFlags(flag.CommandLine)
	profCfg.RegisterFlags(flag.CommandLine)
	traceCfg.RegisterFlags(flag.CommandLine)
	var showVersion bool
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")

	// parse flags to get config values from cmdline, we check env vars next which do not override cmdline flags
	flag.Parse()
	if showVersion {
		fmt.Printf(
			"%s (%s) %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return nil
	}

	// Fill in config values from environment variables with prefix SIFT_,
	// these do not override cmdline flags
	cfg.FillFromEnv(flag.CommandLine, "SIFT_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := errors.Join(
		appCfg.Validate(),
		logCfg.Validate(),
		opsCfg.Validate(),
		profCfg.Validate(),
		traceCfg.Validate(),
	); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// initialize logger early
	lg, err := log.New(logCfg.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	// no-op for slog/stderr, but here if we swap backends in the future to ensure any buffered logs are flushed on shutdown
	defer func() { _ = lg.Sync() }()

	// create a logger with component field pre-filled for structured logging in this package
	L := lg.With("component", vi.Component)

	// add logger to context
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"admin_port", opsCfg.Port,
		"enable_pprof", opsCfg.EnablePprof,
		"enable_pyroscope", profCfg.EnablePyroscope,
		"enable_tracing", traceCfg.EnableTracing,
		"reports_dir", appCfg.ReportsDir,
		"feed_file", appCfg.FeedFile,
		"output_file", appCfg.OutputFile,
		"seen_file", appCfg.SeenFile,
		"policy_file", appCfg.PolicyFile,
		"debounce_ms", appCfg.DebounceMs,
	)

	// Setup pyroscope profiling early so we get profiles from the entire app lifetime
	profOpts := profCfg.ToOptions()
	profOpts.AppName = v.AppName
	profOpts.Tags = map[string]string{
		"app":       v.AppName,
		"component": v.Component,
		"version":   vi.Version,
		"commit":    vi.Commit,
		"build_id":  vi.BuildId,
		"source":    "lmlabs-go-agent",
	}
	// Start profiling, returns a stop function to call for clean shutdown (flush buffers, etc)
	stopProf, profErr := prof.Start(ctx, profOpts)
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", profCfg.PyroServer)
	}
	if stopProf != nil {
		defer stopProf()
	}

	// Setup otel for tracing
	traceOpts := traceCfg.ToOptions()
	traceOpts.Service = v.AppName
	traceOpts.Component = v.Component
	traceOpts.Version = v.Version

	// Start otel, returns a shutdown function to call for clean shutdown (flush buffers, etc)
	shutdownOtelx, err := otelx.Init(ctx, traceOpts)
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	if shutdownOtelx != nil {
		defer func() { _ = shutdownOtelx(context.Background()) }()
	}

	// Setup metrics, we use our own metrics package for internal instrumentation
	var m = metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	m.SetProfilingActive(profErr == nil && profCfg.EnablePyroscope)

	// The reports directory must exist before any file operation can
	// work; failing to create it is the only fatal startup error.
	if err := os.MkdirAll(appCfg.ReportsDir, 0o755); err != nil {
		L.Error(ctx, err, "cannot create reports directory", "dir", appCfg.ReportsDir)
		return fmt.Errorf("create reports directory %s: %w", appCfg.ReportsDir, err)
	}

	// Risk policy: built-in heuristics unless a policy file is given.
	policy := triage.DefaultPolicy()
	if appCfg.PolicyFile != "" {
		policy, err = triage.LoadPolicy(appCfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("risk policy: %w", err)
		}
		L.Info(ctx, "loaded risk policy", "file", appCfg.PolicyFile,
			"suspicious_folders", policy.SuspiciousFolders,
			"trusted_prefixes", policy.TrustedPrefixes,
		)
	}

	// Triage pipeline: feed reader, risk engine, store/sink, console
	// notifier for the human watching stdout.
	reader := feed.NewReader(appCfg.FeedPath())
	engine := triage.NewEngine(policy)

	var store triage.Store
	var sink triage.Sink
	if appCfg.Ephemeral {
		mem := memstore.New()
		store, sink = mem, mem
		L.Info(ctx, "using in-memory store (-ephemeral), state is lost on exit")
	} else {
		fileStore := filestore.New(appCfg.SeenPath(), appCfg.OutputPath(), L)
		store, sink = fileStore, fileStore
	}

	triageMetrics := triage.NewMetrics(m.Registry())
	notifier := console.New(os.Stdout)
	svc := triage.NewService(reader, engine, store, sink, notifier, L, triageMetrics)

	loaded := svc.LoadSeen(ctx)
	L.Info(ctx, "loaded previously seen processes", "count", loaded)

	// setup toggle for shutdown, used to fail readiness checks once we stop triaging
	var shutdownGate health.ShutdownGate

	readiness := health.All(
		shutdownGate.Probe(),
	)
	liveness := health.Fixed(true, "")

	// Configure ops http server for metrics, health checks, pprof, etc
	opsOpts := opsCfg.ToOptions()
	opsOpts.Metrics = m.Handler()
	opsOpts.Health = liveness
	opsOpts.Readiness = readiness
	opsOpts.UseRecoverMW = true
	opsOpts.OnPanic = m.IncHttpPanic

	// admin/ops listener only; sift serves no API of its own
	opsHTTPStop, err := opshttp.Start(ctx, L, opsOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		return err
	}
	defer func() {
		err := opsHTTPStop(context.Background())
		if err != nil {
			L.Error(ctx, err, "failed to stop ops http listener")
		}
	}()

	// One pass over whatever the feed holds right now, then one pass per
	// coalesced change signal. The loop below is the only goroutine that
	// runs passes, which serializes them and makes it the sole owner of
	// the seen-set.
	L.Info(ctx, "processing initial feed")
	svc.RunPass(ctx)

	w, err := watch.New(appCfg.FeedPath(), time.Duration(appCfg.DebounceMs)*time.Millisecond, L)
	if err != nil {
		L.Error(ctx, err, "failed to start feed watcher")
		return err
	}
	go w.Run(ctx)

	// Notify systemd that we started successfully if started under systemd
	if err := notifySystemd(); err != nil {
		// log and dont exit, worst case systemd will kill the process after timeout
		L.Warn(ctx, "failed to notify systemd of readiness", "error", err)
	}

	L.Info(ctx, "watching for feed changes", "path", appCfg.FeedPath())

	for {
		select {
		case <-ctx.Done():
			L.Info(context.Background(), "shutdown signal received")

			// fail readiness so monitoring sees the monitor going away
			shutdownGate.Set("draining")

			// no in-flight state to flush: each pass is atomic and the
			// watcher goroutine exits with the context
			L.Info(context.Background(), "shutdown complete")
			return nil
		case <-w.Triggers():
			svc.RunPass(ctx)
		}
	}
}

func notifySystemd() error {
	// systemd will set NOTIFY_SOCKET to a unix socket path if we were started under systemd with type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set, skipping systemd notify")
	}
	conn, err := net.Dial("unixgram", addr) //nolint:gosec,noctx // G704: addr is from NOTIFY_SOCKET set by systemd not user input, no context support in net package for unixgram sockets
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	return nil
}
