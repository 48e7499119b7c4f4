package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skyvario/internal/api"
	"skyvario/pkg/audio"
	"skyvario/pkg/clock"
	"skyvario/pkg/config"
	"skyvario/pkg/core"
	"skyvario/pkg/flight"
	"skyvario/pkg/igc"
	"skyvario/pkg/logging"
	"skyvario/pkg/probe"
	"skyvario/pkg/telemetry"
	"skyvario/pkg/version"
)

const defaultConfigPath = "configs/skyvario.yaml"

var (
	configPath = flag.String("config", defaultConfigPath, "Path to the config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	autostart  = flag.Bool("autostart", false, "Start a flight session right away")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath, *autostart); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, autostart bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("SkyVario Started", "version", version.Version, "provider", appCfg.Sensors.Provider)

	sensors, err := initSensors(appCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize sensors: %w", err)
	}
	defer sensors.Close()

	dev := initToneDevice(appCfg)
	if err := probe.AnalyzeResults(probe.Run(ctx, preflight(appCfg, dev))); err != nil {
		return fmt.Errorf("pre-flight checks failed: %w", err)
	}

	var synth *audio.Synthesizer
	if dev != nil {
		synth = audio.NewSynthesizer(dev, clock.Real(), audio.Config{
			SinkThreshold: appCfg.Audio.SinkThreshold,
			LiftThreshold: appCfg.Audio.LiftThreshold,
			MuteCooldown:  time.Duration(appCfg.Audio.MuteCooldown),
		})
		synth.SetMuted(appCfg.Audio.Muted)
	}

	ctrl := flight.NewController(sensors.Suite, synth, flight.Options{
		BarometerRate:  int(appCfg.Sensors.BarometerRateHz),
		AccelRate:      int(appCfg.Sensors.AccelRateHz),
		SmoothingAlpha: appCfg.Vario.SmoothingAlpha,
		HistorySize:    appCfg.Vario.HistorySize,
		Header: igc.Header{
			Pilot:      appCfg.Export.Pilot,
			GliderType: appCfg.Export.GliderType,
			GliderID:   appCfg.Export.GliderID,
		},
	})

	pub := telemetry.Open(&appCfg.Telemetry)
	defer pub.Close()

	hub := api.NewHub()
	sched := setupScheduler(appCfg, ctrl, hub, pub)
	go sched.Start(ctx)

	exporter := newExporter(appCfg, ctrl)
	defer func() {
		if ctrl.Active() {
			ctrl.Stop()
			exporter(context.Background())
		}
	}()

	if autostart {
		if err := ctrl.Start(ctx); err != nil {
			slog.Error("Autostart failed", "error", err)
		}
	}

	return runServer(ctx, appCfg, ctrl, hub, pub, exporter)
}

func setupScheduler(cfg *config.Config, ctrl *flight.Controller, hub *api.Hub, pub *telemetry.Fanout) *core.Scheduler {
	sched := core.NewScheduler(cfg, ctrl, hub)
	interval := time.Duration(cfg.Ticker.Interval)

	sched.AddJob(core.NewTrackJob(ctrl))
	sched.AddJob(core.NewMilestoneJob(cfg.Ticker.Milestone.Meters()))
	if pub.Len() > 0 {
		sched.AddJob(core.NewPublishJob(pub, interval))
	}
	return sched
}

// newExporter returns the stop hook that writes the IGC file when auto export
// is enabled.
func newExporter(cfg *config.Config, ctrl *flight.Controller) func(context.Context) {
	return func(ctx context.Context) {
		if !cfg.Export.Auto {
			return
		}
		exp, err := ctrl.ExportIGC()
		if err != nil {
			if !errors.Is(err, igc.ErrInsufficientData) {
				slog.Error("IGC export failed", "error", err)
			}
			return
		}
		path, err := igc.WriteFile(cfg.Export.Dir, exp.Start, exp.Data)
		if err != nil {
			slog.Error("IGC export failed", "error", err)
			return
		}
		slog.Info("IGC file written", "path", path, "bytes", len(exp.Data))
		logging.LogEvent(&logging.Event{Time: time.Now(), Type: "export", Title: "IGC saved", Summary: path})
	}
}

func runServer(ctx context.Context, cfg *config.Config, ctrl *flight.Controller, hub *api.Hub, pub *telemetry.Fanout, exporter func(context.Context)) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	shutdownFunc := newShutdownFunc(quit)

	srv := api.NewServer(cfg.Server.Address,
		api.NewFlightHandler(ctrl, exporter),
		api.NewAudioHandler(ctrl),
		hub,
		pub.Stats(),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

// newShutdownFunc returns a trigger for the shutdown endpoint. Requests after
// the first one do not block while shutdown is already pending.
func newShutdownFunc(quit chan<- os.Signal) func() {
	return func() {
		select {
		case quit <- syscall.SIGTERM:
		default:
		}
	}
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
