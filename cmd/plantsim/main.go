// Command plantsim runs one plant simulation Session as a long-lived
// process: it wires the event-sink fan-out, exposes a read-only status
// API and liveness/readiness probes, optionally republishes plant KPIs
// over OPC UA, and starts the clock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/krugerplant/linesim/internal/api"
	"github.com/krugerplant/linesim/internal/clock"
	"github.com/krugerplant/linesim/internal/config"
	"github.com/krugerplant/linesim/internal/eventsink"
	"github.com/krugerplant/linesim/internal/eventsink/kafkasink"
	"github.com/krugerplant/linesim/internal/health"
	"github.com/krugerplant/linesim/internal/kpi/promexport"
	"github.com/krugerplant/linesim/internal/opcuaexport"
	"github.com/krugerplant/linesim/internal/session"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
		}
	}()

	log.Info().Msg("starting plant simulation")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Info().
		Str("plant", cfg.PlantName).
		Int("opcua_port", cfg.OPCUAPort).
		Int("health_port", cfg.HealthPort).
		Dur("base_period", cfg.BasePeriod).
		Float64("speed_factor", cfg.SpeedFactor).
		Msg("configuration loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt := config.NewRuntimeConfig(cfg)

	promReg := prometheus.NewRegistry()
	promExporter := promexport.New(promReg)

	sinks := []eventsink.Sink{eventsink.NewLoggerSink(log.Logger), promExporter}
	if cfg.KafkaBrokers != "" {
		kSink := kafkasink.New([]string{cfg.KafkaBrokers}, cfg.KafkaTopic)
		sinks = append(sinks, kSink)
		defer kSink.Close()
	}
	fanout := eventsink.NewMulti(sinks...)
	dispatcher := eventsink.NewAsyncDispatcher(fanout, 8)
	defer dispatcher.Stop()
	throttled := eventsink.NewThrottle(dispatcher, eventsink.ThrottleIntervals{
		CarsMs:    cfg.ThrottleCarsMs,
		BuffersMs: cfg.ThrottleBuffersMs,
		StopsMs:   cfg.ThrottleStopsMs,
		PlantMs:   cfg.ThrottlePlantMs,
		OEEMs:     cfg.ThrottleOEEMs,
	})

	sess, err := session.New(defaultPlant(), rt, cfg.Seed, throttled)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build plant topology")
	}
	log.Info().Str("session_id", sess.ID.String()).Msg("session built")

	opcuaServer := opcuaexport.NewServer(cfg.OPCUAPort, cfg.PlantName)
	if err := opcuaServer.RegisterNamespace(opcuaexport.PlantNamespace, "Plant", "Plant-wide KPI and buffer tags",
		opcuaexport.BuildNodeDefinitions(sess)); err != nil {
		log.Error().Err(err).Msg("failed to register OPC UA namespace")
	}
	if err := opcuaServer.Start(ctx); err != nil {
		log.Error().Err(err).Msg("failed to start OPC UA server")
	}
	wireOPCUAPublish(sess, opcuaServer)

	healthHandler := health.NewHandler(func() bool { return sess.Clock.State().String() == "running" })
	apiHandler := api.NewHandler(cfg.PlantName, sess, rt)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz/live", healthHandler.HandleLive)
	mux.HandleFunc("/healthz/ready", healthHandler.HandleReady)
	mux.HandleFunc("/healthz", healthHandler.HandleHealth)
	mux.HandleFunc("/api/status", apiHandler.HandleStatus)
	mux.HandleFunc("/api/stations", apiHandler.HandleStations)
	mux.HandleFunc("/api/buffers", apiHandler.HandleBuffers)
	mux.HandleFunc("/api/config", apiHandler.HandleConfig)
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))

	httpServer := &http.Server{Addr: ":" + strconv.Itoa(cfg.HealthPort), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	sess.Start()
	log.Info().Msg("clock started")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sess.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if err := opcuaServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("opc ua server shutdown error")
	}

	log.Info().Msg("plant simulation stopped")
}

// wireOPCUAPublish registers a tick listener that republishes the
// session's current snapshot into the OPC UA server. Kept separate from
// the engine's own event-sink fan-out: a stalled or unstarted OPC UA
// endpoint must never affect tick completion.
func wireOPCUAPublish(sess *session.Session, srv *opcuaexport.Server) {
	sess.Clock.OnTickListener(func(t clock.Tick) {
		opcuaexport.Publish(srv, sess, t.SimulatedTimestamp)
	})
}
