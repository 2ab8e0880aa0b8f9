package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	callmemory "github.com/Wyydra/callroom/internal/adapter/driven/call/memory"
	"github.com/Wyydra/callroom/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/callroom/internal/adapter/driven/media/pion"
	"github.com/Wyydra/callroom/internal/adapter/driven/metrics"
	repo "github.com/Wyydra/callroom/internal/adapter/driven/persistence/memory"
	handler "github.com/Wyydra/callroom/internal/adapter/driving/http"
	"github.com/Wyydra/callroom/internal/config"
	"github.com/Wyydra/callroom/internal/core/domain"
	"github.com/Wyydra/callroom/internal/core/port"
	"github.com/Wyydra/callroom/internal/core/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "~/.callroom/config.toml", "path to the config file")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	setupLogger(cfg, *debug)

	delay, err := cfg.RendererDelay()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}
	focusHold, err := cfg.FocusHold()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	renders := repo.NewRenderRepository()
	hub := ws.NewHub(renders)

	var m port.Metrics = port.NopMetrics{}
	if cfg.Metrics.Enabled {
		m = metrics.NewPrometheus(prometheus.DefaultRegisterer)
	}

	callService := service.NewCallService(newTransportFactory(cfg.Call.Transport, delay), hub, renders, service.RoomOptions{
		LocalPeerID: domain.PeerID(cfg.Call.LocalPeerID),
		FocusHold:   focusHold,
		Metrics:     m,
	})

	h := handler.NewHandler(callService, hub)
	h.StaticDir = cfg.Server.StaticDir
	if cfg.Metrics.Enabled {
		h.Metrics = promhttp.Handler()
		h.MetricsPath = cfg.Metrics.Path
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return callService.Run(ctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Str("transport", cfg.Call.Transport).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server exited")
}

func setupLogger(cfg config.Config, debug bool) {
	level, err := cfg.LogLevel()
	if err != nil {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Console {
		w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
		log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	}
}

func newTransportFactory(kind string, delay time.Duration) service.TransportFactory {
	return func(roomID domain.RoomID) (port.CallTransport, error) {
		switch kind {
		case config.TransportPion:
			t, err := pion.NewTransport()
			if err != nil {
				return nil, err
			}
			return t, nil
		default:
			return callmemory.NewTransport(delay), nil
		}
	}
}
