package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flitsinc/glanced/internal/api"
	"github.com/flitsinc/glanced/internal/config"
	"github.com/flitsinc/glanced/internal/eventbus"
	"github.com/flitsinc/glanced/internal/logging"
	"github.com/flitsinc/glanced/internal/pool"
	"github.com/flitsinc/glanced/internal/session"
	"github.com/flitsinc/glanced/internal/settings"
	"github.com/flitsinc/glanced/internal/state"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the aggregation daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file (default $GLANCED_CONFIG)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.LogLevel)
	logCfg.Pretty = cfg.LogPretty
	logging.Init(logCfg)
	log := logging.Component("glanced")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	db, err := state.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := state.NewStore(db)
	bus := eventbus.NewBus(db)
	prefs, err := settings.NewStore(ctx, store)
	if err != nil {
		return err
	}
	if cfg.SettingsFile != "" {
		go func() {
			if err := prefs.Watch(ctx, cfg.SettingsFile); err != nil {
				log.Error().Err(err).Msg("settings watcher stopped")
			}
		}()
	}

	p := pool.New(pool.WithSignals(bus), pool.WithRegistry(store))
	if err := p.Load(ctx); err != nil {
		return err
	}
	sup := session.NewSupervisor()
	defer sup.DestroyAll()

	apiServer := &api.Server{
		Pool:     p,
		Bus:      bus,
		Settings: prefs,
		Sessions: sup,
		Ambient:  session.NewAmbient(),
		SessionOptions: []session.Option{
			session.WithDebounce(cfg.Debounce),
			session.WithRefreshPeriod(cfg.RefreshPeriod),
		},
		StartedAt: time.Now().UTC(),
		Info: api.DiagnosticsInfo{
			HTTPAddr:     cfg.HTTPAddr,
			DataDir:      cfg.DataDir,
			DBPath:       cfg.DBPath,
			SettingsFile: cfg.SettingsFile,
		},
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listener.Addr().String()).Msg("glanced listening")
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down")
	sup.DestroyAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown error")
	}
	_ = httpServer.Close()
	return nil
}
