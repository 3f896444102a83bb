package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/02loveslollipop/shizuku-synthesis/services/api/config"
	httpserver "github.com/02loveslollipop/shizuku-synthesis/services/api/http"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/logging"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/plugins/influx"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/plugins/shizukudb"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/plugins/siata"
	"github.com/02loveslollipop/shizuku-synthesis/services/api/synthesis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.Init(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	plugins, closeAll, err := buildPlugins(ctx, cfg)
	if err != nil {
		logger.Fatal("plugin setup failed", zap.Error(err))
	}
	defer closeAll()

	registry, err := synthesis.NewRegistry(plugins...)
	if err != nil {
		logger.Fatal("plugin registration failed", zap.Error(err))
	}
	for _, ds := range registry.DataSources() {
		logger.Info("datasource registered", zap.String("id", ds.ID), zap.String("prefix", ds.IDPrefix))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := httpserver.New(cfg, registry, logger, reg)
	logger.Info("REST API listening", zap.String("addr", cfg.ListenAddr()))

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// buildPlugins connects the enabled plugins in registration order. The
// returned func releases their connections.
func buildPlugins(ctx context.Context, cfg config.Config) ([]*synthesis.Plugin, func(), error) {
	var (
		plugins []*synthesis.Plugin
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	for _, name := range cfg.EnabledPlugins() {
		switch name {
		case config.PluginShizukuDB:
			store, err := shizukudb.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("shizukudb: %w", err)
			}
			closers = append(closers, store.Close)
			plugins = append(plugins, shizukudb.New(store, "postgres").Plugin())
		case config.PluginSIATA:
			client := &http.Client{Timeout: cfg.SIATARequestTimeout}
			plugins = append(plugins, siata.New(client, cfg.SIATACurrentURL).Plugin())
		case config.PluginInflux:
			client := influx.Connect(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org)
			closers = append(closers, client.Close)
			plugins = append(plugins, influx.New(client, influx.Settings{
				URL:         cfg.Influx.URL,
				Token:       cfg.Influx.Token,
				Bucket:      cfg.Influx.Bucket,
				Measurement: cfg.Influx.Measurement,
			}).Plugin())
		}
	}
	return plugins, closeAll, nil
}
