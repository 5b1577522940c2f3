// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command bftgate runs the Byzantine fault-tolerant decision gateway: a
// worker ensemble reaching PBFT consensus on every submitted request,
// fronted by a REST/WebSocket API.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/luxfi/bftgate/audit"
	"github.com/luxfi/bftgate/config"
	"github.com/luxfi/bftgate/gateway"
	"github.com/luxfi/bftgate/gatewayhttp"
	"github.com/luxfi/bftgate/policy"
	"github.com/luxfi/bftgate/registry"
	"github.com/luxfi/bftgate/trust"
	"github.com/luxfi/bftgate/worker"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bftgate:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.NewLogger("bftgate")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	workers := make([]worker.Worker, cfg.N)
	modelLabels := make(map[string]string, cfg.N)
	for i := 0; i < cfg.N; i++ {
		workerID := fmt.Sprintf("agent_%d", i+1)
		label := cfg.WorkerModels[workerID]
		if label == "" {
			label = "SimulatedWorker"
		}
		sim, err := worker.NewSimulator(workerID, label)
		if err != nil {
			return fmt.Errorf("create worker %s: %w", workerID, err)
		}
		workers[i] = sim
		modelLabels[workerID] = label
	}

	pol, err := policy.New(cfg.PolicyPath, logger)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	trustEngine := trust.New(cfg.TrustPath, logger)
	reg := registry.New()

	auditor, err := audit.Open(cfg.AuditPath)
	if err != nil {
		return fmt.Errorf("open audit store: %w", err)
	}
	defer auditor.Close()

	registerer := prometheus.NewRegistry()
	metrics, err := gatewayhttp.NewMetrics("bftgate", registerer)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	hub := gatewayhttp.NewHub(logger)

	gw := gateway.New(workers, cfg.F, cfg.ConsensusTimeout, cfg.StrictMode, pol, reg, trustEngine, auditor, modelLabels, hub.Hook(), logger)
	srv := gatewayhttp.NewServer(gw, hub, metrics, logger)

	mux := http.NewServeMux()
	mux.Handle("/", srv)
	mux.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{}))

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "f", cfg.F, "n", cfg.N)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		return httpServer.Close()
	}

	return nil
}
