// Roomcast Router - downstream command router
//
// This is the entry point for the Roomcast router, the subscriber half
// of the command pipeline. It runs on the gateway host, consumes
// payloads the hub publishes to the broker, and fans them out to the
// protocol backends: the bus-write helper for store and radiator
// commands, the dimmer HTTP backend for light commands.
//
// The router shares the hub's configuration file; it reads the mqtt,
// commands, and router sections.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
	"github.com/nerrad567/roomcast/internal/infrastructure/logging"
	"github.com/nerrad567/roomcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/roomcast/internal/router"
)

// Version information - set at build time via ldflags
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Roomcast router",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Build the broker client without dialling so the backend config is
	// checked before any network step.
	bridge, err := mqtt.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("building MQTT client: %w", err)
	}
	bridge.SetLogger(log)
	bridge.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	bridge.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := bridge.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	topic := bridge.Topics().Commands(cfg.Commands.Topic)
	rtr, err := router.New(bridge, cfg.Router, topic, byte(cfg.MQTT.QoS))
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}
	rtr.SetLogger(log)

	// Unlike the hub, the router needs the connection up-front: it only
	// consumes, so there is no lazy connect to hide behind.
	if err := bridge.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("connected to broker",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	if err := rtr.Start(); err != nil {
		return fmt.Errorf("starting router: %w", err)
	}
	defer func() {
		log.Info("stopping router")
		rtr.Stop()
	}()
	log.Info("router started", "topic", topic, "qos", cfg.MQTT.QoS)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Roomcast router stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ROOMROUTER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ROOMROUTER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
