// Roomcast Hub - presence-driven room control
//
// This is the main entry point for the Roomcast hub. The hub turns
// beacon sightings from a wearable scanner into a current room,
// encodes room commands against the building's group-address scheme,
// and publishes them to the MQTT bridge for the downstream router.
// It also serves the HTTP/WebSocket control surface mobile clients
// talk to.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/roomcast/migrations"

	"github.com/nerrad567/roomcast/internal/api"
	"github.com/nerrad567/roomcast/internal/beacon"
	"github.com/nerrad567/roomcast/internal/command"
	"github.com/nerrad567/roomcast/internal/dispatch"
	"github.com/nerrad567/roomcast/internal/infrastructure/config"
	"github.com/nerrad567/roomcast/internal/infrastructure/database"
	"github.com/nerrad567/roomcast/internal/infrastructure/influxdb"
	"github.com/nerrad567/roomcast/internal/infrastructure/logging"
	"github.com/nerrad567/roomcast/internal/infrastructure/mqtt"
	"github.com/nerrad567/roomcast/internal/journal"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// journalWriteTimeout bounds the journal insert made from the outcome
// callback. The callback runs on the dispatch worker, so the write must
// not hang the publish pipeline.
const journalWriteTimeout = 5 * time.Second

// journalSweepInterval is how often old journal rows are pruned.
const journalSweepInterval = 24 * time.Hour

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
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Roomcast hub",
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
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Command journal
	journalRepo := journal.NewSQLiteRepository(db.DB)
	startJournalSweep(ctx, journalRepo, cfg.Database.JournalRetentionDays, log)

	// Build the broker client without dialling. The dispatcher owns the
	// connect step, so the connection is established lazily when the
	// first command is published.
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
	log.Info("MQTT client ready",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var telemetry *influxdb.Client
	if cfg.InfluxDB.Enabled {
		telemetry, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := telemetry.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		telemetry.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event hub: room changes and dispatch outcomes stream to WebSocket
	// subscribers. Owned here so the pipeline callbacks can broadcast
	// through it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	// Command encoder: room label -> wire payload
	encoder := command.NewEncoder(cfg.Commands)

	// Dispatcher: the single publish path to the broker
	topic := bridge.Topics().Commands(cfg.Commands.Topic)
	dispatcher := dispatch.New(bridge, cfg.Dispatch, topic, byte(cfg.MQTT.QoS))
	dispatcher.SetLogger(log)
	dispatcher.SetOnOutcome(makeOutcomeHandler(journalRepo, telemetry, hub, log))
	if err := dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher")
		dispatcher.Stop()
	}()
	log.Info("dispatcher started", "topic", topic, "qos", cfg.MQTT.QoS)

	// Room resolver: beacon scans -> current room
	resolver, err := beacon.NewResolver(cfg.Beacon)
	if err != nil {
		return fmt.Errorf("building room resolver: %w", err)
	}
	resolver.SetLogger(log)
	resolver.SetOnChange(func(room string, minor int) {
		if telemetry != nil {
			telemetry.WriteRoomResolution(room, minor)
		}
		hub.Broadcast(api.ChannelRoomChanged, api.RoomEvent{Room: room, Minor: minor})
	})
	if telemetry != nil {
		resolver.SetOnScan(func(ranked []beacon.Observation) {
			for _, obs := range ranked {
				telemetry.WriteBeaconSighting(obs.Minor, obs.Rank)
			}
		})
	}
	log.Info("room resolver initialised", "rooms", len(cfg.Beacon.Rooms))

	// Scan source feeding the resolver
	source, err := beacon.NewSource(cfg.Beacon.Source, resolver.OnScan)
	if err != nil {
		return fmt.Errorf("building scan source: %w", err)
	}
	source.SetLogger(log)
	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("starting scan source: %w", err)
	}
	defer func() {
		log.Info("stopping scan source")
		source.Stop()
	}()
	log.Info("scan source started", "type", cfg.Beacon.Source.Type)

	// HTTP/WebSocket control surface
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Resolver:    resolver,
		Encoder:     encoder,
		Dispatcher:  dispatcher,
		Journal:     journalRepo,
		DB:          db,
		Bridge:      bridge,
		Telemetry:   telemetry,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("building API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (stop accepting triggers)
	// 2. Scan source
	// 3. Dispatcher (complete the in-flight job)
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Roomcast hub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ROOMCAST_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ROOMCAST_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// makeOutcomeHandler builds the dispatcher outcome callback: journal
// row, telemetry point, WebSocket event. Runs on the dispatch worker
// goroutine, so each step is bounded and failures only log.
func makeOutcomeHandler(repo journal.Repository, telemetry *influxdb.Client, hub *api.Hub, log *logging.Logger) func(dispatch.Outcome) {
	return func(o dispatch.Outcome) {
		status := journal.StatusSent
		errText := ""
		if o.Err != nil {
			status = journal.StatusFailed
			errText = o.Err.Error()
		}

		entry := &journal.Entry{
			JobID:     o.Job.ID.String(),
			Action:    o.Job.Action.Name(),
			Room:      o.Job.Room,
			Percent:   o.Job.Percent,
			Topic:     o.Topic,
			Payload:   o.Job.Payload,
			Status:    status,
			Error:     errText,
			LatencyMS: o.Latency.Milliseconds(),
		}

		// Record with an independent context so the final outcome of a
		// shutting-down dispatcher is still journaled.
		recordCtx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
		defer cancel()
		if err := repo.Record(recordCtx, entry); err != nil {
			log.Error("journal record failed", "job_id", entry.JobID, "error", err)
		}

		if telemetry != nil {
			telemetry.WriteDispatchOutcome(entry.JobID, entry.Action, status, o.Latency)
		}

		hub.Broadcast(api.ChannelDispatchOutcome, api.DispatchEvent{
			JobID:     entry.JobID,
			Action:    entry.Action,
			Room:      entry.Room,
			Status:    status,
			Error:     errText,
			LatencyMS: entry.LatencyMS,
			Payload:   entry.Payload,
		})
	}
}

// startJournalSweep prunes journal rows older than the retention window
// once a day. A zero retention disables the sweep.
func startJournalSweep(ctx context.Context, repo journal.Repository, retentionDays int, log *logging.Logger) {
	if retentionDays <= 0 {
		log.Info("journal sweep disabled")
		return
	}

	retention := time.Duration(retentionDays) * 24 * time.Hour

	go func() {
		ticker := time.NewTicker(journalSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := repo.Prune(ctx, retention)
				if err != nil {
					log.Error("journal sweep failed", "error", err)
					continue
				}
				if removed > 0 {
					log.Info("journal swept", "removed", removed, "retention_days", retentionDays)
				}
			}
		}
	}()
}
