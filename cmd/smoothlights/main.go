// Smooth Lights - default fade transitions for Gray Logic lighting.
//
// The service hosts the light service domain on the Gray Logic MQTT bus and,
// once configured through its API, injects a default transition into every
// light.turn_on call that does not carry one.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nerrad567/gray-logic-smoothlights/internal/api"
	"github.com/nerrad567/gray-logic-smoothlights/internal/audit"
	"github.com/nerrad567/gray-logic-smoothlights/internal/auth"
	"github.com/nerrad567/gray-logic-smoothlights/internal/entry"
	"github.com/nerrad567/gray-logic-smoothlights/internal/flow"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-smoothlights/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-smoothlights/internal/lights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/service"
	"github.com/nerrad567/gray-logic-smoothlights/internal/smoothlights"
	"github.com/nerrad567/gray-logic-smoothlights/internal/transition"
	"github.com/nerrad567/gray-logic-smoothlights/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// meterName scopes the OpenTelemetry instruments of this service.
const meterName = "github.com/nerrad567/gray-logic-smoothlights"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// hashPassword reads one password line from in and writes its Argon2id
// hash, ready for security.auth.admin_password_hash.
func hashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	encoded, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	_, err = fmt.Fprintln(out, encoded)
	return err
}

// run wires every component, blocks until ctx is cancelled, then tears
// everything down in reverse order.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Smooth Lights",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Metrics: in-process provider, read back by GET /metrics
	metricsReader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricsReader))
	otel.SetMeterProvider(meterProvider)
	defer func() {
		if shutdownErr := meterProvider.Shutdown(context.Background()); shutdownErr != nil {
			log.Error("error shutting down meter provider", "error", shutdownErr)
		}
	}()

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// MQTT
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Service registry and the light domain
	registry := service.NewRegistry()
	registry.SetLogger(log.Component("service"))

	lightDomain := lights.New(mqttClient)
	lightDomain.SetLogger(log.Component("lights"))
	if regErr := lightDomain.Register(registry); regErr != nil {
		return fmt.Errorf("registering light services: %w", regErr)
	}

	// Smooth Lights integration and its config entries
	integOpts := []smoothlights.Option{
		smoothlights.WithTarget(cfg.SmoothLights.Domain, cfg.SmoothLights.Service),
		smoothlights.WithLogger(log.Component("smoothlights")),
		smoothlights.WithMeter(otel.Meter(meterName)),
	}
	if influxClient != nil {
		integOpts = append(integOpts, smoothlights.WithRecorder(smoothlights.NewDecisionRecorder(influxClient)))
		registry.AddObserver(&callRecorder{writer: influxClient})
	}
	integration := smoothlights.New(registry, integOpts...)

	entries := entry.NewManager(entry.NewSQLiteRepository(db.DB), integration)
	entries.SetLogger(log.Component("entries"))

	auditRepo := audit.NewSQLiteRepository(db.DB)
	trail := audit.NewTrail(auditRepo)
	trail.SetLogger(log.Component("audit"))
	entries.AddObserver(trail)

	flows := flow.NewManager(entries, transition.Config{
		TransitionTime:  cfg.SmoothLights.DefaultTransition,
		ExcludeEntities: []string{},
	})
	flows.SetLogger(log.Component("flows"))
	go flows.RunCleanup(ctx)

	// API server; its hub observes calls and entries from here on
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Services: registry,
		Entries:  entries,
		Flows:    flows,
		MQTT:     mqttClient,
		Audit:    auditRepo,
		Metrics:  metricsReader,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	registry.AddObserver(apiServer.Hub())
	entries.AddObserver(apiServer.Hub())

	if loadErr := entries.LoadAll(ctx); loadErr != nil {
		return fmt.Errorf("loading config entries: %w", loadErr)
	}
	defer func() {
		log.Info("unloading config entries")
		if shutdownErr := entries.Shutdown(context.Background()); shutdownErr != nil {
			log.Error("error unloading config entries", "error", shutdownErr)
		}
	}()

	// Service calls from the bus
	ingress := service.NewIngress(registry, &mqttSubscriber{client: mqttClient}, mqtt.Topics{}.AllServiceCalls())
	ingress.SetLogger(log.Component("ingress"))
	if startErr := ingress.Start(ctx); startErr != nil {
		return fmt.Errorf("starting service ingress: %w", startErr)
	}

	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"services", len(registry.Services()),
		"entries", len(entries.List(ctx)),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns GRAYLOGIC_CONFIG, or the default path if unset.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every connected dependency once at startup.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
