package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Roomcast.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Beacon    BeaconConfig    `yaml:"beacon"`
	Commands  CommandsConfig  `yaml:"commands"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Router    RouterConfig    `yaml:"router"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings for the command journal.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// JournalRetentionDays is how long dispatch journal rows are kept
	// before the daily sweep removes them. Zero disables the sweep.
	JournalRetentionDays int `yaml:"journal_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	DeviceToken DeviceTokenConfig   `yaml:"device_token"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains static MQTT authentication credentials.
// Ignored when device-token authentication is enabled.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DeviceTokenConfig contains settings for JWT device authentication.
//
// Cloud IoT brokers authenticate devices with a short-lived JWT minted
// from a per-device RSA key and presented as the MQTT password. When
// enabled, the bridge mints a fresh token for every (re)connection.
type DeviceTokenConfig struct {
	Enabled bool `yaml:"enabled"`

	// Audience is the token's aud claim, typically the cloud project ID.
	Audience string `yaml:"audience"`

	// PrivateKeyFile is the path to the PEM-encoded RSA private key.
	PrivateKeyFile string `yaml:"private_key_file"`

	// TTL is the token lifetime in minutes.
	TTL int `yaml:"ttl"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// BeaconConfig contains beacon region scoping, the minor → room table,
// and the observation source.
type BeaconConfig struct {
	Region RegionConfig   `yaml:"region"`
	Rooms  map[int]string `yaml:"rooms"`
	Source SourceConfig   `yaml:"source"`
}

// RegionConfig scopes observations to a single beacon deployment.
// Frames from other regions are dropped before ranking.
type RegionConfig struct {
	UUID  string `yaml:"uuid"`
	Major int    `yaml:"major"`
}

// SourceConfig selects and configures the observation source.
type SourceConfig struct {
	Type string           `yaml:"type"` // "feed" or "exec"
	Feed FeedSourceConfig `yaml:"feed"`
	Exec ExecSourceConfig `yaml:"exec"`
}

// FeedSourceConfig contains settings for the TCP scan-frame feed.
type FeedSourceConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	ReconnectDelay int    `yaml:"reconnect_delay"`
}

// ExecSourceConfig contains settings for the scanner helper subprocess.
type ExecSourceConfig struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	RestartDelay int      `yaml:"restart_delay"`
}

// CommandsConfig contains the room → node table and group address scheme
// used when encoding commands.
type CommandsConfig struct {
	// Topic is the broker subtopic commands are published to.
	Topic string `yaml:"topic"`

	// LightNodes maps a room label to the dimmer node addressed by
	// light commands triggered in that room.
	LightNodes map[string]string `yaml:"light_nodes"`

	// StoreMainGroup and RadiatorMainGroup select the main group of the
	// two-address pair encoded for store and radiator commands.
	StoreMainGroup    int `yaml:"store_main_group"`
	RadiatorMainGroup int `yaml:"radiator_main_group"`

	// MiddleGroup is shared by both pairs.
	MiddleGroup int `yaml:"middle_group"`
}

// DispatchConfig contains publish pipeline settings.
type DispatchConfig struct {
	QueueSize      int `yaml:"queue_size"`
	ConnectTimeout int `yaml:"connect_timeout"`
	PublishTimeout int `yaml:"publish_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// RouterConfig contains downstream router settings (roomrouter binary).
type RouterConfig struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Dimmer  DimmerConfig  `yaml:"dimmer"`
}

// GatewayConfig configures the external bus-write helper invoked for
// store and radiator commands, one invocation per group address.
type GatewayConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Timeout int      `yaml:"timeout"`
}

// DimmerConfig configures the dimmer backend light commands are posted to.
type DimmerConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ROOMCAST_SECTION_KEY
// For example: ROOMCAST_DATABASE_PATH, ROOMCAST_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Roomcast",
		},
		Database: DatabaseConfig{
			Path:                 "./data/roomcast.db",
			WALMode:              true,
			BusyTimeout:          5,
			JournalRetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "roomcast-client",
			},
			DeviceToken: DeviceTokenConfig{
				TTL: 60,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "roomcast",
		},
		Beacon: BeaconConfig{
			Source: SourceConfig{
				Type: "feed",
				Feed: FeedSourceConfig{
					Host:           "localhost",
					Port:           9390,
					ReconnectDelay: 5,
				},
				Exec: ExecSourceConfig{
					RestartDelay: 5,
				},
			},
		},
		Commands: CommandsConfig{
			Topic:             "events",
			StoreMainGroup:    3,
			RadiatorMainGroup: 0,
			MiddleGroup:       4,
		},
		Dispatch: DispatchConfig{
			QueueSize:      16,
			ConnectTimeout: 10,
			PublishTimeout: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Router: RouterConfig{
			Gateway: GatewayConfig{
				Args:    []string{"raw"},
				Timeout: 10,
			},
			Dimmer: DimmerConfig{
				Timeout: 10,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ROOMCAST_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("ROOMCAST_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ROOMCAST_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ROOMCAST_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ROOMCAST_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("ROOMCAST_MQTT_PRIVATE_KEY_FILE"); v != "" {
		cfg.MQTT.DeviceToken.PrivateKeyFile = v
	}

	// API
	if v := os.Getenv("ROOMCAST_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("ROOMCAST_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Router
	if v := os.Getenv("ROOMCAST_DIMMER_URL"); v != "" {
		cfg.Router.Dimmer.BaseURL = v
	}
}

// Validate checks the configuration for errors.
//
// Room and node tables are checked here so that a misconfigured table
// fails at startup rather than when the first command is triggered.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.JournalRetentionDays < 0 {
		errs = append(errs, "database.journal_retention_days must not be negative (0 disables the sweep)")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.DeviceToken.Enabled {
		if c.MQTT.DeviceToken.Audience == "" {
			errs = append(errs, "mqtt.device_token.audience is required when device tokens are enabled")
		}
		if c.MQTT.DeviceToken.PrivateKeyFile == "" {
			errs = append(errs, "mqtt.device_token.private_key_file is required when device tokens are enabled (set ROOMCAST_MQTT_PRIVATE_KEY_FILE)")
		}
		if c.MQTT.DeviceToken.TTL < 1 {
			errs = append(errs, "mqtt.device_token.ttl must be at least 1 minute")
		}
	}

	// Beacon validation
	if c.Beacon.Region.UUID == "" {
		errs = append(errs, "beacon.region.uuid is required")
	} else if _, err := uuid.Parse(c.Beacon.Region.UUID); err != nil {
		errs = append(errs, fmt.Sprintf("beacon.region.uuid is not a valid UUID: %v", err))
	}
	if c.Beacon.Region.Major < 0 || c.Beacon.Region.Major > 65535 {
		errs = append(errs, "beacon.region.major must be between 0 and 65535")
	}
	if len(c.Beacon.Rooms) == 0 {
		errs = append(errs, "beacon.rooms must map at least one minor to a room")
	}
	for minor, room := range c.Beacon.Rooms {
		if minor < 0 || minor > 65535 {
			errs = append(errs, fmt.Sprintf("beacon.rooms: minor %d out of range 0-65535", minor))
			continue
		}
		if err := validateRoomLabel(room); err != nil {
			errs = append(errs, fmt.Sprintf("beacon.rooms[%d]: %v", minor, err))
		}
	}
	switch c.Beacon.Source.Type {
	case "feed":
		if c.Beacon.Source.Feed.Host == "" {
			errs = append(errs, "beacon.source.feed.host is required")
		}
		if c.Beacon.Source.Feed.Port < 1 || c.Beacon.Source.Feed.Port > 65535 {
			errs = append(errs, "beacon.source.feed.port must be between 1 and 65535")
		}
	case "exec":
		if c.Beacon.Source.Exec.Command == "" {
			errs = append(errs, "beacon.source.exec.command is required")
		}
	default:
		errs = append(errs, "beacon.source.type must be \"feed\" or \"exec\"")
	}

	// Commands validation: group scheme must fit three-level addressing,
	// and the paired address (room+1) must stay within the sub range.
	if c.Commands.Topic == "" {
		errs = append(errs, "commands.topic is required")
	}
	if c.Commands.StoreMainGroup < 0 || c.Commands.StoreMainGroup > 31 {
		errs = append(errs, "commands.store_main_group must be between 0 and 31")
	}
	if c.Commands.RadiatorMainGroup < 0 || c.Commands.RadiatorMainGroup > 31 {
		errs = append(errs, "commands.radiator_main_group must be between 0 and 31")
	}
	if c.Commands.MiddleGroup < 0 || c.Commands.MiddleGroup > 7 {
		errs = append(errs, "commands.middle_group must be between 0 and 7")
	}
	for room, node := range c.Commands.LightNodes {
		if node == "" {
			errs = append(errs, fmt.Sprintf("commands.light_nodes[%q]: node must not be empty", room))
		}
	}

	// Dispatch validation
	if c.Dispatch.QueueSize < 1 {
		errs = append(errs, "dispatch.queue_size must be at least 1")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateRoomLabel checks that a room label can serve as the sub address
// of a group address pair: numeric, and with room+1 still in range.
func validateRoomLabel(room string) error {
	n, err := strconv.Atoi(room)
	if err != nil {
		return fmt.Errorf("room label %q is not numeric", room)
	}
	if n < 0 || n > 254 {
		return fmt.Errorf("room label %q out of range 0-254", room)
	}
	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
