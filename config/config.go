package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	mu sync.Mutex `yaml:"-"`

	Factory   string `yaml:"factory"`
	StationID string `yaml:"station_id"`

	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
	Station   StationConfig   `yaml:"station"`
}

// DatabaseConfig selects and configures the backing store.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// RedisConfig configures the live stage-count cache. Leave Address
// empty to run without Redis.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// WebConfig defines the web server settings.
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
}

// MessagingConfig defines the dashboard report publishing backend.
type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "mqtt" or "kafka"
	MQTT                MQTTConfig    `yaml:"mqtt"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	ReportTopic         string        `yaml:"report_topic"`
	OrdersTopic         string        `yaml:"orders_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

// StationConfig configures the station agent (cmd/stationd).
type StationConfig struct {
	ServerURL      string        `yaml:"server_url"`
	QueuePath      string        `yaml:"queue_path"`
	ReplayInterval time.Duration `yaml:"replay_interval"`
	SubmitTimeout  time.Duration `yaml:"submit_timeout"`
	ListenHost     string        `yaml:"listen_host"`
	ListenPort     int           `yaml:"listen_port"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Factory:   "plant-a",
		StationID: "station-1",
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "paneltrack.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "paneltrack",
				User:     "paneltrack",
				SSLMode:  "disable",
			},
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8082,
		},
		Messaging: MessagingConfig{
			Backend:             "mqtt",
			ReportTopic:         "paneltrack/reports",
			OrdersTopic:         "paneltrack/orders",
			OutboxDrainInterval: 5 * time.Second,
			MQTT: MQTTConfig{
				Broker: "localhost",
				Port:   1883,
			},
		},
		Station: StationConfig{
			ServerURL:      "http://localhost:8082",
			QueuePath:      "stationd.db",
			ReplayInterval: 10 * time.Second,
			SubmitTimeout:  5 * time.Second,
			ListenHost:     "127.0.0.1",
			ListenPort:     8090,
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NodeID identifies this server on the plant broker.
func (c *Config) NodeID() string {
	return c.Factory + "." + c.StationID
}

// Lock acquires the config mutex for multi-step mutations.
func (c *Config) Lock() { c.mu.Lock() }

// Unlock releases the config mutex.
func (c *Config) Unlock() { c.mu.Unlock() }
