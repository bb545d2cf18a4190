package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath"`
	SaveInterval time.Duration `yaml:"saveInterval"`
	Compression  string        `yaml:"compression"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type StoreConfig struct {
	Driver   string         `yaml:"driver" validate:"required|in:memory,file,mongo,postgres"`
	Timeout  time.Duration  `yaml:"timeout"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type IngestConfig struct {
	DefaultSource string `yaml:"defaultSource" validate:"required"`
	MaxBodySize   int64  `yaml:"maxBodySize"`
}

// ThresholdBound overrides one side or both sides of a field's safe range.
type ThresholdBound struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

type AlertConfig struct {
	Cooldown      time.Duration `yaml:"cooldown"`
	Suppression   time.Duration `yaml:"suppression"`
	Inactivity    time.Duration `yaml:"inactivity"`
	EvictInterval time.Duration `yaml:"evictInterval"`
}

type WebhookConfig struct {
	URL string `yaml:"url"`
}

type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
}

type NotifierConfig struct {
	Channels []string      `yaml:"channels"`
	Timeout  time.Duration `yaml:"timeout"`
	Webhook  WebhookConfig `yaml:"webhook"`
	Kafka    KafkaConfig   `yaml:"kafka"`
}

// HasChannel reports whether the named delivery channel is enabled.
func (n NotifierConfig) HasChannel(name string) bool {
	for _, ch := range n.Channels {
		if ch == name {
			return true
		}
	}
	return false
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
	TTL     int  `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server                    `yaml:"webServer"`
	Logger      LoggerConfig              `yaml:"logger"`
	Persistence Persistence               `yaml:"persistence"`
	Store       StoreConfig               `yaml:"store"`
	Ingest      IngestConfig              `yaml:"ingest"`
	Thresholds  map[string]ThresholdBound `yaml:"thresholds"`
	Pins        map[string]string         `yaml:"pins"`
	Alert       AlertConfig               `yaml:"alert"`
	Notifier    NotifierConfig            `yaml:"notifier"`
	Cache       CacheConfig               `yaml:"cache"`
	Metrics     MetricsConfig             `yaml:"metrics"`
}
