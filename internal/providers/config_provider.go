package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"wqd/internal/structures"

	"github.com/spf13/viper"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 5000)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "/var/log/wqd")
	v.SetDefault("persistence.filePath", "/var/lib/wqd/readings.dat")
	v.SetDefault("persistence.saveInterval", 30*time.Second)
	v.SetDefault("persistence.compression", "default")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("store.mongo.database", "water_quality")
	v.SetDefault("store.mongo.collection", "readings")
	v.SetDefault("ingest.defaultSource", "default")
	v.SetDefault("ingest.maxBodySize", 1<<20)
	v.SetDefault("alert.cooldown", 60*time.Second)
	v.SetDefault("alert.suppression", 5*time.Minute)
	v.SetDefault("alert.inactivity", time.Hour)
	v.SetDefault("alert.evictInterval", 5*time.Minute)
	v.SetDefault("notifier.channels", []string{"log"})
	v.SetDefault("notifier.timeout", 10*time.Second)
	v.SetDefault("cache.ttl", 5)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.BindEnv("logger.level", "WQD_LOG_LEVEL")
	v.BindEnv("webServer.port", "WQD_PORT", "PORT")
	v.BindEnv("store.driver", "WQD_STORE_DRIVER")
	v.BindEnv("store.mongo.uri", "WQD_MONGO_URI", "MONGO_URL")
	v.BindEnv("store.postgres.dsn", "WQD_POSTGRES_DSN", "DATABASE_URL")
	v.BindEnv("ingest.defaultSource", "WQD_DEFAULT_SOURCE")
	v.BindEnv("notifier.webhook.url", "WQD_WEBHOOK_URL")
	v.BindEnv("notifier.kafka.brokers", "WQD_KAFKA_BROKERS")
	v.BindEnv("cache.enabled", "WQD_CACHE_ENABLED")
	v.BindEnv("cache.size", "WQD_CACHE_SIZE")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "WaterQualityDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
