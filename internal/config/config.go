package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "markerlab.cfg.json"

// StashConfig points at the Stash GraphQL server.
type StashConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	APIKey string `json:"apiKey" mapstructure:"apiKey"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Type       string `json:"type" mapstructure:"type"`
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlitePath"`
	// MemorySnapshot is where the memory backend persists its state; empty disables it.
	MemorySnapshot string `json:"memorySnapshot" mapstructure:"memorySnapshot"`
}

// TagConfig holds the tag ids with special meaning during review.
type TagConfig struct {
	Confirmed         string
	Rejected          string
	MarkerGroupParent string
}

// ShotConfig tunes the shot boundary planner.
type ShotConfig struct {
	DefaultWindow   float64
	RemoveTolerance float64
}

// TimelineConfig tunes timeline geometry.
type TimelineConfig struct {
	PixelsPerMinute     float64
	FitTolerance        float64
	MinMarkerWidth      float64
	PointMarkerDuration float64
}

// InfluxConfig holds InfluxDB connection settings for activity metrics.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
	// BackupPath receives gzipped line protocol while InfluxDB is unreachable.
	BackupPath string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Settings is a typed snapshot of the loaded configuration.
type Settings struct {
	LogLevel        string
	LogsDir         string
	Stash           StashConfig
	DB              DBConfig
	Storage         StorageConfig
	Tags            TagConfig
	DeriveMaxDepth  int
	MaxCombinations int
	Shots           ShotConfig
	Timeline        TimelineConfig
	ServerAddr      string
	Influx          InfluxConfig
	OTel            OTelConfig
	Keys            map[string]string
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("stash.url", "http://localhost:9999")
	viper.SetDefault("stash.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "markerlab")

	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.sqlitePath", "./markerlab.db")
	viper.SetDefault("storage.memorySnapshot", "")

	viper.SetDefault("tags.confirmed", "")
	viper.SetDefault("tags.rejected", "")
	viper.SetDefault("tags.markerGroupParent", "")

	viper.SetDefault("derive.maxDepth", 3)
	viper.SetDefault("slots.maxCombinations", 9)

	viper.SetDefault("shots.defaultWindow", 20.0)
	viper.SetDefault("shots.removeTolerance", 0.5)

	viper.SetDefault("timeline.pixelsPerMinute", 300.0)
	viper.SetDefault("timeline.fitTolerance", 2.0)
	viper.SetDefault("timeline.minMarkerWidth", 4.0)
	viper.SetDefault("timeline.pointMarkerDuration", 0.1)

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "markerlab")
	viper.SetDefault("influx.bucket", "review-activity")
	viper.SetDefault("influx.backupPath", "./logs/influx-backup.lp.gz")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "markerlab")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// EnvPrefix prefixes environment overrides: MARKERLAB_STASH_APIKEY sets
// stash.apiKey.
const EnvPrefix = "MARKERLAB"

// Load applies defaults, then the JSON file in configDir, then environment
// overrides.
func Load(configDir string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:           viper.GetString("storage.type"),
		SQLitePath:     viper.GetString("storage.sqlitePath"),
		MemorySnapshot: viper.GetString("storage.memorySnapshot"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// Get returns a typed snapshot of the current configuration.
func Get() Settings {
	return Settings{
		LogLevel: viper.GetString("logLevel"),
		LogsDir:  viper.GetString("logsDir"),
		Stash: StashConfig{
			URL:    viper.GetString("stash.url"),
			APIKey: viper.GetString("stash.apiKey"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
		Storage: GetStorageConfig(),
		Tags: TagConfig{
			Confirmed:         viper.GetString("tags.confirmed"),
			Rejected:          viper.GetString("tags.rejected"),
			MarkerGroupParent: viper.GetString("tags.markerGroupParent"),
		},
		DeriveMaxDepth:  viper.GetInt("derive.maxDepth"),
		MaxCombinations: viper.GetInt("slots.maxCombinations"),
		Shots: ShotConfig{
			DefaultWindow:   viper.GetFloat64("shots.defaultWindow"),
			RemoveTolerance: viper.GetFloat64("shots.removeTolerance"),
		},
		Timeline: TimelineConfig{
			PixelsPerMinute:     viper.GetFloat64("timeline.pixelsPerMinute"),
			FitTolerance:        viper.GetFloat64("timeline.fitTolerance"),
			MinMarkerWidth:      viper.GetFloat64("timeline.minMarkerWidth"),
			PointMarkerDuration: viper.GetFloat64("timeline.pointMarkerDuration"),
		},
		ServerAddr: viper.GetString("server.addr"),
		Influx: InfluxConfig{
			Enabled:    viper.GetBool("influx.enabled"),
			Host:       viper.GetString("influx.host"),
			Port:       viper.GetString("influx.port"),
			Protocol:   viper.GetString("influx.protocol"),
			Token:      viper.GetString("influx.token"),
			Org:        viper.GetString("influx.org"),
			Bucket:     viper.GetString("influx.bucket"),
			BackupPath: viper.GetString("influx.backupPath"),
		},
		OTel: GetOTelConfig(),
		Keys: viper.GetStringMapString("keys"),
	}
}
