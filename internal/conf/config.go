// Package conf loads and validates the application settings from a YAML file
// and FIRENOTIFY_* environment overrides. The resulting Settings value is
// immutable after Load; components receive the pieces they need at
// construction instead of reading process-wide state.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/guaxindiba/firenotify/internal/directory"
	"github.com/guaxindiba/firenotify/internal/ingest"
	"github.com/guaxindiba/firenotify/internal/logger"
	"github.com/guaxindiba/firenotify/internal/timefmt"
)

// Settings is the full application configuration.
type Settings struct {
	Server    ServerSettings    `mapstructure:"server"`
	Log       LogSettings       `mapstructure:"log"`
	Store     StoreSettings     `mapstructure:"store"`
	Tables    TableSettings     `mapstructure:"tables"`
	Timezone  string            `mapstructure:"timezone"`
	Notify    NotifySettings    `mapstructure:"notify"`
	Directory DirectorySettings `mapstructure:"directory"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Address returns the host:port listen address.
func (s ServerSettings) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogSettings configures structured logging.
type LogSettings struct {
	Level string `mapstructure:"level"`
}

// StoreSettings configures the row store. An empty Path selects the
// in-memory store (useful for local runs; nothing survives a restart).
type StoreSettings struct {
	Path string `mapstructure:"path"`
}

// TableSettings names the two tables and their column layout.
type TableSettings struct {
	History          string `mapstructure:"history"`
	Directory        string `mapstructure:"directory"`
	HistoryRegion    int    `mapstructure:"history_region_col"`
	HistoryTimestamp int    `mapstructure:"history_timestamp_col"`
	HistoryLat       int    `mapstructure:"history_lat_col"`
	HistoryLng       int    `mapstructure:"history_lng_col"`
	HistoryNotified  int    `mapstructure:"history_notified_col"`
	DirectoryRegion  int    `mapstructure:"directory_region_col"`
	DirectoryAddress int    `mapstructure:"directory_address_col"`
}

// NotifySettings configures the SMTP relay for responsible-party e-mail.
type NotifySettings struct {
	SMTPHost string        `mapstructure:"smtp_host"`
	SMTPPort int           `mapstructure:"smtp_port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DirectorySettings tunes the responsible-directory lookup.
type DirectorySettings struct {
	// CacheTTL bounds staleness of cached region lookups; zero disables
	// the cache and reads the table on every request.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// IngestConfig projects the table settings onto the orchestrator's wiring.
func (s *Settings) IngestConfig() ingest.Config {
	return ingest.Config{
		HistoryTable:   s.Tables.History,
		DirectoryTable: s.Tables.Directory,
		HistoryCols: ingest.HistoryColumns{
			Region:    s.Tables.HistoryRegion,
			Timestamp: s.Tables.HistoryTimestamp,
			Lat:       s.Tables.HistoryLat,
			Lng:       s.Tables.HistoryLng,
			Notified:  s.Tables.HistoryNotified,
		},
		DirectoryCols: directory.Columns{
			Region:  s.Tables.DirectoryRegion,
			Address: s.Tables.DirectoryAddress,
		},
	}
}

func setDefaults(v *viper.Viper) {
	defaults := ingest.DefaultConfig()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("store.path", "firenotify.db")
	v.SetDefault("tables.history", defaults.HistoryTable)
	v.SetDefault("tables.directory", defaults.DirectoryTable)
	v.SetDefault("tables.history_region_col", defaults.HistoryCols.Region)
	v.SetDefault("tables.history_timestamp_col", defaults.HistoryCols.Timestamp)
	v.SetDefault("tables.history_lat_col", defaults.HistoryCols.Lat)
	v.SetDefault("tables.history_lng_col", defaults.HistoryCols.Lng)
	v.SetDefault("tables.history_notified_col", defaults.HistoryCols.Notified)
	v.SetDefault("tables.directory_region_col", defaults.DirectoryCols.Region)
	v.SetDefault("tables.directory_address_col", defaults.DirectoryCols.Address)
	v.SetDefault("timezone", timefmt.DefaultTimezone)
	v.SetDefault("notify.smtp_port", 587)
	v.SetDefault("notify.use_tls", true)
	v.SetDefault("notify.timeout", "30s")
	v.SetDefault("directory.cache_ttl", "0s")
}

// Load reads settings from the given config file (optional; defaults apply
// when path is empty and no config.yaml is found) and the environment.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FIRENOTIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/firenotify")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// No file anywhere on the search path: defaults plus env.
		}
	}

	var settings Settings
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&settings, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate rejects settings the server cannot start with.
func (s *Settings) Validate() error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", s.Server.Port)
	}
	if _, ok := logger.ParseLevel(s.Log.Level); !ok {
		return fmt.Errorf("unknown log level %q", s.Log.Level)
	}
	if s.Tables.History == "" || s.Tables.Directory == "" {
		return errors.New("table names must not be empty")
	}
	if s.Tables.History == s.Tables.Directory {
		return errors.New("history and directory tables must differ")
	}
	for name, col := range map[string]int{
		"history_region_col":    s.Tables.HistoryRegion,
		"history_timestamp_col": s.Tables.HistoryTimestamp,
		"history_lat_col":       s.Tables.HistoryLat,
		"history_lng_col":       s.Tables.HistoryLng,
		"history_notified_col":  s.Tables.HistoryNotified,
		"directory_region_col":  s.Tables.DirectoryRegion,
		"directory_address_col": s.Tables.DirectoryAddress,
	} {
		if col < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if s.Directory.CacheTTL < 0 {
		return errors.New("directory cache_ttl must not be negative")
	}
	return nil
}

// LogLevel returns the parsed log level. Validate has already checked it.
func (s *Settings) LogLevel() logger.LogLevel {
	level, _ := logger.ParseLevel(s.Log.Level)
	return level
}
