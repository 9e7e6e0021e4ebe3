package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level engine configuration, loaded from a TOML file.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
	Weather    WeatherConfig    `toml:"weather"`
	Airspace   AirspaceConfig   `toml:"airspace"`
	LandUse    LandUseConfig    `toml:"landuse"`
	Population PopulationConfig `toml:"population"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Policy     PolicyDefaults   `toml:"policy"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	ReadTimeoutSecs    int      `toml:"read_timeout_secs"`
	WriteTimeoutSecs   int      `toml:"write_timeout_secs"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// StorageConfig represents the SQLite storage configuration
type StorageConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// WeatherConfig represents the weather gatherer configuration
type WeatherConfig struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// AirspaceConfig represents the airspace proximity gatherer configuration
type AirspaceConfig struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// LandUseConfig represents the land-use feature service configuration
type LandUseConfig struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	PointBufferMeters     float64 `toml:"point_buffer_meters"`
	RouteBufferMeters     float64 `toml:"route_buffer_meters"`
}

// PopulationConfig represents the gridded population service configuration
type PopulationConfig struct {
	BaseURL               string `toml:"base_url"`
	AlternateURL          string `toml:"alternate_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	BufferMeters          float64 `toml:"buffer_meters"`
}

// OpenAIConfig represents the AI scoring delegate configuration
type OpenAIConfig struct {
	APIKey                string  `toml:"api_key"`
	Model                 string  `toml:"model"`
	Temperature           float64 `toml:"temperature"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
}

// PolicyDefaults are the built-in conservative operating limits used when a
// company has no stored safety policy. The same values are injected into the
// hard-stop evaluator and the delegate prompt so the two never diverge.
type PolicyDefaults struct {
	MaxWindSpeedMS       float64 `toml:"max_wind_speed_ms"`
	MaxGustSpeedMS       float64 `toml:"max_gust_speed_ms"`
	MinVisibilityKM      float64 `toml:"min_visibility_km"`
	MinTemperatureC      float64 `toml:"min_temperature_c"`
	MaxTemperatureC      float64 `toml:"max_temperature_c"`
	MaxAltitudeAGLM      float64 `toml:"max_altitude_agl_m"`
	AllowBVLOS           bool    `toml:"allow_bvlos"`
	AllowNightFlight     bool    `toml:"allow_night_flight"`
	MaxPilotInactivity   int     `toml:"max_pilot_inactivity_days"`
	MaxPopulationDensity float64 `toml:"max_population_density"`
	RequireBackupBattery bool    `toml:"require_backup_battery"`
	RequireObserver      bool    `toml:"require_observer"`
}

// Load loads the configuration from the given TOML file, applying defaults
// for anything the file does not set.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
		},
		Storage: StorageConfig{
			Path: "sora-engine.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Weather: WeatherConfig{
			BaseURL:               "https://api.open-meteo.com/v1/forecast",
			RequestTimeoutSeconds: 10,
		},
		Airspace: AirspaceConfig{
			BaseURL:               "https://api.airspace.example.com/v1/zones",
			RequestTimeoutSeconds: 10,
		},
		LandUse: LandUseConfig{
			BaseURL:               "https://wfs.geonorge.no/skwms1/wfs.arealressurs",
			RequestTimeoutSeconds: 8,
			PointBufferMeters:     500,
			RouteBufferMeters:     200,
		},
		Population: PopulationConfig{
			BaseURL:               "https://ogc.ssb.no/wms.ashx",
			AlternateURL:          "",
			RequestTimeoutSeconds: 6,
			BufferMeters:          1000,
		},
		OpenAI: OpenAIConfig{
			Model:                 "gpt-4o",
			Temperature:           0.2,
			RequestTimeoutSeconds: 90,
		},
		Policy: DefaultPolicyDefaults(),
	}
}

// DefaultPolicyDefaults returns the conservative built-in operating limits.
func DefaultPolicyDefaults() PolicyDefaults {
	return PolicyDefaults{
		MaxWindSpeedMS:       10,
		MaxGustSpeedMS:       15,
		MinVisibilityKM:      1,
		MinTemperatureC:      -10,
		MaxTemperatureC:      40,
		MaxAltitudeAGLM:      120,
		AllowBVLOS:           false,
		AllowNightFlight:     false,
		MaxPilotInactivity:   0, // 0 = no recency requirement
		MaxPopulationDensity: 0, // 0 = no configured ceiling
		RequireBackupBattery: false,
		RequireObserver:      false,
	}
}
