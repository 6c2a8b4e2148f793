package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"energy-ml/internal/forest"
	"energy-ml/internal/logging"
)

// Training data sources.
const (
	SourceSynthetic = "synthetic"
	SourceCSV       = "csv"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   logging.Config  `yaml:"logging"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Fraud     FraudConfig     `yaml:"fraud"`
	Energy    EnergyConfig    `yaml:"energy"`
	Weather   WeatherConfig   `yaml:"weather"`
	Events    EventsConfig    `yaml:"events"`
}

type ServerConfig struct {
	Port            int      `yaml:"port"`
	Env             string   `yaml:"env"` // "production" switches gin to release mode
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	// WarmUp initializes both models before the listener starts.
	WarmUp bool `yaml:"warm_up"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	MaxAge           int      `yaml:"max_age"` // seconds
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type FraudConfig struct {
	Source    string        `yaml:"source"` // synthetic or csv
	Path      string        `yaml:"path"`   // csv only
	Samples   int           `yaml:"samples"`
	Seed      int64         `yaml:"seed"`
	FraudRate float64       `yaml:"fraud_rate"`
	Forest    forest.Params `yaml:"forest"`
}

type EnergyConfig struct {
	Source     string `yaml:"source"` // synthetic or csv
	Path       string `yaml:"path"`
	Samples    int    `yaml:"samples"` // synthetic only
	Seed       int64  `yaml:"seed"`
	CitiesPath string `yaml:"cities_path"`
}

type WeatherConfig struct {
	BaseURL        string   `yaml:"base_url"`
	APIKey         string   `yaml:"api_key"`
	Timeout        Duration `yaml:"timeout"`
	MaxRetries     int      `yaml:"max_retries"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	CacheTTL       Duration `yaml:"cache_ttl"`
}

type EventsConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Duration reads YAML strings such as "10s" or "1m30s".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			Env:             "development",
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			WarmUp:          true,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
			ExposedHeaders:   []string{"Content-Type", "X-CSRFToken"},
			MaxAge:           3600,
		},
		Logging:   logging.Config{Level: "info", Format: "text"},
		Artifacts: ArtifactsConfig{Dir: "artifacts"},
		Fraud: FraudConfig{
			Source:    SourceSynthetic,
			Samples:   1000,
			Seed:      42,
			FraudRate: 0.1,
			Forest:    forest.DefaultParams(),
		},
		Energy: EnergyConfig{
			Source:     SourceSynthetic,
			Path:       "data/energy_weather_data.csv",
			Samples:    2000,
			Seed:       42,
			CitiesPath: "data/weather.csv",
		},
		Weather: WeatherConfig{
			BaseURL:        "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline",
			Timeout:        Duration(10 * time.Second),
			MaxRetries:     2,
			InitialBackoff: Duration(250 * time.Millisecond),
			CacheTTL:       Duration(5 * time.Minute),
		},
		Events: EventsConfig{
			Topic: "fraud-assessments",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty or missing path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and applies overrides, but does not validate.
func LoadUnchecked(path string) (*Config, error) {
	c := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(raw, c); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("API_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("API_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("API_ENV"); ok && v != "" {
		c.Server.Env = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	if v, ok := lookup("ARTIFACT_DIR"); ok && v != "" {
		c.Artifacts.Dir = v
	}
	if v, ok := lookup("WEATHER_API_KEY"); ok {
		c.Weather.APIKey = v
	}
	if v, ok := lookup("WEATHER_BASE_URL"); ok && v != "" {
		c.Weather.BaseURL = v
	}
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Events.Brokers = brokers
		c.Events.Enabled = len(brokers) > 0
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var result *multierror.Error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout < 0 {
		result = multierror.Append(result, errors.New("server.shutdown_timeout must be >= 0"))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		result = multierror.Append(result, fmt.Errorf("logging.level %q is not recognized", c.Logging.Level))
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "json" && f != "text" {
		result = multierror.Append(result, fmt.Errorf("logging.format %q must be json or text", c.Logging.Format))
	}
	if c.Artifacts.Dir == "" {
		result = multierror.Append(result, errors.New("artifacts.dir is required"))
	}

	result = multierror.Append(result, validateSource("fraud", c.Fraud.Source, c.Fraud.Path, c.Fraud.Samples)...)
	if c.Fraud.FraudRate <= 0 || c.Fraud.FraudRate >= 1 {
		result = multierror.Append(result, fmt.Errorf("fraud.fraud_rate %v must be in (0, 1)", c.Fraud.FraudRate))
	}
	if err := c.Fraud.Forest.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("fraud.forest: %w", err))
	}
	result = multierror.Append(result, validateSource("energy", c.Energy.Source, c.Energy.Path, c.Energy.Samples)...)

	if c.Weather.BaseURL == "" {
		result = multierror.Append(result, errors.New("weather.base_url is required"))
	}
	if c.Weather.Timeout <= 0 {
		result = multierror.Append(result, errors.New("weather.timeout must be > 0"))
	}
	if c.Weather.MaxRetries < 0 {
		result = multierror.Append(result, errors.New("weather.max_retries must be >= 0"))
	}
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			result = multierror.Append(result, errors.New("events.brokers is required when events are enabled"))
		}
		if c.Events.Topic == "" {
			result = multierror.Append(result, errors.New("events.topic is required when events are enabled"))
		}
	}

	return result.ErrorOrNil()
}

func validateSource(section, source, path string, samples int) []error {
	switch source {
	case SourceSynthetic:
		if samples <= 0 {
			return []error{fmt.Errorf("%s.samples must be > 0", section)}
		}
	case SourceCSV:
		if path == "" {
			return []error{fmt.Errorf("%s.path is required for csv source", section)}
		}
	default:
		return []error{fmt.Errorf("%s.source %q must be %s or %s", section, source, SourceSynthetic, SourceCSV)}
	}
	return nil
}
