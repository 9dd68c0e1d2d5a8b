package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Poller    PollerConfig    `yaml:"poller" envconfig:"POLLER"`
	Browser   BrowserConfig   `yaml:"browser" envconfig:"BROWSER"`
	Artifact  ArtifactConfig  `yaml:"artifact" envconfig:"ARTIFACT"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" default:"30m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/exportcheck.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir       string `yaml:"base_dir" envconfig:"BASE_DIR"`
	LocatorsFile  string `yaml:"locators_file" envconfig:"LOCATORS_FILE" default:"locators.yaml"`
	CustomersFile string `yaml:"customers_file" envconfig:"CUSTOMERS_FILE" default:"customers.csv"`
}

// PollerConfig drives the export job status poller
type PollerConfig struct {
	RetryInterval   time.Duration `yaml:"retry_interval" envconfig:"RETRY_INTERVAL" default:"4s"`
	RefreshInterval time.Duration `yaml:"refresh_interval" envconfig:"REFRESH_INTERVAL" default:"6s"`
	MaxInterval     time.Duration `yaml:"max_interval" envconfig:"MAX_INTERVAL" default:"30s"`
	Multiplier      float64       `yaml:"multiplier" envconfig:"MULTIPLIER" default:"1"`
	MaxAttempts     int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" default:"50"`
	StatusTimeout   time.Duration `yaml:"status_timeout" envconfig:"STATUS_TIMEOUT" default:"10s"`
}

// BrowserConfig contains the automated browser session settings
type BrowserConfig struct {
	Headless         bool          `yaml:"headless" envconfig:"HEADLESS" default:"true"`
	ChromePath       string        `yaml:"chrome_path" envconfig:"CHROME_PATH"`
	UserDataDir      string        `yaml:"user_data_dir" envconfig:"USER_DATA_DIR"`
	StepTimeout      time.Duration `yaml:"step_timeout" envconfig:"STEP_TIMEOUT" default:"15s"`
	PreloaderTimeout time.Duration `yaml:"preloader_timeout" envconfig:"PRELOADER_TIMEOUT" default:"300s"`
	LoginTimeout     time.Duration `yaml:"login_timeout" envconfig:"LOGIN_TIMEOUT" default:"120s"`
}

// ArtifactConfig controls download discovery and CSV ingestion
type ArtifactConfig struct {
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"60s"`
	ScanInterval    time.Duration `yaml:"scan_interval" envconfig:"SCAN_INTERVAL" default:"1s"`
	SniffBytes      int           `yaml:"sniff_bytes" envconfig:"SNIFF_BYTES" default:"8192"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// Load loads configuration from environment variables and the discovered config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration from environment variables and the given
// YAML file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A file value is used
// wherever the env config still carries the built-in default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()

	mergeInt(&envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	mergeDuration(&envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	mergeDuration(&envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	mergeDuration(&envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	mergeDuration(&envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	mergeDuration(&envConfig.Server.RunTimeout, fileConfig.Server.RunTimeout, def.Server.RunTimeout)

	if len(fileConfig.Security.AllowedOrigins) > 0 && sameStrings(envConfig.Security.AllowedOrigins, def.Security.AllowedOrigins) {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if fileConfig.Security.RateLimit.RPS != 0 && envConfig.Security.RateLimit.RPS == def.Security.RateLimit.RPS {
		envConfig.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	mergeInt(&envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, def.Security.RateLimit.Burst)

	mergeString(&envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	mergeString(&envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	mergeString(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)
	if fileConfig.Logging.Development {
		envConfig.Logging.Development = true
	}

	mergeString(&envConfig.Paths.BaseDir, fileConfig.Paths.BaseDir, def.Paths.BaseDir)
	mergeString(&envConfig.Paths.LocatorsFile, fileConfig.Paths.LocatorsFile, def.Paths.LocatorsFile)
	mergeString(&envConfig.Paths.CustomersFile, fileConfig.Paths.CustomersFile, def.Paths.CustomersFile)

	mergeDuration(&envConfig.Poller.RetryInterval, fileConfig.Poller.RetryInterval, def.Poller.RetryInterval)
	mergeDuration(&envConfig.Poller.RefreshInterval, fileConfig.Poller.RefreshInterval, def.Poller.RefreshInterval)
	mergeDuration(&envConfig.Poller.MaxInterval, fileConfig.Poller.MaxInterval, def.Poller.MaxInterval)
	mergeDuration(&envConfig.Poller.StatusTimeout, fileConfig.Poller.StatusTimeout, def.Poller.StatusTimeout)
	mergeInt(&envConfig.Poller.MaxAttempts, fileConfig.Poller.MaxAttempts, def.Poller.MaxAttempts)
	if fileConfig.Poller.Multiplier != 0 && envConfig.Poller.Multiplier == def.Poller.Multiplier {
		envConfig.Poller.Multiplier = fileConfig.Poller.Multiplier
	}

	mergeString(&envConfig.Browser.ChromePath, fileConfig.Browser.ChromePath, def.Browser.ChromePath)
	mergeString(&envConfig.Browser.UserDataDir, fileConfig.Browser.UserDataDir, def.Browser.UserDataDir)
	mergeDuration(&envConfig.Browser.StepTimeout, fileConfig.Browser.StepTimeout, def.Browser.StepTimeout)
	mergeDuration(&envConfig.Browser.PreloaderTimeout, fileConfig.Browser.PreloaderTimeout, def.Browser.PreloaderTimeout)
	mergeDuration(&envConfig.Browser.LoginTimeout, fileConfig.Browser.LoginTimeout, def.Browser.LoginTimeout)

	mergeDuration(&envConfig.Artifact.DownloadTimeout, fileConfig.Artifact.DownloadTimeout, def.Artifact.DownloadTimeout)
	mergeDuration(&envConfig.Artifact.ScanInterval, fileConfig.Artifact.ScanInterval, def.Artifact.ScanInterval)
	mergeInt(&envConfig.Artifact.SniffBytes, fileConfig.Artifact.SniffBytes, def.Artifact.SniffBytes)

	mergeInt(&envConfig.WebSocket.ReadBufferSize, fileConfig.WebSocket.ReadBufferSize, def.WebSocket.ReadBufferSize)
	mergeInt(&envConfig.WebSocket.WriteBufferSize, fileConfig.WebSocket.WriteBufferSize, def.WebSocket.WriteBufferSize)
	mergeDuration(&envConfig.WebSocket.PingPeriod, fileConfig.WebSocket.PingPeriod, def.WebSocket.PingPeriod)
	mergeDuration(&envConfig.WebSocket.PongWait, fileConfig.WebSocket.PongWait, def.WebSocket.PongWait)

	return envConfig
}

func mergeInt(dst *int, file, def int) {
	if file != 0 && *dst == def {
		*dst = file
	}
}

func mergeString(dst *string, file, def string) {
	if file != "" && *dst == def {
		*dst = file
	}
}

func mergeDuration(dst *time.Duration, file, def time.Duration) {
	if file != 0 && *dst == def {
		*dst = file
	}
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Poller.RetryInterval <= 0 || c.Poller.RefreshInterval <= 0 {
		return fmt.Errorf("poller intervals must be positive")
	}

	if c.Poller.MaxAttempts < 1 {
		return fmt.Errorf("poller max attempts must be at least 1, got %d", c.Poller.MaxAttempts)
	}

	if c.Poller.Multiplier < 1 {
		return fmt.Errorf("poller multiplier must be >= 1, got %v", c.Poller.Multiplier)
	}

	if c.Artifact.DownloadTimeout <= 0 {
		return fmt.Errorf("artifact download timeout must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/exportcheck.log"
	}

	return nil
}

// ResolvePaths returns the directory layout for this configuration
func (c *Config) ResolvePaths() (*Paths, error) {
	if c.Paths.BaseDir != "" {
		return NewPaths(c.Paths.BaseDir), nil
	}
	return GetPaths()
}

// LocatorsPath returns the locator file path, resolved against the base directory
func (c *Config) LocatorsPath(p *Paths) string {
	return p.Resolve(c.Paths.LocatorsFile)
}

// CustomersPath returns the customer list path, resolved against the base directory
func (c *Config) CustomersPath(p *Paths) string {
	return p.Resolve(c.Paths.CustomersFile)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		filepath.Join("configs", "config.yaml"),
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      30 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/exportcheck.log",
		},
		Paths: PathsConfig{
			LocatorsFile:  "locators.yaml",
			CustomersFile: "customers.csv",
		},
		Poller: PollerConfig{
			RetryInterval:   DefaultRetryInterval,
			RefreshInterval: DefaultRefreshInterval,
			MaxInterval:     30 * time.Second,
			Multiplier:      1,
			MaxAttempts:     DefaultMaxPollAttempts,
			StatusTimeout:   10 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:         true,
			StepTimeout:      15 * time.Second,
			PreloaderTimeout: 300 * time.Second,
			LoginTimeout:     120 * time.Second,
		},
		Artifact: ArtifactConfig{
			DownloadTimeout: 60 * time.Second,
			ScanInterval:    time.Second,
			SniffBytes:      DefaultSniffBytes,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
