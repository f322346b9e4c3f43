package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fbanim/bannerd/internal/logging"
)

// DefaultInterval is the frame interval used when none is configured (24fps).
const DefaultInterval = 1000 / 24 * time.Millisecond

// globalConfig stores the configuration loaded with command-line overrides
// This allows other packages to access the same configuration that was loaded by the daemon
var (
	globalConfig *Config
	configMutex  sync.Mutex
)

// Config holds the application configuration
type Config struct {
	Display   DisplayConfig   `json:"display" yaml:"display"`
	Animation AnimationConfig `json:"animation" yaml:"animation"`
	Bridge    BridgeConfig    `json:"bridge" yaml:"bridge"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// LoadOptions holds command-line override options
type LoadOptions struct {
	ConfigFile   string
	Device       string
	PreserveMode bool
	Interval     string
	RunCount     int
	CommandPipe  string
	Listen       string
	BridgePipe   string
	LogLevel     string
	NoSyslog     bool
}

// DisplayConfig holds framebuffer configuration
type DisplayConfig struct {
	Device       string `json:"device" yaml:"device" env:"FB_DEVICE" default:"/dev/fb0"`
	PreserveMode bool   `json:"preserveMode" yaml:"preserveMode" env:"FB_PRESERVE_MODE" default:"false"`
}

// AnimationConfig holds playback configuration
type AnimationConfig struct {
	Interval    string `json:"interval" yaml:"interval" env:"ANIMATION_INTERVAL" default:""`
	RunCount    int    `json:"runCount" yaml:"runCount" env:"ANIMATION_RUN_COUNT" default:"-1"`
	CommandPipe string `json:"commandPipe" yaml:"commandPipe" env:"COMMAND_PIPE" default:""`
}

// BridgeConfig holds the remote control bridge configuration
type BridgeConfig struct {
	Listen         string   `json:"listen" yaml:"listen" env:"BRIDGE_LISTEN" default:"127.0.0.1:8090"`
	Pipe           string   `json:"pipe" yaml:"pipe" env:"BRIDGE_PIPE" default:""`
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" default:""`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"LOG_LEVEL" default:"info"`
	Syslog bool   `json:"syslog" yaml:"syslog" env:"LOG_SYSLOG" default:"true"`
	Tag    string `json:"tag" yaml:"tag" env:"LOG_TAG" default:"bannerd"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Display: DisplayConfig{Device: "/dev/fb0"},
		Animation: AnimationConfig{
			RunCount: -1,
		},
		Bridge: BridgeConfig{
			Listen:         "127.0.0.1:8090",
			AllowedOrigins: []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Syslog: true,
			Tag:    "bannerd",
		},
	}
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides.
// Precedence is command line, environment, config file, defaults.
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := Defaults()

	if opts.ConfigFile != "" {
		if err := config.loadFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	// Display config
	config.Display.Device = getOverrideOrEnv(opts.Device, "FB_DEVICE", config.Display.Device)
	config.Display.PreserveMode = getBoolWithDefault("FB_PRESERVE_MODE", config.Display.PreserveMode) || opts.PreserveMode

	// Animation config
	config.Animation.Interval = getOverrideOrEnv(opts.Interval, "ANIMATION_INTERVAL", config.Animation.Interval)
	config.Animation.RunCount = getIntWithDefault("ANIMATION_RUN_COUNT", config.Animation.RunCount)
	if opts.RunCount != 0 {
		config.Animation.RunCount = opts.RunCount
	}
	config.Animation.CommandPipe = getOverrideOrEnv(opts.CommandPipe, "COMMAND_PIPE", config.Animation.CommandPipe)

	// Bridge config
	config.Bridge.Listen = getOverrideOrEnv(opts.Listen, "BRIDGE_LISTEN", config.Bridge.Listen)
	config.Bridge.Pipe = getOverrideOrEnv(opts.BridgePipe, "BRIDGE_PIPE", config.Bridge.Pipe)
	config.Bridge.AllowedOrigins = getStringSliceWithDefault("ALLOWED_ORIGINS", config.Bridge.AllowedOrigins)

	// Logging config
	config.Logging.Level = strings.ToLower(getOverrideOrEnv(opts.LogLevel, "LOG_LEVEL", config.Logging.Level))
	config.Logging.Syslog = getBoolWithDefault("LOG_SYSLOG", config.Logging.Syslog) && !opts.NoSyslog
	config.Logging.Tag = getEnvWithDefault("LOG_TAG", config.Logging.Tag)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Store the configuration globally so other packages can access it
	configMutex.Lock()
	globalConfig = config
	configMutex.Unlock()

	return config, nil
}

// loadFile overlays the YAML file at path onto c. Keys missing from the file
// keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// GetGlobalConfig returns the globally stored configuration
// This should be used by packages that need access to the configuration
// loaded by the daemon with command-line overrides
func GetGlobalConfig() *Config {
	configMutex.Lock()
	defer configMutex.Unlock()
	return globalConfig
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate display config
	if c.Display.Device == "" {
		return fmt.Errorf("framebuffer device cannot be empty")
	}

	// Validate animation config
	if _, err := ParseInterval(c.Animation.Interval); err != nil {
		return err
	}

	if c.Animation.RunCount == 0 {
		return fmt.Errorf("run count must be positive, or negative to run forever")
	}

	// Validate bridge config
	if c.Bridge.Listen == "" {
		return fmt.Errorf("bridge listen address cannot be empty")
	}

	_, port, err := net.SplitHostPort(c.Bridge.Listen)
	if err != nil {
		return fmt.Errorf("invalid bridge listen address: %s", c.Bridge.Listen)
	}

	if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid bridge port: %s", port)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Syslog && c.Logging.Tag == "" {
		return fmt.Errorf("syslog tag cannot be empty")
	}

	return nil
}

// Interval returns the configured frame interval.
func (c *Config) Interval() time.Duration {
	d, err := ParseInterval(c.Animation.Interval)
	if err != nil {
		return DefaultInterval
	}
	return d
}

// ParseInterval parses a frame interval given as milliseconds ("40") or
// frames per second ("25fps"). The empty string selects DefaultInterval.
// 0fps is taken as 1fps.
func ParseInterval(s string) (time.Duration, error) {
	if s == "" {
		return DefaultInterval, nil
	}

	digits, fps := strings.CutSuffix(strings.ToLower(s), "fps")
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: want milliseconds or frames per second, like 40 or 25fps", s)
	}

	if !fps {
		return time.Duration(v) * time.Millisecond, nil
	}
	if v == 0 {
		logging.Warn("0fps interval changed to 1fps")
		v = 1
	}
	return time.Duration(1000/v) * time.Millisecond, nil
}

// Helper functions for environment variable parsing
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceWithDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return splitString(value, ",")
	}
	return defaultValue
}

// getOverrideOrEnv returns command-line override value, env value, or default
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func splitString(s, sep string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
