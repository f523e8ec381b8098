package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	defaultAppID          = "MediaPlayer"
	defaultHandoffTimeout = 5 * time.Second
	defaultReadTimeout    = 5 * time.Second
	defaultResumeDelay    = time.Second
	defaultCoverMaxSize   = 1024
	defaultLogLevel       = "info"

	configFileName = "mediashell/config.toml"
	localFileName  = "mediashell.toml"
)

// AppConfig holds application configuration
type AppConfig struct {
	AppID             string        `koanf:"app_id"`
	SocketDir         string        `koanf:"socket_dir"`
	HandoffTimeout    time.Duration `koanf:"handoff_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ResumeDelay       time.Duration `koanf:"resume_delay"`
	CoverMaxSize      int           `koanf:"cover_max_size"`
	CoverCacheEntries int           `koanf:"cover_cache_entries"`
	LogLevel          string        `koanf:"log_level"`
	Coordinate        bool          `koanf:"single_instance"`
}

// Default returns the configuration used when no file or environment override is present
func Default() *AppConfig {
	return &AppConfig{
		AppID:          defaultAppID,
		SocketDir:      defaultSocketDir(),
		HandoffTimeout: defaultHandoffTimeout,
		ReadTimeout:    defaultReadTimeout,
		ResumeDelay:    defaultResumeDelay,
		CoverMaxSize:   defaultCoverMaxSize,
		LogLevel:       defaultLogLevel,
		Coordinate:     true,
	}
}

// Load builds the configuration from defaults, TOML files and MEDIASHELL_* environment variables.
// When path is empty the XDG config file and ./mediashell.toml are tried in that order (last wins).
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	paths := []string{path}
	if path == "" {
		paths = searchPaths()
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if path != "" {
				return nil, fmt.Errorf("config file %s: %w", p, err)
			}
			continue
		}
		if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyEnv(cfg)
	cfg.SocketDir = expandPath(cfg.SocketDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func searchPaths() []string {
	paths := []string{}
	if p, err := xdg.SearchConfigFile(configFileName); err == nil {
		paths = append(paths, p)
	}
	return append(paths, localFileName)
}

// applyEnv overrides file values with environment variables
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("MEDIASHELL_APP_ID"); v != "" {
		cfg.AppID = v
	}
	if v := os.Getenv("MEDIASHELL_SOCKET_DIR"); v != "" {
		cfg.SocketDir = os.ExpandEnv(v)
	}
	if v := os.Getenv("MEDIASHELL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MEDIASHELL_SINGLE_INSTANCE"); v == "0" || v == "false" {
		cfg.Coordinate = false
	}
}

func (c *AppConfig) validate() error {
	if c.AppID == "" {
		return fmt.Errorf("app_id must not be empty")
	}
	if c.HandoffTimeout <= 0 {
		return fmt.Errorf("handoff_timeout must be positive, got %s", c.HandoffTimeout)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.ResumeDelay < 0 {
		c.ResumeDelay = 0
	}
	if c.CoverMaxSize < 0 {
		c.CoverMaxSize = 0
	}
	if c.CoverCacheEntries < 0 {
		c.CoverCacheEntries = 0
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Fields returns the configuration as zap fields for the startup log line
func (c *AppConfig) Fields() []zap.Field {
	return []zap.Field{
		zap.String("appID", c.AppID),
		zap.String("socketDir", c.SocketDir),
		zap.Duration("handoffTimeout", c.HandoffTimeout),
		zap.Duration("readTimeout", c.ReadTimeout),
		zap.Int("coverMaxSize", c.CoverMaxSize),
		zap.Int("coverCacheEntries", c.CoverCacheEntries),
		zap.Bool("singleInstance", c.Coordinate),
	}
}

func defaultSocketDir() string {
	if xdg.RuntimeDir != "" {
		return xdg.RuntimeDir
	}
	return os.TempDir()
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func (c *AppConfig) GetAppID() string                 { return c.AppID }
func (c *AppConfig) GetSocketDir() string             { return c.SocketDir }
func (c *AppConfig) GetHandoffTimeout() time.Duration { return c.HandoffTimeout }
func (c *AppConfig) GetReadTimeout() time.Duration    { return c.ReadTimeout }
func (c *AppConfig) GetResumeDelay() time.Duration    { return c.ResumeDelay }
func (c *AppConfig) GetCoverMaxSize() int             { return c.CoverMaxSize }
func (c *AppConfig) GetCoverCacheEntries() int        { return c.CoverCacheEntries }
func (c *AppConfig) GetLogLevel() string              { return c.LogLevel }
func (c *AppConfig) SingleInstance() bool             { return c.Coordinate }
