package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"
)

// Disk names accepted for screenshot storage.
const (
	DiskLocal  = "local"
	DiskMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	GoLogin    GoLoginConfig    `toml:"gologin"`
	Multilogin MultiloginConfig `toml:"multilogin"`
	Octo       OctoConfig       `toml:"octo"`
	Storage    StorageConfig    `toml:"storage"`
	Timing     TimingConfig     `toml:"timing"`
	History    HistoryConfig    `toml:"history"`
}

type GoLoginConfig struct {
	APIURL          string      `toml:"api_url" envconfig:"GOLOGIN_API_URL"`
	CloudBrowserURL string      `toml:"cloud_browser_url" envconfig:"GOLOGIN_CLOUD_BROWSER_URL"`
	Token           null.String `toml:"token" envconfig:"GOLOGIN_TOKEN"`
	// WebDriverURL overrides the executor URL; the session endpoint is used when empty.
	WebDriverURL      string `toml:"webdriver_url" envconfig:"GOLOGIN_WEBDRIVER_URL"`
	ScreenshotsDisk   string `toml:"screenshots_disk" envconfig:"GOLOGIN_SCREENSHOTS_DISK"`
	ScreenshotsPath   string `toml:"screenshots_path" envconfig:"GOLOGIN_SCREENSHOTS_PATH"`
	ScreenshotsPrefix string `toml:"screenshots_prefix" envconfig:"GOLOGIN_SCREENSHOTS_PREFIX"`
}

type MultiloginConfig struct {
	LauncherURL       string      `toml:"launcher_url" envconfig:"MULTILOGIN_LAUNCHER_URL"`
	SeleniumHost      string      `toml:"selenium_host" envconfig:"MULTILOGIN_SELENIUM_HOST"`
	SigninURL         string      `toml:"signin_url" envconfig:"MULTILOGIN_SIGNIN_URL"`
	Username          null.String `toml:"username" envconfig:"MULTILOGIN_USERNAME"`
	Password          null.String `toml:"password" envconfig:"MULTILOGIN_PASSWORD"`
	ScreenshotsDisk   string      `toml:"screenshots_disk" envconfig:"MULTILOGIN_SCREENSHOTS_DISK"`
	ScreenshotsPath   string      `toml:"screenshots_path" envconfig:"MULTILOGIN_SCREENSHOTS_PATH"`
	ScreenshotsPrefix string      `toml:"screenshots_prefix" envconfig:"MULTILOGIN_SCREENSHOTS_PREFIX"`
}

type OctoConfig struct {
	APIURL   string      `toml:"api_url" envconfig:"OCTO_API_URL"`
	Email    null.String `toml:"email" envconfig:"OCTO_EMAIL"`
	Password null.String `toml:"password" envconfig:"OCTO_PASSWORD"`
	// DebugHost is where the DevTools port of a started profile is reachable.
	DebugHost string `toml:"debug_host" envconfig:"OCTO_DEBUG_HOST"`
	// WebDriverURL is the chromedriver that attaches to the DevTools port.
	WebDriverURL      string `toml:"webdriver_url" envconfig:"OCTO_WEBDRIVER_URL"`
	ScreenshotsDisk   string `toml:"screenshots_disk" envconfig:"OCTO_SCREENSHOTS_DISK"`
	ScreenshotsPath   string `toml:"screenshots_path" envconfig:"OCTO_SCREENSHOTS_PATH"`
	ScreenshotsPrefix string `toml:"screenshots_prefix" envconfig:"OCTO_SCREENSHOTS_PREFIX"`
}

type StorageConfig struct {
	// Root is the directory the "local" disk is rooted at.
	Root string `toml:"root" envconfig:"ANTIDETECT_STORAGE_ROOT"`
}

type TimingConfig struct {
	SettleDelay    time.Duration `toml:"settle_delay" envconfig:"ANTIDETECT_SETTLE_DELAY"`
	SubmitDelay    time.Duration `toml:"submit_delay" envconfig:"ANTIDETECT_SUBMIT_DELAY"`
	DriverTimeout  time.Duration `toml:"driver_timeout" envconfig:"ANTIDETECT_DRIVER_TIMEOUT"`
	ElementTimeout time.Duration `toml:"element_timeout" envconfig:"ANTIDETECT_ELEMENT_TIMEOUT"`
	PollInterval   time.Duration `toml:"poll_interval" envconfig:"ANTIDETECT_POLL_INTERVAL"`
	ReadyTimeout   time.Duration `toml:"ready_timeout" envconfig:"ANTIDETECT_READY_TIMEOUT"`
	CleanupTimeout time.Duration `toml:"cleanup_timeout" envconfig:"ANTIDETECT_CLEANUP_TIMEOUT"`
}

type HistoryConfig struct {
	// DBPath enables the run journal when set.
	DBPath string `toml:"db_path" envconfig:"ANTIDETECT_HISTORY_DB"`
}

// ScreenshotConfig is the resolved screenshot destination of one vendor.
type ScreenshotConfig struct {
	Disk   string
	Path   string
	Prefix string
}

// Screenshots returns the GoLogin screenshot destination.
func (c GoLoginConfig) Screenshots() ScreenshotConfig {
	return ScreenshotConfig{Disk: c.ScreenshotsDisk, Path: c.ScreenshotsPath, Prefix: c.ScreenshotsPrefix}
}

// Screenshots returns the Multilogin screenshot destination.
func (c MultiloginConfig) Screenshots() ScreenshotConfig {
	return ScreenshotConfig{Disk: c.ScreenshotsDisk, Path: c.ScreenshotsPath, Prefix: c.ScreenshotsPrefix}
}

// Screenshots returns the Octo screenshot destination.
func (c OctoConfig) Screenshots() ScreenshotConfig {
	return ScreenshotConfig{Disk: c.ScreenshotsDisk, Path: c.ScreenshotsPath, Prefix: c.ScreenshotsPrefix}
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		GoLogin: GoLoginConfig{
			APIURL:            "https://api.gologin.com",
			CloudBrowserURL:   "https://cloudbrowser.gologin.com",
			ScreenshotsDisk:   DiskLocal,
			ScreenshotsPath:   "screenshots",
			ScreenshotsPrefix: "gologin",
		},
		Multilogin: MultiloginConfig{
			LauncherURL:     "http://localhost:35000",
			SeleniumHost:    "127.0.0.1",
			SigninURL:       "https://api.multilogin.com/user/signin",
			ScreenshotsDisk: DiskLocal,
			ScreenshotsPath: "screenshots",
		},
		Octo: OctoConfig{
			APIURL:            "http://localhost:58888",
			DebugHost:         "localhost",
			WebDriverURL:      "http://localhost:9515",
			ScreenshotsDisk:   DiskLocal,
			ScreenshotsPath:   "screenshots",
			ScreenshotsPrefix: "octo",
		},
		Storage: StorageConfig{
			Root: filepath.Join("storage", "app"),
		},
		Timing: TimingConfig{
			SettleDelay:    5 * time.Second,
			SubmitDelay:    3 * time.Second,
			DriverTimeout:  60 * time.Second,
			ElementTimeout: 15 * time.Second,
			PollInterval:   500 * time.Millisecond,
			ReadyTimeout:   60 * time.Second,
			CleanupTimeout: 60 * time.Second,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "anti-detect-browsing"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnvMap turns os.Environ() style pairs into a map.
func EnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}

// Load builds the configuration: defaults, then the TOML file, then the
// environment. An explicit path (or ANTIDETECT_CONFIG) must exist; the default
// config file is read only when present.
func Load(path string, env map[string]string) (*Config, error) {
	cfg := Default()

	explicit := true
	if path == "" {
		path = env["ANTIDETECT_CONFIG"]
	}
	if path == "" {
		explicit = false
		p, err := ConfigPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process("", cfg, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}); err != nil {
		return nil, fmt.Errorf("invalid environment configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would only fail much later at runtime.
func (c *Config) Validate() error {
	for name, disk := range map[string]string{
		"gologin":    c.GoLogin.ScreenshotsDisk,
		"multilogin": c.Multilogin.ScreenshotsDisk,
		"octo":       c.Octo.ScreenshotsDisk,
	} {
		if disk != DiskLocal && disk != DiskMemory {
			return fmt.Errorf("unknown %s screenshots disk %q", name, disk)
		}
	}

	durations := map[string]time.Duration{
		"driver_timeout":  c.Timing.DriverTimeout,
		"element_timeout": c.Timing.ElementTimeout,
		"poll_interval":   c.Timing.PollInterval,
		"ready_timeout":   c.Timing.ReadyTimeout,
		"cleanup_timeout": c.Timing.CleanupTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("timing.%s must be positive, got %s", name, d)
		}
	}
	if c.Timing.SettleDelay < 0 || c.Timing.SubmitDelay < 0 {
		return errors.New("timing delays must not be negative")
	}

	return nil
}

// Save writes config to path, creating the directory when needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
