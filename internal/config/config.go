package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codecheck/internal/analysis"
)

const (
	appName    = "codecheck"
	configFile = "config.yaml"
	envPrefix  = "CODECHECK"
)

// Config represents the codecheck configuration.
type Config struct {
	Service   ServiceConfig `mapstructure:"service" yaml:"service"`
	Format    string        `mapstructure:"format" yaml:"format"`
	Run       RunConfig     `mapstructure:"run" yaml:"run"`
	Overrides []Override    `mapstructure:"overrides" yaml:"overrides"`
	Include   []string      `mapstructure:"include" yaml:"include"`
	Exclude   []string      `mapstructure:"exclude" yaml:"exclude"`
	Cache     CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Privacy   PrivacyConfig `mapstructure:"privacy" yaml:"privacy"`
	Log       LogConfig     `mapstructure:"log" yaml:"log"`
	Hook      HookConfig    `mapstructure:"hook" yaml:"hook"`
}

// ServiceConfig locates the analysis service.
type ServiceConfig struct {
	URL               string  `mapstructure:"url" yaml:"url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries        int     `mapstructure:"max_retries" yaml:"max_retries"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// RunConfig holds the default per-file options.
type RunConfig struct {
	Model       string `mapstructure:"model" yaml:"model"`
	Engine      string `mapstructure:"engine" yaml:"engine"`
	Indent      string `mapstructure:"indent" yaml:"indent"`
	Brace       string `mapstructure:"brace" yaml:"brace"`
	Comma       string `mapstructure:"comma" yaml:"comma"`
	SummaryOnly bool   `mapstructure:"summary_only" yaml:"summary_only"`
	GPTFeedback bool   `mapstructure:"gpt_feedback" yaml:"gpt_feedback"`
}

// Override replaces options for files whose name matches a glob.
type Override struct {
	Match  string `mapstructure:"match" yaml:"match"`
	Indent string `mapstructure:"indent" yaml:"indent,omitempty"`
	Brace  string `mapstructure:"brace" yaml:"brace,omitempty"`
	Comma  string `mapstructure:"comma" yaml:"comma,omitempty"`
	Model  string `mapstructure:"model" yaml:"model,omitempty"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Persist    bool   `mapstructure:"persist" yaml:"persist"`
	Dir        string `mapstructure:"dir" yaml:"dir"`
	TTLSeconds int    `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
	Identity   string `mapstructure:"identity" yaml:"identity"`
}

// PrivacyConfig controls masking of sensitive values in output.
type PrivacyConfig struct {
	MaskOutput bool     `mapstructure:"mask_output" yaml:"mask_output"`
	MaskKeys   []string `mapstructure:"mask_keys" yaml:"mask_keys"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// HookConfig controls the pre-commit hook script. Staged files with failed
// outcomes always block the commit; the flags decide whether an auth
// rejection or an incomplete run blocks it too.
type HookConfig struct {
	Mode         string `mapstructure:"mode" yaml:"mode"`
	Format       string `mapstructure:"format" yaml:"format"`
	BlockOnAuth  bool   `mapstructure:"block_on_auth" yaml:"block_on_auth"`
	BlockOnError bool   `mapstructure:"block_on_error" yaml:"block_on_error"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	opts := analysis.DefaultFormatOptions()
	return Config{
		Service: ServiceConfig{
			URL:            "http://localhost:8513",
			TimeoutSeconds: 300,
		},
		Format: "text",
		Run: RunConfig{
			Model:  analysis.DefaultModel,
			Engine: "rule",
			Indent: opts.Indent,
			Brace:  opts.Brace,
			Comma:  opts.Comma,
		},
		Include: []string{"**/*"},
		Exclude: []string{"vendor/**", "node_modules/**", "**/dist/**"},
		Cache: CacheConfig{
			Enabled:    true,
			Persist:    true,
			TTLSeconds: 86400,
			Identity:   string(analysis.IdentityContent),
		},
		Privacy: PrivacyConfig{
			MaskKeys: []string{"password", "passwd", "pwd", "secret", "api_key", "apikey", "token", "access_key"},
		},
		Log: LogConfig{
			Filename:   "",
			Level:      "info",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Hook: HookConfig{
			Mode:        string(analysis.ModeScan),
			Format:      "text",
			BlockOnAuth: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("service.url", d.Service.URL)
	v.SetDefault("service.timeout_seconds", d.Service.TimeoutSeconds)
	v.SetDefault("service.max_retries", d.Service.MaxRetries)
	v.SetDefault("service.requests_per_second", d.Service.RequestsPerSecond)
	v.SetDefault("format", d.Format)
	v.SetDefault("run.model", d.Run.Model)
	v.SetDefault("run.engine", d.Run.Engine)
	v.SetDefault("run.indent", d.Run.Indent)
	v.SetDefault("run.brace", d.Run.Brace)
	v.SetDefault("run.comma", d.Run.Comma)
	v.SetDefault("run.summary_only", d.Run.SummaryOnly)
	v.SetDefault("run.gpt_feedback", d.Run.GPTFeedback)
	v.SetDefault("overrides", []Override{})
	v.SetDefault("include", d.Include)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.persist", d.Cache.Persist)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
	v.SetDefault("cache.identity", d.Cache.Identity)
	v.SetDefault("privacy.mask_output", d.Privacy.MaskOutput)
	v.SetDefault("privacy.mask_keys", d.Privacy.MaskKeys)
	v.SetDefault("log.filename", d.Log.Filename)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("hook.mode", d.Hook.Mode)
	v.SetDefault("hook.format", d.Hook.Format)
	v.SetDefault("hook.block_on_auth", d.Hook.BlockOnAuth)
	v.SetDefault("hook.block_on_error", d.Hook.BlockOnError)
}

// ConfigDir returns the platform-appropriate config directory for codecheck.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName), nil
		}
		return filepath.Join(home, "AppData", "Roaming", appName), nil
	default:
		return filepath.Join(home, ".config", appName), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// Override keys use the dotted config names (for example "run.model"); empty
// values are ignored.
func Load(overrides map[string]string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	for key, value := range overrides {
		if value != "" {
			v.Set(key, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile returns the defaults overlaid with the config file alone, without
// environment or flag overrides. A missing file yields the defaults.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks enumerated values.
func (c Config) Validate() error {
	if err := validateFormat("format", c.Format); err != nil {
		return err
	}
	switch c.Run.Engine {
	case "rule", "gpt":
	default:
		return fmt.Errorf("run.engine must be rule or gpt, got %q", c.Run.Engine)
	}
	if err := c.FormatOptions().Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if _, err := analysis.ParseIdentity(c.Cache.Identity); err != nil {
		return err
	}
	switch analysis.Mode(c.Hook.Mode) {
	case analysis.ModeFormat, analysis.ModeReview, analysis.ModeScan:
	default:
		return fmt.Errorf("hook.mode must be format, review or scan, got %q", c.Hook.Mode)
	}
	if err := validateFormat("hook.format", c.Hook.Format); err != nil {
		return err
	}
	for i, o := range c.Overrides {
		if _, err := path.Match(o.Match, ""); err != nil || o.Match == "" {
			return fmt.Errorf("overrides[%d]: invalid match pattern %q", i, o.Match)
		}
	}
	return nil
}

func validateFormat(key, value string) error {
	switch value {
	case "text", "json", "markdown", "yaml":
		return nil
	default:
		return fmt.Errorf("%s must be text, json, markdown or yaml, got %q", key, value)
	}
}

// FormatOptions returns the configured rule-engine options.
func (c Config) FormatOptions() analysis.FormatOptions {
	return analysis.FormatOptions{Indent: c.Run.Indent, Brace: c.Run.Brace, Comma: c.Run.Comma}
}

// Timeout returns the per-request service timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Service.TimeoutSeconds) * time.Second
}

// RunConfigFor returns the run configuration for a file, applying every
// matching override in order.
func (c Config) RunConfigFor(mode analysis.Mode, name string) analysis.RunConfig {
	rc := analysis.RunConfig{
		Mode:        mode,
		Format:      c.FormatOptions(),
		Model:       c.Run.Model,
		SummaryOnly: c.Run.SummaryOnly,
		GPTFeedback: c.Run.GPTFeedback,
	}
	for _, o := range c.Overrides {
		if !o.Matches(name) {
			continue
		}
		if o.Indent != "" {
			rc.Format.Indent = o.Indent
		}
		if o.Brace != "" {
			rc.Format.Brace = o.Brace
		}
		if o.Comma != "" {
			rc.Format.Comma = o.Comma
		}
		if o.Model != "" {
			rc.Model = o.Model
		}
	}
	return rc
}

// Matches reports whether the override applies to name. Patterns without a
// slash match the base name.
func (o Override) Matches(name string) bool {
	name = filepath.ToSlash(name)
	if !strings.Contains(o.Match, "/") {
		name = path.Base(name)
	}
	ok, err := path.Match(o.Match, name)
	return err == nil && ok
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "service.url":
		cfg.Service.URL = value
	case "service.timeout_seconds":
		return setInt(&cfg.Service.TimeoutSeconds, key, value)
	case "service.max_retries":
		return setInt(&cfg.Service.MaxRetries, key, value)
	case "service.requests_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %w", key, err)
		}
		cfg.Service.RequestsPerSecond = f
	case "format":
		cfg.Format = value
	case "run.model":
		cfg.Run.Model = value
	case "run.engine":
		cfg.Run.Engine = value
	case "run.indent":
		cfg.Run.Indent = value
	case "run.brace":
		cfg.Run.Brace = value
	case "run.comma":
		cfg.Run.Comma = value
	case "run.summary_only":
		return setBool(&cfg.Run.SummaryOnly, key, value)
	case "run.gpt_feedback":
		return setBool(&cfg.Run.GPTFeedback, key, value)
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.persist":
		return setBool(&cfg.Cache.Persist, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttl_seconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "cache.identity":
		cfg.Cache.Identity = value
	case "privacy.mask_output":
		return setBool(&cfg.Privacy.MaskOutput, key, value)
	case "privacy.mask_keys":
		cfg.Privacy.MaskKeys = splitList(value)
	case "log.filename":
		cfg.Log.Filename = value
	case "log.level":
		cfg.Log.Level = value
	case "log.max_size":
		return setInt(&cfg.Log.MaxSize, key, value)
	case "log.max_backups":
		return setInt(&cfg.Log.MaxBackups, key, value)
	case "log.max_age":
		return setInt(&cfg.Log.MaxAge, key, value)
	case "log.compress":
		return setBool(&cfg.Log.Compress, key, value)
	case "hook.mode":
		cfg.Hook.Mode = value
	case "hook.format":
		cfg.Hook.Format = value
	case "hook.block_on_auth":
		return setBool(&cfg.Hook.BlockOnAuth, key, value)
	case "hook.block_on_error":
		return setBool(&cfg.Hook.BlockOnError, key, value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Lookup returns the value stored under a dotted key, such as "run.model"
// or "cache", in its YAML form. Sections come back as nested maps.
func Lookup(cfg Config, key string) (any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
		if node, ok = m[part]; !ok {
			return nil, fmt.Errorf("unknown config key: %s", key)
		}
	}
	return node, nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
