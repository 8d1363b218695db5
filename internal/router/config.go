package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Registry kinds.
const (
	RegistryKindHTTP  = "http"
	RegistryKindLocal = "local"
)

// Defaults for every recognized configuration key.
const (
	DefaultRegistryURL  = "https://raw.githubusercontent.com/krishna-505/cloud-skills/main"
	DefaultIndexTTL     = 24 * time.Hour
	DefaultBodyTTL      = 7 * 24 * time.Hour
	DefaultFetchTimeout = 2 * time.Second
	DefaultThreshold    = 18
	DefaultAmbiguityGap = 10
	DefaultBodyMaxChars = 8000
)

var (
	errConfigFileRead    = errors.New("cannot read config file")
	errConfigInvalid     = errors.New("invalid config")
	errBadRegistryKind   = errors.New("registry kind must be http or local")
	errNonPositiveValue  = errors.New("value must be positive")
	errNegativeThreshold = errors.New("threshold cannot be negative")
)

// Config holds all router configuration.
type Config struct {
	// RegistryKind selects the adapter variant: http, local, or empty for
	// autodetection (local when RegistryURL names a directory containing
	// index.json, http otherwise).
	RegistryKind string
	RegistryURL  string
	CacheDir     string
	IndexTTL     time.Duration
	BodyTTL      time.Duration
	FetchTimeout time.Duration
	Threshold    float64
	AmbiguityGap float64
	BodyMaxChars int
	Debug        bool
}

// ConfigSources tracks where configuration was loaded from.
type ConfigSources struct {
	File string // path of the config file if one was loaded
}

// DefaultConfig returns the built-in defaults. CacheDir is resolved by
// LoadConfig because it depends on the environment.
func DefaultConfig() Config {
	return Config{
		RegistryURL:  DefaultRegistryURL,
		IndexTTL:     DefaultIndexTTL,
		BodyTTL:      DefaultBodyTTL,
		FetchTimeout: DefaultFetchTimeout,
		Threshold:    DefaultThreshold,
		AmbiguityGap: DefaultAmbiguityGap,
		BodyMaxChars: DefaultBodyMaxChars,
	}
}

// fileConfig is the JSONC config file shape. Pointer fields distinguish
// "absent" from explicit zero values.
type fileConfig struct {
	RegistryKind *string  `json:"registry_kind"`
	RegistryURL  *string  `json:"registry_url"`
	CacheDir     *string  `json:"cache_dir"`
	IndexTTLSec  *int64   `json:"index_ttl_seconds"`
	BodyTTLSec   *int64   `json:"body_ttl_seconds"`
	FetchTimeout *int64   `json:"fetch_timeout_ms"`
	Threshold    *float64 `json:"threshold"`
	AmbiguityGap *float64 `json:"ambiguity_gap"`
	BodyMaxChars *int     `json:"body_max_chars"`
}

// LoadConfig resolves configuration with the following precedence (highest
// wins):
//  1. Defaults
//  2. User config file ($XDG_CONFIG_HOME/skill-router/config.json or
//     ~/.config/skill-router/config.json, JSONC allowed)
//  3. SKILL_ROUTER_* environment variables
func LoadConfig(env map[string]string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()
	cfg.CacheDir = defaultCacheDir(env)
	cfg.Debug = DebugEnabled(env)

	var sources ConfigSources

	cfgPath := configFilePath(env)
	if cfgPath != "" {
		loaded, err := applyConfigFile(&cfg, cfgPath)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}

		if loaded {
			sources.File = cfgPath
		}
	}

	envErr := applyEnv(&cfg, env)
	if envErr != nil {
		return Config{}, ConfigSources{}, envErr
	}

	validateErr := validateConfig(cfg)
	if validateErr != nil {
		return Config{}, ConfigSources{}, validateErr
	}

	return cfg, sources, nil
}

// DebugEnabled reports whether SKILL_ROUTER_DEBUG requests stderr
// diagnostics.
func DebugEnabled(env map[string]string) bool {
	switch strings.ToLower(env["SKILL_ROUTER_DEBUG"]) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func configFilePath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "skill-router", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "skill-router", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "skill-router", "config.json")
	}

	return ""
}

func defaultCacheDir(env map[string]string) string {
	if xdg := env["XDG_CACHE_HOME"]; xdg != "" {
		return filepath.Join(xdg, "skill-router")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".cache", "skill-router")
	}

	dir, err := os.UserCacheDir()
	if err == nil {
		return filepath.Join(dir, "skill-router")
	}

	// Last resort; a per-user directory could not be determined.
	return filepath.Join(os.TempDir(), "skill-router")
}

func applyConfigFile(cfg *Config, path string) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("%w: %s", errConfigFileRead, path)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return false, fmt.Errorf("%w %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}

	var fc fileConfig

	unmarshalErr := json.Unmarshal(standardized, &fc)
	if unmarshalErr != nil {
		return false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, unmarshalErr)
	}

	if fc.RegistryKind != nil {
		cfg.RegistryKind = *fc.RegistryKind
	}

	if fc.RegistryURL != nil {
		cfg.RegistryURL = *fc.RegistryURL
	}

	if fc.CacheDir != nil {
		cfg.CacheDir = *fc.CacheDir
	}

	if fc.IndexTTLSec != nil {
		cfg.IndexTTL = time.Duration(*fc.IndexTTLSec) * time.Second
	}

	if fc.BodyTTLSec != nil {
		cfg.BodyTTL = time.Duration(*fc.BodyTTLSec) * time.Second
	}

	if fc.FetchTimeout != nil {
		cfg.FetchTimeout = time.Duration(*fc.FetchTimeout) * time.Millisecond
	}

	if fc.Threshold != nil {
		cfg.Threshold = *fc.Threshold
	}

	if fc.AmbiguityGap != nil {
		cfg.AmbiguityGap = *fc.AmbiguityGap
	}

	if fc.BodyMaxChars != nil {
		cfg.BodyMaxChars = *fc.BodyMaxChars
	}

	return true, nil
}

func applyEnv(cfg *Config, env map[string]string) error {
	if v := env["SKILL_ROUTER_REGISTRY_KIND"]; v != "" {
		cfg.RegistryKind = v
	}

	if v := env["SKILL_ROUTER_REGISTRY_URL"]; v != "" {
		cfg.RegistryURL = v
	}

	if v := env["SKILL_ROUTER_CACHE_DIR"]; v != "" {
		cfg.CacheDir = v
	}

	err := envSeconds(env, "SKILL_ROUTER_INDEX_TTL_SECONDS", &cfg.IndexTTL)
	if err != nil {
		return err
	}

	err = envSeconds(env, "SKILL_ROUTER_BODY_TTL_SECONDS", &cfg.BodyTTL)
	if err != nil {
		return err
	}

	if v := env["SKILL_ROUTER_FETCH_TIMEOUT_MS"]; v != "" {
		ms, parseErr := strconv.ParseInt(v, 10, 64)
		if parseErr != nil {
			return fmt.Errorf("%w: SKILL_ROUTER_FETCH_TIMEOUT_MS=%q", errConfigInvalid, v)
		}

		cfg.FetchTimeout = time.Duration(ms) * time.Millisecond
	}

	err = envFloat(env, "SKILL_ROUTER_THRESHOLD", &cfg.Threshold)
	if err != nil {
		return err
	}

	err = envFloat(env, "SKILL_ROUTER_AMBIGUITY_GAP", &cfg.AmbiguityGap)
	if err != nil {
		return err
	}

	if v := env["SKILL_ROUTER_BODY_MAX_CHARS"]; v != "" {
		n, parseErr := strconv.Atoi(v)
		if parseErr != nil {
			return fmt.Errorf("%w: SKILL_ROUTER_BODY_MAX_CHARS=%q", errConfigInvalid, v)
		}

		cfg.BodyMaxChars = n
	}

	return nil
}

func envSeconds(env map[string]string, key string, dst *time.Duration) error {
	v := env[key]
	if v == "" {
		return nil
	}

	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", errConfigInvalid, key, v)
	}

	*dst = time.Duration(sec) * time.Second

	return nil
}

func envFloat(env map[string]string, key string, dst *float64) error {
	v := env[key]
	if v == "" {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", errConfigInvalid, key, v)
	}

	*dst = f

	return nil
}

func validateConfig(cfg Config) error {
	switch cfg.RegistryKind {
	case "", RegistryKindHTTP, RegistryKindLocal:
	default:
		return fmt.Errorf("%w: %q", errBadRegistryKind, cfg.RegistryKind)
	}

	if cfg.Threshold < 0 {
		return errNegativeThreshold
	}

	if cfg.IndexTTL <= 0 || cfg.BodyTTL <= 0 || cfg.FetchTimeout <= 0 ||
		cfg.BodyMaxChars <= 0 || cfg.AmbiguityGap < 0 {
		return fmt.Errorf("%w: ttl, timeout and body_max_chars must be positive", errNonPositiveValue)
	}

	return nil
}

// FormatConfig returns the resolved config as key=value lines for the
// print-config command.
func FormatConfig(cfg Config) string {
	var b strings.Builder

	kind := cfg.RegistryKind
	if kind == "" {
		kind = "auto"
	}

	fmt.Fprintf(&b, "registry_kind=%s\n", kind)
	fmt.Fprintf(&b, "registry_url=%s\n", cfg.RegistryURL)
	fmt.Fprintf(&b, "cache_dir=%s\n", cfg.CacheDir)
	fmt.Fprintf(&b, "index_ttl_seconds=%d\n", int64(cfg.IndexTTL/time.Second))
	fmt.Fprintf(&b, "body_ttl_seconds=%d\n", int64(cfg.BodyTTL/time.Second))
	fmt.Fprintf(&b, "fetch_timeout_ms=%d\n", int64(cfg.FetchTimeout/time.Millisecond))
	fmt.Fprintf(&b, "threshold=%g\n", cfg.Threshold)
	fmt.Fprintf(&b, "ambiguity_gap=%g\n", cfg.AmbiguityGap)
	fmt.Fprintf(&b, "body_max_chars=%d\n", cfg.BodyMaxChars)
	fmt.Fprintf(&b, "debug=%t\n", cfg.Debug)

	return b.String()
}
