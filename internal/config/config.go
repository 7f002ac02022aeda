package config

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"blobcache/internal/models"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:7440"
	DefaultDBFileName  = ".blobcache.db"
	DefaultBlobDirName = ".blobcache-blobs"
	DefaultLogLevel    = "info"
	DefaultCacheOrigin = "blobcache"
	DefaultCompression = string(models.CompressionNone)
	ConfigFileName     = ".blobcache.toml"

	DefaultMaxBlobBytes       int64 = 25 * 1024 * 1024
	DefaultPersistConcurrency       = 4

	configDirEnvKey          = "BLOBCACHE_CONFIG_DIR"
	trustProjectConfigEnvKey = "BLOBCACHE_TRUST_PROJECT_CONFIG"

	apiURLEnvKey            = "BLOBCACHE_API_URL"
	dbPathEnvKey            = "BLOBCACHE_DB"
	blobRootEnvKey          = "BLOBCACHE_BLOB_ROOT"
	allowedMediaTypesEnvKey = "BLOBCACHE_ALLOWED_MEDIA_TYPES"
)

// CacheConfig defines runtime configuration for the in-memory blob cache.
type CacheConfig struct {
	Origin            string   `toml:"origin"`
	MaxBlobBytes      int64    `toml:"max_blob_bytes"`
	AllowedMediaTypes []string `toml:"allowed_media_types"`
}

// StoreConfig defines how persisted assets are written.
type StoreConfig struct {
	Compression        string `toml:"compression"`
	PersistConcurrency int    `toml:"persist_concurrency"`
}

// AuthConfig defines API authentication.
type AuthConfig struct {
	TokenHash string `toml:"token_hash"`
}

// Config defines runtime configuration for blobcache.
type Config struct {
	APIURL                   string      `toml:"api_url"`
	DBPath                   string      `toml:"db_path"`
	BlobRoot                 string      `toml:"blob_root"`
	LogLevel                 string      `toml:"log_level"`
	Cache                    CacheConfig `toml:"cache"`
	Store                    StoreConfig `toml:"store"`
	Auth                     AuthConfig  `toml:"auth"`
	TrustedProjectConfigPath string      `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:   DefaultAPIURL,
		LogLevel: DefaultLogLevel,
		Cache: CacheConfig{
			Origin:       DefaultCacheOrigin,
			MaxBlobBytes: DefaultMaxBlobBytes,
		},
		Store: StoreConfig{
			Compression:        DefaultCompression,
			PersistConcurrency: DefaultPersistConcurrency,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, ConfigFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"blob_root",
	"log_level",
	"cache.origin",
	"cache.max_blob_bytes",
	"cache.allowed_media_types",
	"store.compression",
	"store.persist_concurrency",
	"auth.token_hash",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "blob_root":
		return c.BlobRoot, nil
	case "log_level":
		return c.LogLevel, nil
	case "cache.origin":
		return c.Cache.Origin, nil
	case "cache.max_blob_bytes":
		return strconv.FormatInt(c.Cache.MaxBlobBytes, 10), nil
	case "cache.allowed_media_types":
		return strings.Join(c.Cache.AllowedMediaTypes, ","), nil
	case "store.compression":
		return c.Store.Compression, nil
	case "store.persist_concurrency":
		return strconv.Itoa(c.Store.PersistConcurrency), nil
	case "auth.token_hash":
		return c.Auth.TokenHash, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, ConfigFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, ConfigFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, ConfigFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if apiURL := os.Getenv(apiURLEnvKey); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if blobRoot := os.Getenv(blobRootEnvKey); blobRoot != "" {
		cfg.BlobRoot = blobRoot
	}
	if raw := strings.TrimSpace(os.Getenv(allowedMediaTypesEnvKey)); raw != "" {
		cfg.Cache.AllowedMediaTypes = splitCSV(raw)
	}

	if cfg.BlobRoot == "" && cfg.DBPath != "" {
		cfg.BlobRoot = filepath.Join(filepath.Dir(cfg.DBPath), DefaultBlobDirName)
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "cache.max_blob_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "store.persist_concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "store.compression":
		parsed, err := models.ParseCompression(value)
		if err != nil {
			return nil, err
		}
		return string(parsed), nil
	case "cache.allowed_media_types":
		return splitCSV(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.Cache.Origin) == "" {
		c.Cache.Origin = DefaultCacheOrigin
	}
	if c.Cache.MaxBlobBytes <= 0 {
		c.Cache.MaxBlobBytes = DefaultMaxBlobBytes
	}
	if compression, err := models.ParseCompression(c.Store.Compression); err == nil {
		c.Store.Compression = string(compression)
	} else {
		c.Store.Compression = DefaultCompression
	}
	if c.Store.PersistConcurrency <= 0 {
		c.Store.PersistConcurrency = DefaultPersistConcurrency
	}
	c.Cache.AllowedMediaTypes = NormalizeMediaTypes(c.Cache.AllowedMediaTypes)
}

// NormalizeMediaTypes lowercases, validates, dedupes and sorts media types.
// It returns nil when no valid type remains.
func NormalizeMediaTypes(rawValues []string) []string {
	if len(rawValues) == 0 {
		return nil
	}
	out := make([]string, 0, len(rawValues))
	seen := map[string]struct{}{}
	for _, raw := range rawValues {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			continue
		}
		normalized := strings.ToLower(strings.TrimSpace(parsed))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
