// Package config loads the TOML configuration of an SLP overlay node.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/log"
	"github.com/bsv-blockchain/go-overlay-slp-services/pkg/utils"
)

// Backend names a storage implementation.
type Backend string

// Supported storage backends.
const (
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
	BackendMongo  Backend = "mongo"
)

// Static error variables for err113 compliance
var (
	errInvalidTopic      = errors.New("topic must be a valid tm_ topic name")
	errInvalidService    = errors.New("service must be a valid ls_ service name")
	errInvalidHostingURL = errors.New("hosting_url must be a public https URL")
	errInvalidLogLevel   = errors.New("unknown log level")
	errUnknownBackend    = errors.New("unknown storage backend")
	errMissingPath       = errors.New("badger storage requires a path")
	errMissingMongoURI   = errors.New("mongo storage requires a uri and a database")
	errInvalidTimeout    = errors.New("timeout must be positive")
	errUndecodedKeys     = errors.New("unknown configuration keys")
)

// Config is the configuration of an SLP overlay node.
type Config struct {
	Topic   string
	Service string
	// HostingURL is the public URL the node is reachable at. Optional.
	HostingURL string
	Log        LogConfig
	Storage    StorageConfig
	// Timeout bounds storage connection and setup.
	Timeout time.Duration
}

// LogConfig configures pkg/log.
type LogConfig struct {
	Level string
	JSON  bool
	File  string
}

// StorageConfig selects and configures the record storage.
type StorageConfig struct {
	Backend Backend
	// Path is the badger data directory.
	Path string
	// Prefix namespaces the keys of a shared key-value store.
	Prefix        string
	MongoURI      string
	MongoDatabase string
}

// Default returns the configuration used for keys a file leaves unset.
func Default() Config {
	return Config{
		Topic:   "tm_slp",
		Service: "ls_slp",
		Log: LogConfig{
			Level: "info",
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    "data/slp",
		},
		Timeout: 10 * time.Second,
	}
}

type fileConfig struct {
	Topic      string      `toml:"topic"`
	Service    string      `toml:"service"`
	HostingURL string      `toml:"hosting_url"`
	Timeout    string      `toml:"timeout"`
	Log        fileLog     `toml:"log"`
	Storage    fileStorage `toml:"storage"`
}

type fileLog struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
	File  string `toml:"file"`
}

type fileStorage struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	Prefix        string `toml:"prefix"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return fromFile(raw, meta)
}

// Parse is Load for configuration held in memory.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%w: %s", errUndecodedKeys, strings.Join(keys, ", "))
	}

	cfg := Default()
	if meta.IsDefined("topic") {
		cfg.Topic = strings.TrimSpace(raw.Topic)
	}
	if meta.IsDefined("service") {
		cfg.Service = strings.TrimSpace(raw.Service)
	}
	if meta.IsDefined("hosting_url") {
		cfg.HostingURL = strings.TrimSpace(raw.HostingURL)
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(raw.Log.Level))
	}
	if meta.IsDefined("log", "json") {
		cfg.Log.JSON = raw.Log.JSON
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}

	if meta.IsDefined("storage", "backend") {
		cfg.Storage.Backend = Backend(strings.ToLower(strings.TrimSpace(raw.Storage.Backend)))
	}
	if meta.IsDefined("storage", "path") {
		cfg.Storage.Path = strings.TrimSpace(raw.Storage.Path)
	}
	if meta.IsDefined("storage", "prefix") {
		cfg.Storage.Prefix = raw.Storage.Prefix
	}
	if meta.IsDefined("storage", "mongo_uri") {
		cfg.Storage.MongoURI = strings.TrimSpace(raw.Storage.MongoURI)
	}
	if meta.IsDefined("storage", "mongo_database") {
		cfg.Storage.MongoDatabase = strings.TrimSpace(raw.Storage.MongoDatabase)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to start a node.
func (c Config) Validate() error {
	if !utils.IsValidTopicName(c.Topic) {
		return fmt.Errorf("%w: %q", errInvalidTopic, c.Topic)
	}
	if !utils.IsValidServiceName(c.Service) {
		return fmt.Errorf("%w: %q", errInvalidService, c.Service)
	}
	if c.HostingURL != "" && !utils.IsPublicHostingURL(c.HostingURL) {
		return fmt.Errorf("%w: %q", errInvalidHostingURL, c.HostingURL)
	}
	if !log.ValidLevel(c.Log.Level) {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, c.Log.Level)
	}
	if c.Timeout <= 0 {
		return errInvalidTimeout
	}

	switch c.Storage.Backend {
	case BackendMemory:
	case BackendBadger:
		if c.Storage.Path == "" {
			return errMissingPath
		}
	case BackendMongo:
		if c.Storage.MongoURI == "" || c.Storage.MongoDatabase == "" {
			return errMissingMongoURI
		}
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, c.Storage.Backend)
	}
	return nil
}
