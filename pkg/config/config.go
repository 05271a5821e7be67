// Package config loads the meshchat configuration: a YAML file, optionally
// a .env file, and MESHCHAT_* environment variables on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"

	"github.com/agentmesh/meshchat/pkg/artifacts"
	"github.com/agentmesh/meshchat/pkg/logging"
	"github.com/agentmesh/meshchat/pkg/paths"
	"github.com/agentmesh/meshchat/pkg/telemetry"
)

const CurrentVersion = "v1"

// Backend kinds.
const (
	BackendGateway = "gateway"
	BackendA2A     = "a2a"
)

// Task stream transports.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
	TransportNone      = "none"
)

// Artifact store kinds.
const (
	ArtifactsGateway = "gateway"
	ArtifactsS3      = "s3"
	ArtifactsMemory  = "memory"
	ArtifactsNone    = "none"
)

type Config struct {
	Version string `yaml:"version,omitempty"`
	// Backend is where chat messages go: the gateway or the agents'
	// A2A endpoints directly.
	Backend   string           `yaml:"backend,omitempty"`
	Gateway   GatewayConfig    `yaml:"gateway,omitempty"`
	Agents    AgentsConfig     `yaml:"agents,omitempty"`
	Tasks     TasksConfig      `yaml:"tasks,omitempty"`
	Artifacts ArtifactsConfig  `yaml:"artifacts,omitempty"`
	Log       logging.Config   `yaml:"log,omitempty"`
	Telemetry telemetry.Config `yaml:"telemetry,omitempty"`
}

type GatewayConfig struct {
	URL     string            `yaml:"url,omitempty"`
	Token   string            `yaml:"token,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout,omitempty"`
}

type AgentsConfig struct {
	// CardURLs are the A2A agent card locations used with the a2a backend.
	CardURLs []string `yaml:"card_urls,omitempty"`
	Default  string   `yaml:"default,omitempty"`
}

type TasksConfig struct {
	Transport string `yaml:"transport,omitempty"`
	// URL overrides the stream endpoint derived from the gateway URL.
	URL   string      `yaml:"url,omitempty"`
	Retry RetryConfig `yaml:"retry,omitempty"`
}

type RetryConfig struct {
	Initial     time.Duration `yaml:"initial,omitempty"`
	Max         time.Duration `yaml:"max,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty"`
}

type ArtifactsConfig struct {
	Backend string                 `yaml:"backend,omitempty"`
	S3      artifacts.S3Config     `yaml:"s3,omitempty"`
	Cache   *artifacts.CacheConfig `yaml:"cache,omitempty"`
}

// Default is the configuration of a local gateway started with
// `meshchat serve`.
func Default() *Config {
	cache := artifacts.DefaultCacheConfig()
	return &Config{
		Version: CurrentVersion,
		Backend: BackendGateway,
		Gateway: GatewayConfig{
			URL:     "http://127.0.0.1:8080",
			Timeout: 30 * time.Second,
		},
		Tasks: TasksConfig{
			Transport: TransportSSE,
			Retry: RetryConfig{
				Initial:     500 * time.Millisecond,
				Max:         30 * time.Second,
				MaxAttempts: 10,
			},
		},
		Artifacts: ArtifactsConfig{
			Backend: ArtifactsGateway,
			Cache:   &cache,
		},
		Log: logging.Config{
			Path:  paths.LogFile(),
			Level: "info",
		},
	}
}

// Load reads the config file at path, which may not exist, then applies the
// .env files and the environment. Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment.
func LoadWith(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendGateway:
		if c.Gateway.URL == "" {
			errs = append(errs, errors.New("gateway.url is required with the gateway backend"))
		}
	case BackendA2A:
		if len(c.Agents.CardURLs) == 0 {
			errs = append(errs, errors.New("agents.card_urls is required with the a2a backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	switch c.Tasks.Transport {
	case TransportSSE, TransportWebSocket:
		if c.Tasks.URL == "" && c.Gateway.URL == "" {
			errs = append(errs, errors.New("tasks.url or gateway.url is required to stream tasks"))
		}
	case TransportNone:
	default:
		errs = append(errs, fmt.Errorf("unknown task transport %q", c.Tasks.Transport))
	}

	switch c.Artifacts.Backend {
	case ArtifactsGateway:
		if c.Gateway.URL == "" {
			errs = append(errs, errors.New("gateway.url is required with gateway artifacts"))
		}
	case ArtifactsS3:
		if c.Artifacts.S3.Endpoint == "" || c.Artifacts.S3.Bucket == "" {
			errs = append(errs, errors.New("artifacts.s3.endpoint and artifacts.s3.bucket are required with s3 artifacts"))
		}
	case ArtifactsMemory, ArtifactsNone:
	default:
		errs = append(errs, fmt.Errorf("unknown artifact backend %q", c.Artifacts.Backend))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Save writes the config to path atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ErrExists is returned by Init when the file is already there.
var ErrExists = errors.New("config file already exists")

// Init writes the default configuration to path. An existing file is only
// replaced with force set.
func Init(path string, force bool) (*Config, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%s: %w", path, ErrExists)
	}
	cfg := Default()
	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
