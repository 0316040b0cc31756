// Package config resolves runtime settings from defaults, an optional YAML
// file and the environment. Command-line flags are applied by the caller last.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ollamatui/internal/registry"
)

const (
	AppName  = "ollamatui"
	EnvHost  = "OLLAMA_HOST"
	FileName = "config.yaml"

	DefaultHost     = "http://localhost:11434"
	DefaultPort     = "11434"
	DefaultDebounce = 350 * time.Millisecond

	minDebounce = 50 * time.Millisecond
	maxDebounce = 5 * time.Second
)

type Config struct {
	Host           string          `yaml:"host"`
	LogFile        string          `yaml:"log_file"`
	SearchDebounce time.Duration   `yaml:"search_debounce"`
	Registry       registry.Config `yaml:"registry"`
}

func Default() Config {
	return Config{
		Host:           DefaultHost,
		SearchDebounce: DefaultDebounce,
		Registry:       registry.DefaultConfig(),
	}
}

// DefaultPath is $XDG_CONFIG_HOME/ollamatui/config.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, FileName), nil
}

// Load reads path on top of the defaults. A missing file is only an error
// when the caller asked for it explicitly.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides the host from OLLAMA_HOST when it is set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv(EnvHost)); v != "" {
		c.Host = v
	}
}

// Normalize canonicalises the host in place.
func (c *Config) Normalize() error {
	host, err := NormalizeHost(c.Host)
	if err != nil {
		return err
	}
	c.Host = host
	if c.SearchDebounce == 0 {
		c.SearchDebounce = DefaultDebounce
	}
	return nil
}

func (c Config) Validate() error {
	if _, err := NormalizeHost(c.Host); err != nil {
		return err
	}
	if c.SearchDebounce < minDebounce || c.SearchDebounce > maxDebounce {
		return fmt.Errorf("search_debounce %s out of range [%s, %s]", c.SearchDebounce, minDebounce, maxDebounce)
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	return nil
}

// NormalizeHost accepts the forms OLLAMA_HOST allows: a full URL, host:port,
// a bare host or :port. The result has a scheme, a port and no trailing slash.
func NormalizeHost(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultHost, nil
	}

	scheme := "http"
	rest := raw
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme = strings.ToLower(raw[:i])
		rest = raw[i+3:]
	}
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("host %q: unsupported scheme %q", raw, scheme)
	}

	path := ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		path = strings.TrimRight(rest[i:], "/")
		rest = rest[:i]
	}

	hostname, port, err := net.SplitHostPort(rest)
	if err != nil {
		// No port given.
		hostname = strings.Trim(rest, "[]")
		port = ""
		if scheme == "http" {
			port = DefaultPort
		}
	}
	if hostname == "" {
		hostname = "127.0.0.1"
	}

	hostport := hostname
	if strings.Contains(hostname, ":") {
		hostport = "[" + hostname + "]"
	}
	if port != "" {
		hostport = net.JoinHostPort(hostname, port)
	}

	u := url.URL{Scheme: scheme, Host: hostport, Path: path}
	if _, err := url.Parse(u.String()); err != nil {
		return "", fmt.Errorf("host %q: %w", raw, err)
	}
	return u.String(), nil
}
