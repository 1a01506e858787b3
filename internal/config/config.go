// Package config loads the billboard daemon configuration: a local
// YAML file, optionally overlaid with a remote JSON override.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDisplayTime is how long a source stays on the panels when the
// config doesn't say otherwise.
const DefaultDisplayTime = 10 * time.Second

// remoteFetchTimeout bounds the remote override request.
const remoteFetchTimeout = 5 * time.Second

// Source is one image to display: a local path or an http(s) URL.
type Source struct {
	Path        string
	DisplayTime time.Duration
}

// sourceSpec is the on-disk shape of a source entry when it is a
// mapping rather than a bare string. display_time is in seconds.
type sourceSpec struct {
	Path        string  `yaml:"path" json:"path"`
	DisplayTime float64 `yaml:"display_time" json:"display_time"`
}

func (s *Source) fromSpec(spec sourceSpec) {
	s.Path = spec.Path
	s.DisplayTime = time.Duration(spec.DisplayTime * float64(time.Second))
}

// UnmarshalYAML accepts either a bare string or a {path, display_time}
// mapping.
func (s *Source) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		return value.Decode(&s.Path)
	}
	var spec sourceSpec
	if err := value.Decode(&spec); err != nil {
		return err
	}
	s.fromSpec(spec)
	return nil
}

// UnmarshalJSON mirrors the YAML flexibility for remote overrides.
func (s *Source) UnmarshalJSON(data []byte) error {
	var path string
	if err := json.Unmarshal(data, &path); err == nil {
		s.Path = path
		return nil
	}
	var spec sourceSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return err
	}
	s.fromSpec(spec)
	return nil
}

// Config is the daemon configuration.
type Config struct {
	RemoteURL   string   `yaml:"remote_configuration_url"`
	ActiveStart string   `yaml:"active_start"`
	ActiveEnd   string   `yaml:"active_end"`
	Sources     []Source `yaml:"sources"`
	Targets     []string `yaml:"targets"`
	Port        int      `yaml:"port"`
}

func (c *Config) applyDefaults() {
	if c.ActiveStart == "" {
		c.ActiveStart = "08:00"
	}
	if c.ActiveEnd == "" {
		c.ActiveEnd = "23:00"
	}
	if c.Port == 0 {
		c.Port = 54321
	}
	for i := range c.Sources {
		if c.Sources[i].DisplayTime <= 0 {
			c.Sources[i].DisplayTime = DefaultDisplayTime
		}
	}
}

// Window returns the active display window parsed from the config.
func (c *Config) Window() (Window, error) {
	return ParseWindow(c.ActiveStart, c.ActiveEnd)
}

// Load reads and validates the YAML config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()

	if _, err := cfg.Window(); err != nil {
		return nil, fmt.Errorf("invalid active window: %w", err)
	}
	return &cfg, nil
}

// remoteOverride is the shape of the remote configuration document.
type remoteOverride struct {
	ActiveStart *string  `json:"active_start"`
	ActiveEnd   *string  `json:"active_end"`
	Sources     []Source `json:"sources"`
}

// ApplyRemote fetches the remote override, if configured, and merges it
// in. The window bounds are only taken as a pair. Fetch or decode
// failures are logged and leave the local config untouched.
func (c *Config) ApplyRemote(ctx context.Context, client *http.Client, log *slog.Logger) {
	if c.RemoteURL == "" {
		return
	}
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, remoteFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RemoteURL, nil)
	if err != nil {
		log.Warn("remote config request", "url", c.RemoteURL, "error", err)
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("fetching remote config", "url", c.RemoteURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("fetching remote config", "url", c.RemoteURL, "status", resp.StatusCode)
		return
	}

	var override remoteOverride
	if err := json.NewDecoder(resp.Body).Decode(&override); err != nil {
		log.Warn("decoding remote config", "url", c.RemoteURL, "error", err)
		return
	}

	if override.ActiveStart != nil && override.ActiveEnd != nil {
		if _, err := ParseWindow(*override.ActiveStart, *override.ActiveEnd); err != nil {
			log.Warn("remote active window invalid", "error", err)
		} else {
			c.ActiveStart = *override.ActiveStart
			c.ActiveEnd = *override.ActiveEnd
		}
	}
	if override.Sources != nil {
		c.Sources = override.Sources
		for i := range c.Sources {
			if c.Sources[i].DisplayTime <= 0 {
				c.Sources[i].DisplayTime = DefaultDisplayTime
			}
		}
	}
	log.Info("remote configuration loaded", "url", c.RemoteURL)
}
