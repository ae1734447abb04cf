package source

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"argstats-api/pkg/confkit"
)

// Config lists the upstream datasets the ingestion jobs can fetch.
type Config struct {
	Sources map[string]*FetcherConfig `yaml:"sources"`
}

// FetcherConfig configures a single upstream dataset.
type FetcherConfig struct {
	Type string `yaml:"type"`
	URL  string `yaml:"url"`

	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	MaxRetries     int           `yaml:"max_retries"`

	// RecordsPath is a dotted path to the row array inside a JSON document.
	RecordsPath string            `yaml:"records_path"`
	Headers     map[string]string `yaml:"headers"`
}

// FetcherBuilder constructs a Fetcher from configuration.
type FetcherBuilder func(name string, cfg *FetcherConfig) (Fetcher, error)

var (
	fetcherRegistry   = make(map[string]FetcherBuilder)
	fetcherRegistryMu sync.RWMutex
)

// RegisterFetcher registers a fetcher constructor under a type name.
func RegisterFetcher(typeName string, builder FetcherBuilder) {
	fetcherRegistryMu.Lock()
	defer fetcherRegistryMu.Unlock()
	fetcherRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupFetcherBuilder(typeName string) (FetcherBuilder, bool) {
	fetcherRegistryMu.RLock()
	defer fetcherRegistryMu.RUnlock()
	builder, ok := fetcherRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// RegisteredTypes lists registered fetcher types, sorted.
func RegisteredTypes() []string {
	fetcherRegistryMu.RLock()
	defer fetcherRegistryMu.RUnlock()
	out := make([]string, 0, len(fetcherRegistry))
	for name := range fetcherRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LoadConfig reads source configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal source config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Sources == nil {
		c.Sources = make(map[string]*FetcherConfig)
	}
	for name, src := range c.Sources {
		if src == nil {
			src = &FetcherConfig{}
			c.Sources[name] = src
		}
		src.expandEnv()
		if err := src.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (f *FetcherConfig) expandEnv() {
	f.Type = strings.TrimSpace(os.ExpandEnv(f.Type))
	f.URL = strings.TrimSpace(os.ExpandEnv(f.URL))
	f.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(f.TimeoutRaw))
	f.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(f.HTTPTimeoutRaw))
	f.RecordsPath = strings.TrimSpace(f.RecordsPath)
	for k, v := range f.Headers {
		f.Headers[k] = os.ExpandEnv(v)
	}
}

func (f *FetcherConfig) parseDurations(name string) error {
	var err error
	if f.Timeout, err = confkit.ParsePositiveDuration(f.TimeoutRaw); err != nil {
		return fmt.Errorf("source %s: invalid timeout: %w", name, err)
	}
	if f.HTTPTimeout, err = confkit.ParsePositiveDuration(f.HTTPTimeoutRaw); err != nil {
		return fmt.Errorf("source %s: invalid http_timeout: %w", name, err)
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("source config: sources cannot be empty")
	}
	for name, src := range c.Sources {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("source config: source name cannot be empty")
		}
		if err := src.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (f *FetcherConfig) validate(name string) error {
	if f == nil {
		return fmt.Errorf("source config: source %s is nil", name)
	}
	if f.Type == "" {
		return fmt.Errorf("source config: source %s must specify type", name)
	}
	if _, ok := lookupFetcherBuilder(f.Type); !ok {
		return fmt.Errorf("source config: source %s has unsupported type %q", name, f.Type)
	}
	if f.URL == "" {
		return fmt.Errorf("source config: source %s must specify url", name)
	}
	if f.MaxRetries < 0 {
		return fmt.Errorf("source config: source %s max_retries must be >= 0", name)
	}
	return nil
}

// BuildFetchers instantiates every configured fetcher, keyed by source name.
func (c *Config) BuildFetchers() (map[string]Fetcher, error) {
	result := make(map[string]Fetcher, len(c.Sources))
	for name, srcCfg := range c.Sources {
		builder, ok := lookupFetcherBuilder(srcCfg.Type)
		if !ok {
			return nil, fmt.Errorf("source %s: unsupported type %q", name, srcCfg.Type)
		}
		fetcher, err := builder(name, srcCfg)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", name, err)
		}
		result[name] = fetcher
	}
	return result, nil
}
