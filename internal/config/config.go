package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/rest"

	"argstats-api/internal/model"
	"argstats-api/internal/persistence/series"
	"argstats-api/pkg/confkit"
	sourcepkg "argstats-api/pkg/source"
	// Register fetcher types so source configs validate on load.
	_ "argstats-api/pkg/source/httpjson"
	_ "argstats-api/pkg/source/sheet"
)

// DefaultSchedulerHeader is the header the hosting platform's cron sets on
// the requests it originates.
const DefaultSchedulerHeader = "x-vercel-cron"

// ReservedJobName is served by /api/cron/executions and cannot name a job.
const ReservedJobName = "executions"

var (
	DefaultTTL  = CacheTTL{Short: 10, Medium: 60, Long: 300}
	DefaultSync = SyncConf{LookupBatchSize: 100, LookupDelay: 100 * time.Millisecond}
)

type CacheTTL struct {
	Short  int `json:",default=10"` // seconds
	Medium int `json:",default=60"`
	Long   int `json:",default=300"`
}

// CronConf authorizes job triggers.
type CronConf struct {
	// Secret is matched against "Authorization: Bearer <secret>".
	Secret          string `json:",optional"`
	SchedulerHeader string `json:",default=x-vercel-cron"`
	// SchedulerHeaderValue, when set, must match exactly; otherwise any
	// non-empty value counts as the scheduler signal.
	SchedulerHeaderValue string `json:",optional"`
}

// SyncConf tunes the cross-batch existence check.
type SyncConf struct {
	LookupBatchSize int           `json:",default=100"`
	LookupDelay     time.Duration `json:",default=100ms"`
}

// JobConf declares one ingestion job.
type JobConf struct {
	Name       string
	Series     string
	Source     string
	DataSource string        `json:",optional"` // label in responses and audit, defaults to Source
	Interval   time.Duration `json:",default=1h"`
	Timeout    time.Duration `json:",default=5m"`
	Disabled   bool          `json:",optional"`
}

type Config struct {
	rest.RestConf
	// Env indicates the running environment: test | dev | prod
	Env   string          `json:",default=test"`
	Store series.Conf     `json:",optional"`
	Redis redis.RedisConf `json:",optional"`
	TTL   CacheTTL
	Cron  CronConf
	Sync  SyncConf
	Jobs  []JobConf       `json:",optional"`

	Sources confkit.Section[sourcepkg.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

func (c *Config) IsTestEnv() bool {
	return c.Env == "test" || c.Env == ""
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	cfg, err := confkit.LoadFile[Config](absPath, true)
	if err != nil {
		return nil, err
	}

	cfg.mainPath = absPath
	cfg.baseDir = confkit.BaseDir(absPath)
	cfg.applySectionDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.hydrateSections(); err != nil {
		return nil, err
	}
	if err := cfg.validateJobs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applySectionDefaults fills sections left out of the file. Explicit
// negative values are kept so Validate can reject them.
func (c *Config) applySectionDefaults() {
	if c.TTL.Short == 0 {
		c.TTL.Short = DefaultTTL.Short
	}
	if c.TTL.Medium == 0 {
		c.TTL.Medium = DefaultTTL.Medium
	}
	if c.TTL.Long == 0 {
		c.TTL.Long = DefaultTTL.Long
	}
	if strings.TrimSpace(c.Cron.SchedulerHeader) == "" {
		c.Cron.SchedulerHeader = DefaultSchedulerHeader
	}
	if c.Sync.LookupBatchSize == 0 {
		c.Sync.LookupBatchSize = DefaultSync.LookupBatchSize
	}
	if c.Sync.LookupDelay == 0 {
		c.Sync.LookupDelay = DefaultSync.LookupDelay
	}
}

// Validate fails fast on configuration the process cannot serve without.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "test", "dev", "prod":
		if strings.TrimSpace(c.Env) == "" {
			c.Env = "test"
		}
	default:
		return errors.New("config: env must be one of test|dev|prod")
	}
	if _, err := model.ParseDriver(c.Store.Driver); err != nil {
		return fmt.Errorf("config: store.driver: %w", err)
	}
	if strings.TrimSpace(c.Store.DSN) == "" {
		return errors.New("config: store.dsn is required")
	}
	if c.Sync.LookupBatchSize < 0 {
		return errors.New("config: sync.lookupBatchSize must not be negative")
	}
	if c.Sync.LookupDelay < 0 {
		return errors.New("config: sync.lookupDelay must not be negative")
	}
	return c.validateTTL()
}

func (c *Config) validateTTL() error {
	if c.TTL.Short <= 0 {
		return errors.New("config: ttl.short must be positive")
	}
	if c.TTL.Medium <= 0 {
		return errors.New("config: ttl.medium must be positive")
	}
	if c.TTL.Long <= 0 {
		return errors.New("config: ttl.long must be positive")
	}
	return nil
}

// validateJobs checks job declarations against the series catalog and the
// hydrated source config.
func (c *Config) validateJobs() error {
	seen := make(map[string]struct{}, len(c.Jobs))
	for i, job := range c.Jobs {
		name := strings.TrimSpace(job.Name)
		if name == "" {
			return fmt.Errorf("config: jobs[%d].name is required", i)
		}
		if name == ReservedJobName {
			return fmt.Errorf("config: jobs[%d]: name %q is reserved for the run history route", i, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("config: duplicate job %q", name)
		}
		seen[name] = struct{}{}
		if _, ok := model.LookupSeries(job.Series); !ok {
			return fmt.Errorf("config: job %s: unknown series %q", name, job.Series)
		}
		if c.Sources.Value == nil || c.Sources.Value.Sources[job.Source] == nil {
			return fmt.Errorf("config: job %s: source %q is not defined", name, job.Source)
		}
		if job.Interval <= 0 || job.Timeout <= 0 {
			return fmt.Errorf("config: job %s: interval and timeout must be positive", name)
		}
	}
	return nil
}

func (c *Config) hydrateSections() error {
	if err := c.Sources.Hydrate(c.baseDir, sourcepkg.LoadConfig); err != nil {
		return fmt.Errorf("load sources config: %w", err)
	}
	return nil
}

func (c *Config) MainPath() string {
	return c.mainPath
}

func (c *Config) BaseDir() string {
	return c.baseDir
}
