package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"argstats-api/internal/config"
	"argstats-api/pkg/confkit"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
// Secrets and DSNs are reported by presence only.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	enabled := 0
	for _, job := range cfg.Jobs {
		if !job.Disabled {
			enabled++
		}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Store: %s (%s)", orUnset(cfg.Store.Driver), presence(strings.TrimSpace(cfg.Store.DSN) != "")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Cron secret: %s", presence(cfg.Cron.Secret != "")),
		fmt.Sprintf("Scheduler header: %s", orUnset(cfg.Cron.SchedulerHeader)),
		fmt.Sprintf("Existence check: batches of %d, %s apart", cfg.Sync.LookupBatchSize, cfg.Sync.LookupDelay),
		fmt.Sprintf("Jobs: %d enabled of %d", enabled, len(cfg.Jobs)),
		sectionLine("Sources config", cfg.Sources),
	}

	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orUnset(s string) string {
	if strings.TrimSpace(s) == "" {
		return "<unset>"
	}
	return s
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
