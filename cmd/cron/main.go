package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"argstats-api/internal/cli"
	"argstats-api/internal/config"
	"argstats-api/internal/jobs"
	"argstats-api/internal/svc"
	"argstats-api/pkg/logkit"
)

const shutdownTimeout = 30 * time.Second // Grace period for in-flight runs

var configFile = flag.String("f", "etc/argstats.yaml", "the config file")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting in-process scheduler...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config: %v", err)
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	svcCtx, err := svc.NewServiceContext(*appCfg)
	if err != nil {
		log.Fatalf("[main] Failed to build service context: %v", err)
	}
	defer svcCtx.Close()

	all := svcCtx.Jobs.All()
	if len(all) == 0 {
		log.Fatalf("[main] No enabled jobs in %s", *configFile)
	}
	for _, job := range all {
		log.Printf("  - Job %s: series=%s source=%s every %s (timeout %s)",
			job.Name, job.Series, job.DataSource, job.Interval, job.Timeout)
	}

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := jobs.NewScheduler(all, logkit.New("scheduler"))
	scheduler.Start(ctx)
	log.Println("[main] Scheduler started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping jobs...")

	if scheduler.Wait(shutdownTimeout) {
		log.Println("[main] All jobs stopped cleanly")
	} else {
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}
	log.Println("[main] Scheduler stopped")
}
