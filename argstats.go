package main

import (
	"flag"
	"fmt"

	"github.com/zeromicro/go-zero/rest"

	"argstats-api/internal/cli"
	"argstats-api/internal/config"
	"argstats-api/internal/handler"
	"argstats-api/internal/svc"
)

var configFile = flag.String("f", "etc/argstats.yaml", "the config file")

func main() {
	flag.Parse()

	cfg := config.MustLoad(*configFile)
	cli.LogConfigSummary(cfg)

	server := rest.MustNewServer(cfg.RestConf)
	defer server.Stop()

	ctx := svc.MustNewServiceContext(*cfg)
	defer ctx.Close()
	handler.RegisterHandlers(server, ctx)

	fmt.Printf("Starting server at %s:%d...\n", cfg.Host, cfg.Port)
	server.Start()
}
