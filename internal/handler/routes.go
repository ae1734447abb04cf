package handler

import (
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/rest"

	"argstats-api/internal/config"
	"argstats-api/internal/svc"
)

// jobRouteSlack covers the response write after the slowest job's own deadline.
const jobRouteSlack = 30 * time.Second

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{serverCtx.CronAuth},
			[]rest.Route{
				{
					Method:  http.MethodGet,
					Path:    "/cron/" + config.ReservedJobName,
					Handler: ExecutionsHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/cron/:job",
					Handler: CronJobHandler(serverCtx),
				},
			}...,
		),
		rest.WithPrefix("/api"),
		rest.WithTimeout(jobRouteTimeout(serverCtx)),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/series/:series",
				Handler: SeriesHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/health",
				Handler: HealthHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api"),
	)
}

func jobRouteTimeout(serverCtx *svc.ServiceContext) time.Duration {
	var longest time.Duration
	for _, job := range serverCtx.Jobs.All() {
		longest = max(longest, job.Timeout)
	}
	return longest + jobRouteSlack
}
