package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"argstats-api/internal/svc"
	"argstats-api/internal/types"
	"argstats-api/pkg/reconcile"
)

const pingTimeout = 2 * time.Second

type HealthLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHealthLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HealthLogic {
	return &HealthLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Health reports liveness; ok is false when the store does not answer.
func (l *HealthLogic) Health() (resp *types.HealthResponse, ok bool) {
	resp = &types.HealthResponse{
		Status: "ok",
		Store:  "up",
		Jobs:   l.svcCtx.Jobs.Names(),
		Time:   reconcile.InstantKey(time.Now()),
	}
	ctx, cancel := context.WithTimeout(l.ctx, pingTimeout)
	defer cancel()
	if err := l.svcCtx.Store.Ping(ctx); err != nil {
		l.Errorf("health: store ping: %v", err)
		resp.Status = "degraded"
		resp.Store = "down"
		return resp, false
	}
	return resp, true
}
