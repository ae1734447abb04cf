package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"argstats-api/internal/svc"
	"argstats-api/internal/types"
)

const maxExecutions = 100

type ExecutionsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExecutionsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExecutionsLogic {
	return &ExecutionsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ExecutionsLogic) Executions(req *types.ExecutionsRequest) (*types.ExecutionsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, maxExecutions)

	execs, err := l.svcCtx.Repos.Audit.Recent(l.ctx, limit)
	if err != nil {
		l.Errorf("list executions: %v", err)
		return nil, err
	}
	resp := &types.ExecutionsResponse{Executions: make([]types.Execution, 0, len(execs))}
	for _, e := range execs {
		out := types.Execution{
			Id:            e.Id,
			ExecutionTime: e.ExecutionTime,
			Status:        e.Status,
			Results:       make([]types.TaskResult, 0, len(e.Results)),
		}
		for _, t := range e.Results {
			out.Results = append(out.Results, types.TaskResult(t))
		}
		resp.Executions = append(resp.Executions, out)
	}
	return resp, nil
}
