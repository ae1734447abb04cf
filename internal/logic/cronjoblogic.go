package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"argstats-api/internal/jobs"
	"argstats-api/internal/svc"
	"argstats-api/internal/types"
)

type CronJobLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCronJobLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CronJobLogic {
	return &CronJobLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// CronJob runs the named job to completion. A failed run comes back as a
// *JobFailedError holding the 500 body.
func (l *CronJobLogic) CronJob(req *types.CronJobRequest) (*types.CronSuccessResponse, error) {
	job, ok := l.svcCtx.Jobs.Get(req.Job)
	if !ok {
		return nil, ErrJobNotFound
	}
	return CronResponse(job.Run(l.ctx))
}

// CronResponse shapes a finished report as the trigger response.
func CronResponse(r *jobs.Report) (*types.CronSuccessResponse, error) {
	if !r.Success() {
		return nil, &JobFailedError{Response: types.CronFailureResponse{
			Success:       false,
			ExecutionTime: r.ExecutionTime(),
			Error:         r.Err.Error(),
			Details:       r.Summary(),
		}}
	}
	return &types.CronSuccessResponse{
		Success:           true,
		ExecutionTime:     r.ExecutionTime(),
		DataSource:        r.DataSource,
		NewRecords:        r.NewRecords(),
		UpdatedRecords:    r.UpdatedRecords(),
		DuplicatesSkipped: r.DuplicatesSkipped(),
		Summary:           r.Summary(),
		Details:           r.Details(),
	}, nil
}
