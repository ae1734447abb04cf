package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"argstats-api/internal/logic"
	"argstats-api/internal/svc"
	"argstats-api/internal/types"
)

func CronJobHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CronJobRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeParseError(w, r, err)
			return
		}

		l := logic.NewCronJobLogic(r.Context(), svcCtx)
		resp, err := l.CronJob(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
