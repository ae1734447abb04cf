package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"argstats-api/internal/logic"
	"argstats-api/internal/svc"
)

func HealthHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, ok := logic.NewHealthLogic(r.Context(), svcCtx).Health()
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJsonCtx(r.Context(), w, status, resp)
	}
}
