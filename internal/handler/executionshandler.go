package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"argstats-api/internal/logic"
	"argstats-api/internal/svc"
	"argstats-api/internal/types"
)

func ExecutionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExecutionsRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeParseError(w, r, err)
			return
		}

		l := logic.NewExecutionsLogic(r.Context(), svcCtx)
		resp, err := l.Executions(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
