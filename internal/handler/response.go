package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"argstats-api/internal/logic"
	"argstats-api/internal/types"
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := logic.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.WithContext(r.Context()).Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	httpx.WriteJsonCtx(r.Context(), w, status, body)
}

func writeParseError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteJsonCtx(r.Context(), w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
}
