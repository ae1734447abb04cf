package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"argstats-api/internal/logic"
	"argstats-api/internal/render"
	"argstats-api/internal/svc"
	"argstats-api/internal/types"
)

func SeriesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SeriesRequest
		if err := httpx.Parse(r, &req); err != nil {
			writeParseError(w, r, err)
			return
		}

		l := logic.NewSeriesLogic(r.Context(), svcCtx)
		q, spec, err := l.Parse(&req)
		if err != nil {
			writeError(w, r, err)
			return
		}

		// Metadata has no tabular form and is always JSON.
		if q.Type == logic.QueryMetadata {
			resp, err := l.Metadata(q, spec)
			if err != nil {
				writeError(w, r, err)
			} else {
				httpx.OkJsonCtx(r.Context(), w, resp)
			}
			return
		}

		resp, err := l.Points(q, spec)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !q.CSV {
			httpx.OkJsonCtx(r.Context(), w, resp)
			return
		}
		body, err := render.SeriesCSV(spec, resp.Data)
		if err != nil {
			writeError(w, r, err)
			return
		}
		render.WriteCSV(w, render.Filename(spec.Series, q.Type), body)
	}
}
