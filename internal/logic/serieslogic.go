package logic

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"argstats-api/internal/model"
	"argstats-api/internal/persistence/series"
	"argstats-api/internal/repo"
	"argstats-api/internal/svc"
	"argstats-api/internal/types"
	"argstats-api/pkg/reconcile"
)

// Query types accepted by the series endpoint.
const (
	QueryLatest       = "latest"
	QueryHistorical   = "historical"
	QueryRange        = "range"
	QuerySpecificDate = "specific-date"
	QueryMetadata     = "metadata"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	dayLayout    = "2006-01-02"
)

// SeriesQuery is a validated series request.
type SeriesQuery struct {
	Series     string
	Type       string
	Start, End time.Time
	Limit      int
	Page       int
	Desc       bool
	Variations bool
	CSV        bool
	Filters    map[string]string
}

// ParseSeriesRequest validates req against the catalog entry of its series.
func ParseSeriesRequest(req *types.SeriesRequest, spec model.SeriesTable) (SeriesQuery, error) {
	q := SeriesQuery{
		Series:     spec.Series,
		Type:       strings.ToLower(strings.TrimSpace(req.Type)),
		Limit:      req.Limit,
		Page:       max(req.Page, 1),
		Variations: req.IncludeVariations,
	}
	if q.Type == "" {
		q.Type = QueryLatest
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	q.Limit = min(q.Limit, maxLimit)

	switch strings.ToLower(strings.TrimSpace(req.Order)) {
	case "", "desc":
		q.Desc = true
	case "asc":
	default:
		return q, badRequest("order must be asc or desc")
	}
	switch strings.ToLower(strings.TrimSpace(req.Format)) {
	case "", "json":
	case "csv":
		q.CSV = true
	default:
		return q, badRequest("format must be json or csv")
	}

	var err error
	if q.Start, err = parseDay("start_date", req.StartDate); err != nil {
		return q, err
	}
	if q.End, err = parseDay("end_date", req.EndDate); err != nil {
		return q, err
	}

	switch q.Type {
	case QueryLatest, QueryHistorical, QueryMetadata:
	case QueryRange:
		if q.Start.IsZero() || q.End.IsZero() {
			return q, badRequest("range queries need start_date and end_date")
		}
	case QuerySpecificDate:
		day, err := parseDay("date", firstSet(req.Date, req.StartDate))
		if err != nil {
			return q, err
		}
		if day.IsZero() {
			return q, badRequest("specific-date queries need date")
		}
		q.Start, q.End = day, day
	default:
		return q, badRequest("type must be one of latest|historical|range|specific-date|metadata")
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, badRequest("end_date is before start_date")
	}

	for dim, v := range map[string]string{
		"dollar_type": strings.ToUpper(strings.TrimSpace(req.DollarType)),
		"region":      strings.ToUpper(strings.TrimSpace(req.Region)),
		"gender":      strings.ToLower(strings.TrimSpace(req.Gender)),
	} {
		if v == "" {
			continue
		}
		if !hasDimension(spec, dim) {
			return q, badRequest("series %s cannot be filtered by %s", spec.Series, dim)
		}
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[dim] = v
	}
	return q, nil
}

type SeriesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSeriesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SeriesLogic {
	return &SeriesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Parse resolves the series and validates the request.
func (l *SeriesLogic) Parse(req *types.SeriesRequest) (SeriesQuery, model.SeriesTable, error) {
	spec, err := l.svcCtx.Repos.Series.Spec(req.Series)
	if err != nil {
		return SeriesQuery{}, model.SeriesTable{}, err
	}
	q, err := ParseSeriesRequest(req, spec)
	return q, spec, err
}

// Metadata serves type=metadata.
func (l *SeriesLogic) Metadata(q SeriesQuery, spec model.SeriesTable) (*types.SeriesMetadataResponse, error) {
	meta, err := l.svcCtx.Repos.Series.Metadata(l.ctx, q.Series)
	if err != nil {
		l.Errorf("series %s metadata: %v", q.Series, err)
		return nil, err
	}
	resp := &types.SeriesMetadataResponse{
		Series:     spec.Series,
		Dimensions: spec.Dimensions,
		Values:     spec.Values,
		Count:      meta.Count,
	}
	if meta.Count > 0 {
		resp.FirstDate = formatDate(meta.First, spec)
		resp.LastDate = formatDate(meta.Last, spec)
	}
	if !meta.LastUpdated.IsZero() {
		resp.LastUpdated = reconcile.InstantKey(meta.LastUpdated)
	}
	return resp, nil
}

// Points serves every type except metadata.
func (l *SeriesLogic) Points(q SeriesQuery, spec model.SeriesTable) (*types.SeriesResponse, error) {
	resp := &types.SeriesResponse{Series: spec.Series, Type: q.Type}

	var points []model.Point
	if q.Type == QueryLatest {
		latest, err := l.svcCtx.Repos.Series.Latest(l.ctx, q.Series, q.Filters)
		if err != nil {
			l.Errorf("series %s latest: %v", q.Series, err)
			return nil, err
		}
		points = latest
	} else {
		page, err := l.svcCtx.Repos.Series.Query(l.ctx, q.Series, series.Query{
			Start:   q.Start,
			End:     q.End,
			Filters: q.Filters,
			Limit:   q.Limit,
			Offset:  (q.Page - 1) * q.Limit,
			Desc:    q.Desc,
		})
		if err != nil {
			l.Errorf("series %s %s: %v", q.Series, q.Type, err)
			return nil, err
		}
		points = page.Points
		resp.Pagination = &types.Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      page.Total,
			TotalPages: (page.Total + q.Limit - 1) / q.Limit,
		}
	}

	resp.Data = PointsToTypes(points, spec, q.Variations)
	return resp, nil
}

// PointsToTypes renders points for the wire, optionally with variations.
func PointsToTypes(points []model.Point, spec model.SeriesTable, withVariations bool) []types.SeriesPoint {
	var variations []map[string]decimal.NullDecimal
	if withVariations {
		variations = repo.Variations(points, spec)
	}
	out := make([]types.SeriesPoint, 0, len(points))
	for i, p := range points {
		sp := types.SeriesPoint{
			Date:       formatDate(p.Date, spec),
			Dimensions: p.Dimensions,
			Values:     decimalStrings(p.Values, spec.Values),
			SourceFile: p.SourceFile,
			DataType:   p.DataType,
		}
		if variations != nil {
			sp.Variations = decimalStrings(variations[i], spec.Values)
		}
		out = append(out, sp)
	}
	return out
}

func decimalStrings(values map[string]decimal.NullDecimal, fields []string) map[string]*string {
	out := make(map[string]*string, len(fields))
	for _, f := range fields {
		v, ok := values[f]
		if !ok || !v.Valid {
			out[f] = nil
			continue
		}
		s := v.Decimal.String()
		out[f] = &s
	}
	return out
}

func formatDate(t time.Time, spec model.SeriesTable) string {
	if spec.DateKind == model.DateKindInstant {
		return reconcile.InstantKey(t)
	}
	return reconcile.DateKey(t)
}

func parseDay(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, badRequest("%s must be YYYY-MM-DD", field)
	}
	return t, nil
}

func hasDimension(spec model.SeriesTable, dim string) bool {
	for _, d := range spec.Dimensions {
		if d == dim {
			return true
		}
	}
	return false
}

func firstSet(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
