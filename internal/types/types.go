package types

type CronJobRequest struct {
	Job string `path:"job"`
}

type CronSuccessResponse struct {
	Success           bool   `json:"success"`
	ExecutionTime     string `json:"execution_time"`
	DataSource        string `json:"data_source"`
	NewRecords        int    `json:"new_records"`
	UpdatedRecords    int    `json:"updated_records"`
	DuplicatesSkipped int    `json:"duplicates_skipped"`
	Summary           string `json:"summary"`
	Details           any    `json:"details"`
}

type CronFailureResponse struct {
	Success       bool   `json:"success"`
	ExecutionTime string `json:"execution_time"`
	Error         string `json:"error"`
	Details       string `json:"details"`
}

type ExecutionsRequest struct {
	Limit int `form:"limit,default=20"`
}

type TaskResult struct {
	TaskId           string `json:"taskId"`
	DataSource       string `json:"dataSource"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	RecordsProcessed int    `json:"recordsProcessed"`
	Status           string `json:"status"`
	Details          string `json:"details"`
}

type Execution struct {
	Id            string       `json:"id"`
	ExecutionTime string       `json:"execution_time"`
	Status        string       `json:"status"`
	Results       []TaskResult `json:"results"`
}

type ExecutionsResponse struct {
	Executions []Execution `json:"executions"`
}

type SeriesRequest struct {
	Series            string `path:"series"`
	Type              string `form:"type,default=latest"`
	StartDate         string `form:"start_date,optional"`
	EndDate           string `form:"end_date,optional"`
	Date              string `form:"date,optional"`
	Limit             int    `form:"limit,default=100"`
	Page              int    `form:"page,default=1"`
	Order             string `form:"order,default=desc"`
	IncludeVariations bool   `form:"include_variations,optional"`
	Format            string `form:"format,default=json"`
	// Filters on dimension columns; blank means all.
	DollarType string `form:"dollar_type,optional"`
	Region     string `form:"region,optional"`
	Gender     string `form:"gender,optional"`
}

// SeriesPoint is one observation. Values are decimal strings, null when
// the source did not publish them.
type SeriesPoint struct {
	Date       string             `json:"date"`
	Dimensions map[string]string  `json:"dimensions,omitempty"`
	Values     map[string]*string `json:"values"`
	Variations map[string]*string `json:"variations,omitempty"`
	SourceFile string             `json:"source_file,omitempty"`
	DataType   string             `json:"data_type,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type SeriesResponse struct {
	Series     string        `json:"series"`
	Type       string        `json:"type"`
	Data       []SeriesPoint `json:"data"`
	Pagination *Pagination   `json:"pagination,omitempty"`
}

type SeriesMetadataResponse struct {
	Series      string   `json:"series"`
	Dimensions  []string `json:"dimensions"`
	Values      []string `json:"values"`
	Count       int      `json:"count"`
	FirstDate   string   `json:"first_date,omitempty"`
	LastDate    string   `json:"last_date,omitempty"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string   `json:"status"`
	Store  string   `json:"store"`
	Jobs   []string `json:"jobs"`
	Time   string   `json:"time"`
}
