package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"argstats-api/internal/config"
)

// Signals are the facts a trigger request carries about its caller.
type Signals struct {
	HasValidToken            bool
	IsTrustedSchedulerSignal bool
}

// Authorize is the job trigger policy: a matching bearer token or the
// scheduler's own header lets the request through.
func Authorize(s Signals) bool {
	return s.HasValidToken || s.IsTrustedSchedulerSignal
}

// UnauthorizedBody is written with every 401.
type UnauthorizedBody struct {
	Error string `json:"error"`
}

const unauthorizedMessage = "No autorizado"

type CronAuthMiddleware struct {
	conf config.CronConf
}

func NewCronAuthMiddleware(c config.CronConf) *CronAuthMiddleware {
	if strings.TrimSpace(c.SchedulerHeader) == "" {
		c.SchedulerHeader = config.DefaultSchedulerHeader
	}
	return &CronAuthMiddleware{conf: c}
}

func (m *CronAuthMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !Authorize(m.Signals(r)) {
			logx.WithContext(r.Context()).Infof("cron auth: rejected %s %s", r.Method, r.URL.Path)
			httpx.WriteJsonCtx(r.Context(), w, http.StatusUnauthorized, UnauthorizedBody{Error: unauthorizedMessage})
			return
		}
		next(w, r)
	}
}

// Signals extracts the authorization facts from r.
func (m *CronAuthMiddleware) Signals(r *http.Request) Signals {
	return Signals{
		HasValidToken:            m.validToken(r.Header.Get("Authorization")),
		IsTrustedSchedulerSignal: m.schedulerSignal(r.Header.Get(m.conf.SchedulerHeader)),
	}
}

func (m *CronAuthMiddleware) validToken(header string) bool {
	// An unset secret never matches, not even an empty bearer.
	if m.conf.Secret == "" {
		return false
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(m.conf.Secret)) == 1
}

func (m *CronAuthMiddleware) schedulerSignal(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if m.conf.SchedulerHeaderValue == "" {
		return true
	}
	return value == m.conf.SchedulerHeaderValue
}
