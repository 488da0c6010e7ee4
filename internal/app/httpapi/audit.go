package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/higher-endeavors/endeavors/internal/app/domain/audit"
	"github.com/higher-endeavors/endeavors/internal/auth"
	"github.com/higher-endeavors/endeavors/internal/httputil"
	"github.com/higher-endeavors/endeavors/pkg/logger"
)

// auditLog keeps the most recent mutating requests in memory and forwards
// each entry to a durable sink.
type auditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
	max     int
	sink    auditSink
	log     *logger.Logger
}

type auditSink interface {
	AppendAudit(ctx context.Context, e audit.Entry) error
	ListAudit(ctx context.Context, limit int) ([]audit.Entry, error)
}

func newAuditLog(max int, sink auditSink, log *logger.Logger) *auditLog {
	if max <= 0 {
		max = 200
	}
	return &auditLog{max: max, sink: sink, log: log}
}

func (l *auditLog) add(ctx context.Context, entry audit.Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	if l.sink == nil {
		return
	}
	// The request may already be cancelled; the write should still land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := l.sink.AppendAudit(ctx, entry); err != nil {
		l.log.WithContext(ctx).WithError(err).Warn("audit entry not persisted")
	}
}

func (l *auditLog) list() []audit.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]audit.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// listLimit returns up to limit entries, newest first. The sink is
// authoritative when present.
func (l *auditLog) listLimit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 || limit > l.max {
		limit = l.max
	}
	if l.sink != nil {
		return l.sink.ListAudit(ctx, limit)
	}
	all := l.list()
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]audit.Entry, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// middleware records every mutating request after it is served.
func (l *auditLog) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := audit.Entry{
			Time:      time.Now().UTC(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Status:    rec.status,
			RequestID: logger.GetRequestID(r.Context()),
			IP:        httputil.ClientIP(r),
			UserAgent: r.UserAgent(),
		}
		if s := auth.SessionFromContext(r.Context()); s != nil {
			uid := s.UserID
			entry.UserID = &uid
			entry.Role = s.Role
		}
		l.add(r.Context(), entry)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
