package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// =============================================================================
// IDENTITY CONTEXT
// =============================================================================

const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderActorID        = "X-Actor-ID"
)

type ctxKey string

const (
	organizationKey ctxKey = "organization_id"
	actorKey        ctxKey = "actor_id"
)

func WithIdentity(ctx context.Context, organizationID, actorID string) context.Context {
	ctx = context.WithValue(ctx, organizationKey, organizationID)
	return context.WithValue(ctx, actorKey, actorID)
}

func OrganizationID(ctx context.Context) string {
	if value, ok := ctx.Value(organizationKey).(string); ok {
		return value
	}
	return ""
}

func ActorID(ctx context.Context) string {
	if value, ok := ctx.Value(actorKey).(string); ok {
		return value
	}
	return ""
}

// Identity copies the caller's organization and actor headers into the
// request context. A missing organization falls back to defaultOrg.
func Identity(defaultOrg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			org := strings.TrimSpace(r.Header.Get(HeaderOrganizationID))
			if org == "" {
				org = defaultOrg
			}
			actor := strings.TrimSpace(r.Header.Get(HeaderActorID))
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), org, actor)))
		})
	}
}

// =============================================================================
// ACCESS LOG
// =============================================================================

// RequestLogger writes one structured line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}
