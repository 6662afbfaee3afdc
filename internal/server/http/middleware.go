package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/policy"
	"github.com/and161185/noteshub/internal/service"
)

type authKey struct{}

// authResult is the outcome of the single per-request authentication.
type authResult struct {
	principal *model.Principal
	err       error
}

// principalFrom returns the principal stored by authenticate, or nil.
func principalFrom(ctx context.Context) *model.Principal {
	res, _ := ctx.Value(authKey{}).(authResult)
	return res.principal
}

// bearerToken extracts the credential from the Authorization header.
// A header with another scheme is reported as a malformed token.
func bearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", nil
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", fmt.Errorf("%w: %w: expected bearer scheme", errs.ErrTokenInvalid, errs.ErrTokenMalformed)
	}
	return strings.TrimSpace(tok), nil
}

// authenticate resolves the caller once and stores the outcome in the request context.
// It never rejects by itself; requirePrincipal decides for protected routes.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var res authResult
		tok, err := bearerToken(r)
		if err != nil {
			res.err = err
		} else {
			res.principal, res.err = s.authn.Authenticate(r.Context(), tok)
		}
		s.metrics.AuthOutcomes.WithLabelValues(service.Outcome(res.principal, res.err)).Inc()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authKey{}, res)))
	})
}

func (s *Server) requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, _ := r.Context().Value(authKey{}).(authResult)
		switch {
		case res.err != nil:
			s.writeError(w, r, res.err, false)
		case res.principal == nil:
			s.writeError(w, r, errs.ErrTokenInvalid, false)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !policy.CanAccessAdminRoute(principalFrom(r.Context())) {
			s.writeError(w, r, errs.ErrForbidden, false)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument logs one line per request and records the latency histogram.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		dur := time.Since(start)
		s.metrics.HTTPRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(dur.Seconds())
		s.log.Info("http",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("dur", dur),
			zap.String("remote", r.RemoteAddr),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("panic",
					zap.Any("reason", rec),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", r.URL.Path),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
