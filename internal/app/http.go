package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"workhub/api/internal/auth"
	"workhub/api/internal/authz"
	"workhub/api/internal/membership"
	"workhub/api/internal/paging"
	"workhub/api/internal/store"
	"workhub/api/internal/telemetry"
	"workhub/api/internal/util"
)

const syncTokenHeader = "X-Workhub-Sync-Token"

type HTTPServer struct {
	service    *Service
	resolver   membership.Resolver
	corsOrigin string
	sync       *auth.SyncVerifier
}

func NewHTTPServer(service *Service, resolver membership.Resolver, corsOrigin, syncToken string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		resolver:   resolver,
		corsOrigin: corsOrigin,
		sync:       auth.NewSyncVerifier(syncToken),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.withMiddleware)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/api/ready", s.handleReady)

	r.Route("/api/internal/memberships", func(r chi.Router) {
		r.Use(s.requireSyncToken)
		r.Get("/{userId}", s.handleGetMembership)
		r.Put("/{userId}", s.handlePutMembership)
		r.Delete("/{userId}", s.handleDeleteMembership)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withMembership)
		r.Route("/api/workitems", workItemHandlers{service: s.service}.routes("comments"))
		r.Route("/api/discussions", workItemHandlers{service: s.service.Scoped(store.WorkItemTypeDiscussion)}.routes("responses"))
	})

	return r
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ready, checks := s.service.Readiness(ctx)
	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, map[string]any{
		"ok":     ready,
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) requireSyncToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.sync.Verify(r.Header.Get(syncTokenHeader)); err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid sync token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handleGetMembership(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	entry, err := s.service.GetMembership(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handlePutMembership(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var input MembershipInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	entry, err := s.service.PutMembership(r.Context(), userID, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handleDeleteMembership(w http.ResponseWriter, r *http.Request) {
	userID, err := parseID(r, "userId")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.service.DeleteMembership(r.Context(), userID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membershipKey struct{}

// withMembership resolves the caller from the UserId, GroupId and OrganizationId headers.
func (s *HTTPServer) withMembership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := s.resolver.Resolve(r.Context(), r.Header)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if info := requestInfoFrom(r.Context()); info != nil {
			info.userID = m.UserID
		}
		ctx := context.WithValue(r.Context(), membershipKey{}, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func membershipFrom(ctx context.Context) authz.Membership {
	m, _ := ctx.Value(membershipKey{}).(authz.Membership)
	return m
}

type requestIDKey struct{}

// requestInfo is filled in by inner handlers and read by the access log.
type requestInfo struct {
	userID int64
}

type requestInfoKey struct{}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*requestInfo)
	return info
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	tracer := telemetry.Tracer()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewRequestID()
		}
		info := &requestInfo{}
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx = context.WithValue(ctx, requestIDKey{}, requestID)
		ctx = context.WithValue(ctx, requestInfoKey{}, info)
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		if r.Method == http.MethodOptions {
			writer.WriteHeader(http.StatusNoContent)
		} else {
			next.ServeHTTP(writer, r)
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
			span.SetName(r.Method + " " + route)
		}
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", writer.status),
			attribute.String("request.id", requestID),
			attribute.Int64("workhub.user_id", info.userID),
		)
		if writer.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(writer.status))
		}

		zap.L().Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
			zap.Int64("user_id", info.userID),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, UserId, GroupId, OrganizationId, "+syncTokenHeader)
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

// writeDomainError maps err and writes it. Only server errors are logged.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		trace.SpanFromContext(r.Context()).RecordError(err)
	}
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, validationError(name, name+" must be a positive integer")
	}
	return id, nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var headerErr *membership.HeaderError
	if errors.As(err, &headerErr) {
		return http.StatusBadRequest, "INVALID_MEMBERSHIP", headerErr.Error(), map[string]any{"header": headerErr.Header}
	}
	if errors.Is(err, membership.ErrUnauthenticated) {
		domainErr = unauthenticated()
		return domainErr.Status, domainErr.Code, domainErr.Message, nil
	}
	var paramErr *paging.ParamError
	if errors.As(err, &paramErr) {
		return http.StatusBadRequest, "VALIDATION_ERROR", paramErr.Error(), map[string]any{"field": paramErr.Param}
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
