package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"memoria/api/internal/auth"
	"memoria/api/internal/content"
	"memoria/api/internal/listquery"
	"memoria/api/internal/search"
)

// Uploader stores cover images. A nil uploader disables the media endpoint.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, reader io.Reader, size int64) (string, error)
}

type HTTPServer struct {
	service    *Service
	media      Uploader
	corsOrigin string
}

func NewHTTPServer(service *Service, media Uploader, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, media: media, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeData(w, r, http.StatusOK, map[string]any{"ok": true}, nil)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]any{"database": map[string]any{"status": "ok"}}
		statusCode := http.StatusOK
		if err := s.service.Ping(ctx); err != nil {
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeData(w, r, statusCode, map[string]any{"ready": statusCode == http.StatusOK, "checks": checks}, nil)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		s.handleRefresh(w, r)
		return
	}
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeData(w, r, http.StatusOK, map[string]any{"ok": true}, nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		writeData(w, r, http.StatusOK, session, nil)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/admin/sitemap" {
		payload, err := s.service.Sitemap(r.Context())
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, payload, nil)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/admin/search" {
		q := search.Query{
			Text:         strings.TrimSpace(r.URL.Query().Get("q")),
			FilterModule: strings.TrimSpace(r.URL.Query().Get("module")),
			Limit:        intQuery(r, "limit", 20),
			Offset:       intQuery(r, "offset", 0),
		}
		writeData(w, r, http.StatusOK, s.service.Search(q), nil)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/admin/media" {
		if s.media == nil {
			writeError(w, r, http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage not configured", nil)
			return
		}
		s.handleMediaUpload(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "admin" {
		module, err := content.ParseModule(parts[2])
		if err != nil {
			writeError(w, r, http.StatusNotFound, "UNKNOWN_MODULE", err.Error(), nil)
			return
		}
		s.handleModule(w, r, session, module, parts[3:])
		return
	}

	writeError(w, r, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleModule(w http.ResponseWriter, r *http.Request, session Session, module content.Module, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		s.handleList(w, r, module)

	case len(rest) == 0 && r.Method == http.MethodPost:
		var input ContentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.CreateContent(r.Context(), module, input, session.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusCreated, item, nil)

	case len(rest) == 1 && rest[0] == "status" && r.Method == http.MethodPatch:
		var body struct {
			IDs    []string `json:"ids"`
			Status string   `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.BulkSetStatus(r.Context(), module, body.IDs, body.Status, session.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, batchPayload(result), nil)

	case len(rest) == 1 && r.Method == http.MethodGet:
		item, itemRoutes, err := s.service.GetContent(r.Context(), module, rest[0])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, map[string]any{"item": item, "routes": itemRoutes}, nil)

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var input ContentInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.UpdateContent(r.Context(), module, rest[0], input, session.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, item, nil)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteContent(r.Context(), module, rest[0]); err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, map[string]any{"ok": true}, nil)

	case len(rest) == 2 && rest[1] == "status" && r.Method == http.MethodPatch:
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.SetStatus(r.Context(), module, rest[0], body.Status, session.Name)
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, item, nil)

	case len(rest) == 2 && rest[1] == "routes" && r.Method == http.MethodGet:
		itemRoutes, err := s.service.ItemRoutes(r.Context(), module, rest[0])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, itemRoutes, nil)

	case len(rest) == 2 && rest[1] == "history" && r.Method == http.MethodGet:
		revisions, err := s.service.ItemHistory(module, rest[0])
		if err != nil {
			s.writeMappedError(w, r, err)
			return
		}
		writeData(w, r, http.StatusOK, revisions, nil)

	default:
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request, module content.Module) {
	query := r.URL.Query()
	params := listquery.Params{
		Page:       intQuery(r, "page", listquery.DefaultPage),
		Limit:      intQuery(r, "limit", listquery.DefaultLimit),
		Query:      strings.TrimSpace(query.Get("q")),
		Status:     strings.TrimSpace(query.Get("status")),
		Tag:        strings.TrimSpace(query.Get("tag")),
		PersonSlug: strings.TrimSpace(query.Get("personSlug")),
		FundKey:    strings.TrimSpace(query.Get("fundKey")),
		Slug:       strings.TrimSpace(query.Get("slug")),
		Sort:       strings.TrimSpace(query.Get("sort")),
	}
	if raw := strings.TrimSpace(query.Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "featured must be a boolean", nil)
			return
		}
		params.Featured = &featured
	}
	if params.Status != "" {
		if _, err := content.ParseStatus(params.Status); err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}

	items, meta, err := s.service.ListContent(r.Context(), module, params)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, items, &meta)
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, session, nil)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, session, nil)
}

const maxUploadBytes = 10 << 20

func (s *HTTPServer) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UPLOAD", "Expected a multipart form with a file field", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UPLOAD", "Missing file field", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := s.media.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "UPLOAD_FAILED", "Could not store the file", nil)
		return
	}
	writeData(w, r, http.StatusCreated, map[string]any{"url": url}, nil)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

func batchPayload(result content.BatchResult) map[string]any {
	failed := make([]map[string]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, map[string]string{"id": f.ID, "error": f.Err.Error()})
	}
	succeeded := result.Succeeded
	if succeeded == nil {
		succeeded = []string{}
	}
	return map[string]any{
		"succeeded": succeeded,
		"failed":    failed,
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

// writeData wraps payloads in the success envelope.
func writeData(w http.ResponseWriter, r *http.Request, status int, data any, meta *listquery.Meta) {
	response := map[string]any{
		"success": status < 400,
		"data":    data,
	}
	if meta != nil {
		response["meta"] = meta
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// writeError emits the structured error envelope, requestId included so
// clients can quote it back.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	body := map[string]any{
		"status":    status,
		"code":      code,
		"message":   message,
		"requestId": requestIDFrom(r.Context()),
	}
	if details != nil {
		body["details"] = details
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   body,
	})
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	writeError(w, r, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func intQuery(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
