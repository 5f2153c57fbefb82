package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"memoria/api/internal/content"
	"memoria/api/internal/listquery"
)

func jsonHandler(t *testing.T, status int, body any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestListDecodesEnvelopeAndMeta(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonHandler(t, http.StatusOK, map[string]any{
			"success": true,
			"data": []map[string]any{
				{"id": "doc_1", "module": "documentos", "title": "Carta", "slug": "carta", "status": "published"},
			},
			"meta": map[string]any{"page": 2, "limit": 10, "total": 35},
		})(w, r)
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	page, err := c.List(context.Background(), content.ModuleDocumentos, listquery.Params{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotQuery != "limit=10&page=2" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(page.Items) != 1 || page.Items[0].Slug != "carta" {
		t.Fatalf("items = %+v", page.Items)
	}
	// totalPages/hasNext/hasPrev are recomputed locally
	if page.Meta.TotalPages != 4 || !page.Meta.HasNext || !page.Meta.HasPrev {
		t.Fatalf("meta = %+v", page.Meta)
	}
}

func TestListDefaultsMissingMeta(t *testing.T) {
	ts := httptest.NewServer(jsonHandler(t, http.StatusOK, map[string]any{
		"success": true,
		"data":    []map[string]any{},
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	page, err := c.List(context.Background(), content.ModuleDocumentos, listquery.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := listquery.Meta{Page: 1, Limit: 20, Total: 0, TotalPages: 1}
	if page.Meta != want {
		t.Fatalf("meta = %+v, want %+v", page.Meta, want)
	}
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	ts := httptest.NewServer(jsonHandler(t, http.StatusConflict, map[string]any{
		"success": false,
		"error": map[string]any{
			"status":    409,
			"code":      "SLUG_TAKEN",
			"message":   "Slug already in use",
			"requestId": "req-42",
			"details":   map[string]string{"slug": "already in use"},
		},
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	_, err := c.Create(context.Background(), content.ModuleDocumentos, map[string]any{"title": "Carta"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != 409 || apiErr.Code != "SLUG_TAKEN" || apiErr.RequestID != "req-42" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if apiErr.FieldErrors["slug"] != "already in use" {
		t.Fatalf("field errors = %+v", apiErr.FieldErrors)
	}
}

func TestUnauthorizedMapsToSessionExpired(t *testing.T) {
	ts := httptest.NewServer(jsonHandler(t, http.StatusUnauthorized, map[string]any{
		"success": false,
		"error":   map[string]any{"status": 401, "code": "UNAUTHORIZED", "message": "Unauthorized"},
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	_, err := c.Get(context.Background(), content.ModuleDocumentos, "doc_1")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	// the structured error is still reachable behind the sentinel
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "UNAUTHORIZED" {
		t.Fatalf("err = %v, want wrapped APIError", err)
	}
}

func TestUnauthorizedWithoutEnvelopeStillExpiresSession(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	_, err := c.Get(context.Background(), content.ModuleDocumentos, "doc_1")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestSignInStoresToken(t *testing.T) {
	var sawAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/signin" {
			jsonHandler(t, http.StatusOK, map[string]any{
				"success": true,
				"data":    map[string]any{"editorId": "ed_1", "token": "tok-1", "refreshToken": "ref-1"},
			})(w, r)
			return
		}
		sawAuth = r.Header.Get("Authorization")
		jsonHandler(t, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{}})(w, r)
	}))
	defer ts.Close()

	c := New(ts.URL, nil)
	session, err := c.SignIn(context.Background(), "ana@memoria.local", "segredo123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session.Token != "tok-1" {
		t.Fatalf("token = %q", session.Token)
	}
	if _, err := c.List(context.Background(), content.ModuleDocumentos, listquery.Params{}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if sawAuth != "Bearer tok-1" {
		t.Fatalf("Authorization = %q", sawAuth)
	}
}

func TestProbeSlug(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") == "carta" {
			jsonHandler(t, http.StatusOK, map[string]any{
				"success": true,
				"data":    []map[string]any{{"id": "doc_9", "module": "documentos", "slug": "carta"}},
				"meta":    map[string]any{"page": 1, "limit": 1, "total": 1},
			})(w, r)
			return
		}
		jsonHandler(t, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{},
			"meta":    map[string]any{"page": 1, "limit": 1, "total": 0},
		})(w, r)
	}))
	defer ts.Close()

	c := New(ts.URL, nil)

	taken, ownerID, err := c.ProbeSlug(context.Background(), content.ModuleDocumentos, "carta")
	if err != nil || !taken || ownerID != "doc_9" {
		t.Fatalf("probe carta = %v/%q/%v", taken, ownerID, err)
	}
	taken, _, err = c.ProbeSlug(context.Background(), content.ModuleDocumentos, "livre")
	if err != nil || taken {
		t.Fatalf("probe livre = %v/%v", taken, err)
	}
}
