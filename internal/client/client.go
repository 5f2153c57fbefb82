// Package client is the admin panel's API client. It normalizes the
// backend's response envelope, maps 401s to a forced re-login and keeps
// slug probing and list fetching race-free under rapid user input.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"memoria/api/internal/content"
	"memoria/api/internal/listquery"
	"memoria/api/internal/routes"
)

// ErrSessionExpired marks a 401 from any endpoint. Callers drop their
// credentials and send the editor back to the sign-in screen.
var ErrSessionExpired = errors.New("session expired")

// APIError is the normalized shape of a backend error envelope.
type APIError struct {
	Status      int
	Code        string
	Message     string
	RequestID   string
	FieldErrors map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

const defaultTimeout = 15 * time.Second

// Client talks to the admin API. Token is the bearer access token; it
// may be swapped at any time via SetToken after a refresh.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *struct {
		Status    int               `json:"status"`
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		RequestID string            `json:"requestId"`
		Details   map[string]string `json:"details"`
	} `json:"error"`
}

// do executes the request and decodes the envelope. Every non-2xx
// response comes back as *APIError; a 401 additionally wraps
// ErrSessionExpired so errors.Is finds it through the chain.
func (c *Client) do(ctx context.Context, method, path string, body any) (envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return envelope{}, fmt.Errorf("encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return envelope{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return envelope{}, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return envelope{}, ErrSessionExpired
		}
		return envelope{}, fmt.Errorf("%s %s: unexpected response (status %d)", method, path, resp.StatusCode)
	}

	if env.Success {
		return env, nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: "request failed"}
	if env.Error != nil {
		apiErr.Status = env.Error.Status
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.RequestID = env.Error.RequestID
		apiErr.FieldErrors = env.Error.Details
	}
	if apiErr.Status == http.StatusUnauthorized {
		return envelope{}, fmt.Errorf("%w: %w", ErrSessionExpired, apiErr)
	}
	return envelope{}, apiErr
}

func decodeData(env envelope, target any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// ── Auth ──

type Session struct {
	EditorID     string `json:"editorId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Session{}, err
	}
	var session Session
	if err := decodeData(env, &session); err != nil {
		return Session{}, err
	}
	c.token = session.Token
	return session, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return Session{}, err
	}
	var session Session
	if err := decodeData(env, &session); err != nil {
		return Session{}, err
	}
	c.token = session.Token
	return session, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/auth/logout", map[string]string{
		"refreshToken": refreshToken,
	})
	return err
}

// ── Content ──

// ListPage is one page of items plus its reconciled meta.
type ListPage struct {
	Items []content.Item
	Meta  listquery.Meta
}

func (c *Client) List(ctx context.Context, module content.Module, params listquery.Params) (ListPage, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/admin/"+string(module)+"?"+listquery.BuildQuery(params), nil)
	if err != nil {
		return ListPage{}, err
	}
	page := ListPage{Items: []content.Item{}}
	if err := decodeData(env, &page.Items); err != nil {
		return ListPage{}, err
	}
	if len(env.Meta) > 0 {
		var meta listquery.Meta
		if err := json.Unmarshal(env.Meta, &meta); err != nil {
			return ListPage{}, fmt.Errorf("decode meta: %w", err)
		}
		page.Meta = listquery.ReconcileMeta(&meta)
	} else {
		page.Meta = listquery.ReconcileMeta(nil)
	}
	return page, nil
}

// ItemDetail pairs an item with its resolved public routes.
type ItemDetail struct {
	Item   content.Item             `json:"item"`
	Routes []routes.RouteDescriptor `json:"routes"`
}

func (c *Client) Get(ctx context.Context, module content.Module, id string) (ItemDetail, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/admin/"+string(module)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return ItemDetail{}, err
	}
	var detail ItemDetail
	if err := decodeData(env, &detail); err != nil {
		return ItemDetail{}, err
	}
	return detail, nil
}

func (c *Client) Create(ctx context.Context, module content.Module, input map[string]any) (content.Item, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/admin/"+string(module), input)
	if err != nil {
		return content.Item{}, err
	}
	var item content.Item
	if err := decodeData(env, &item); err != nil {
		return content.Item{}, err
	}
	return item, nil
}

func (c *Client) Update(ctx context.Context, module content.Module, id string, input map[string]any) (content.Item, error) {
	env, err := c.do(ctx, http.MethodPatch, "/api/admin/"+string(module)+"/"+url.PathEscape(id), input)
	if err != nil {
		return content.Item{}, err
	}
	var item content.Item
	if err := decodeData(env, &item); err != nil {
		return content.Item{}, err
	}
	return item, nil
}

func (c *Client) Delete(ctx context.Context, module content.Module, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/admin/"+string(module)+"/"+url.PathEscape(id), nil)
	return err
}

// PatchStatus satisfies lifecycle.StatusPatcher so bulk transitions can
// run through lifecycle.Controller against the live API.
func (c *Client) PatchStatus(ctx context.Context, module content.Module, id string, status content.Status) error {
	_, err := c.do(ctx, http.MethodPatch, "/api/admin/"+string(module)+"/"+url.PathEscape(id)+"/status", map[string]string{
		"status": string(status),
	})
	return err
}

func (c *Client) ItemRoutes(ctx context.Context, module content.Module, id string) ([]routes.RouteDescriptor, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/admin/"+string(module)+"/"+url.PathEscape(id)+"/routes", nil)
	if err != nil {
		return nil, err
	}
	descriptors := []routes.RouteDescriptor{}
	if err := decodeData(env, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// ProbeSlug asks whether a slug is already used in a module. It lists
// with an exact-slug filter: one row back means taken.
func (c *Client) ProbeSlug(ctx context.Context, module content.Module, slug string) (taken bool, ownerID string, err error) {
	page, err := c.List(ctx, module, listquery.Params{Slug: slug, Limit: 1})
	if err != nil {
		return false, "", err
	}
	if len(page.Items) == 0 {
		return false, "", nil
	}
	return true, page.Items[0].ID, nil
}
