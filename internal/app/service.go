package app

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"memoria/api/internal/auth"
	"memoria/api/internal/authpw"
	"memoria/api/internal/config"
	"memoria/api/internal/content"
	"memoria/api/internal/history"
	"memoria/api/internal/lifecycle"
	"memoria/api/internal/listquery"
	"memoria/api/internal/routes"
	"memoria/api/internal/search"
	"memoria/api/internal/session"
	"memoria/api/internal/slug"
	"memoria/api/internal/store"
	"memoria/api/internal/util"
)

// ContentStore is the persistence surface the service needs.
type ContentStore interface {
	Ping(ctx context.Context) error
	ListItems(ctx context.Context, module content.Module, filter store.ListFilter) ([]content.Item, int, error)
	GetItem(ctx context.Context, module content.Module, id string) (content.Item, error)
	InsertItem(ctx context.Context, item content.Item) (content.Item, error)
	UpdateItem(ctx context.Context, item content.Item) (content.Item, error)
	UpdateStatus(ctx context.Context, module content.Module, id string, status content.Status) (content.Item, error)
	DeleteItem(ctx context.Context, module content.Module, id string) error
	SlugTaken(ctx context.Context, module content.Module, slug, excludeID string) (bool, error)
	CountByModuleStatus(ctx context.Context, status content.Status) (map[content.Module]int, error)
	GetEditorByEmail(ctx context.Context, email string) (store.Editor, error)
	GetEditorByID(ctx context.Context, id string) (store.Editor, error)
	EnsureEditor(ctx context.Context, editor store.Editor) error
}

// SessionStore keeps refresh sessions (Redis in production).
type SessionStore interface {
	Save(ctx context.Context, tokenHash string, data session.Data, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenHash string) (session.Data, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// SearchIndex is the slice of the search service the app uses.
type SearchIndex interface {
	Search(q search.Query) search.Response
	IndexItem(record search.ItemRecord)
	DeleteItem(id string)
}

// Historian records and lists item revisions.
type Historian interface {
	Snapshot(item content.Item, author, message string) error
	Revisions(module content.Module, id string) ([]history.Revision, error)
}

type Service struct {
	cfg      config.Config
	store    ContentStore
	sessions SessionStore
	search   SearchIndex
	history  Historian
	passwd   *authpw.Service
	resolver routes.Resolver
}

func New(cfg config.Config, contentStore ContentStore, sessions SessionStore, searchIndex SearchIndex, historian Historian) *Service {
	return &Service{
		cfg:      cfg,
		store:    contentStore,
		sessions: sessions,
		search:   searchIndex,
		history:  historian,
		passwd:   authpw.NewService(contentStore),
		resolver: routes.Resolver{BaseURL: cfg.PublicSiteURL, Locale: cfg.PublicLocale},
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Resolver() routes.Resolver {
	return s.resolver
}

// Bootstrap seeds the first editor account so a fresh deployment has a
// way in. No-op when the admin credentials are not configured.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		return nil
	}
	hash, err := authpw.HashPassword(s.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return s.store.EnsureEditor(ctx, store.Editor{
		ID:           util.NewID("ed"),
		Email:        s.cfg.AdminEmail,
		DisplayName:  s.cfg.AdminName,
		PasswordHash: hash,
	})
}

// ── Sessions ──

type Session struct {
	EditorID     string     `json:"editorId"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Token        string     `json:"token,omitempty"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	editor, err := s.passwd.SignIn(ctx, email, password)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, editor)
}

func (s *Service) issueSession(ctx context.Context, editor store.Editor) (Session, error) {
	expiresAt := time.Now().Add(s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:   editor.ID,
		Email: editor.Email,
		Name:  editor.DisplayName,
		JTI:   util.NewID(""),
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	refreshToken := util.NewID("")
	if err := s.sessions.Save(ctx, hashToken(refreshToken), session.Data{
		EditorID:    editor.ID,
		Email:       editor.Email,
		DisplayName: editor.DisplayName,
	}, time.Now().Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	return Session{
		EditorID:     editor.ID,
		Email:        editor.Email,
		Name:         editor.DisplayName,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    &expiresAt,
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	data, err := s.sessions.Lookup(ctx, hashToken(refreshToken))
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	editor, err := s.store.GetEditorByID(ctx, data.EditorID)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	// rotate: the old refresh token dies with the lookup
	if err := s.sessions.Revoke(ctx, hashToken(refreshToken)); err != nil {
		log.Printf("revoke rotated refresh token: %v", err)
	}
	return s.issueSession(ctx, editor)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, hashToken(refreshToken))
}

func (s *Service) SessionFromToken(token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{EditorID: claims.Sub, Email: claims.Email, Name: claims.Name}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ── Content ──

// ContentInput is the editable field set of a content item.
type ContentInput struct {
	Title             string          `json:"title"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description"`
	CoverImageURL     string          `json:"coverImageUrl"`
	Tags              []string        `json:"tags"`
	RelatedPersonSlug string          `json:"relatedPersonSlug"`
	RelatedFundKey    string          `json:"relatedFundKey"`
	Featured          bool            `json:"featured"`
	SortOrder         int             `json:"sortOrder"`
	Payload           json.RawMessage `json:"payload"`
	Status            string          `json:"status"`
}

// ListContent returns one page of a module's items with reconciled meta
// and each row annotated with its public routes.
func (s *Service) ListContent(ctx context.Context, module content.Module, params listquery.Params) ([]content.Item, listquery.Meta, error) {
	filter := store.ListFilter{
		Query:      params.Query,
		Status:     params.Status,
		Tag:        params.Tag,
		PersonSlug: params.PersonSlug,
		FundKey:    params.FundKey,
		Slug:       params.Slug,
		Featured:   params.Featured,
		Page:       params.Page,
		Limit:      params.Limit,
	}
	if sort, ok := listquery.ParseSort(params.Sort); ok {
		filter.Sort = sort
		filter.HasSort = true
	}

	items, total, err := s.store.ListItems(ctx, module, filter)
	if err != nil {
		return nil, listquery.Meta{}, fmt.Errorf("list %s: %w", module, err)
	}

	page := params.Page
	if page < 1 {
		page = listquery.DefaultPage
	}
	limit := params.Limit
	if limit < 1 {
		limit = listquery.DefaultLimit
	}
	meta := listquery.ReconcileMeta(&listquery.Meta{Page: page, Limit: limit, Total: total})
	return items, meta, nil
}

func (s *Service) GetContent(ctx context.Context, module content.Module, id string) (content.Item, []routes.RouteDescriptor, error) {
	item, err := s.store.GetItem(ctx, module, id)
	if err != nil {
		return content.Item{}, nil, err
	}
	return item, s.resolveItem(item), nil
}

func (s *Service) resolveItem(item content.Item) []routes.RouteDescriptor {
	return s.resolver.Resolve(item.Module, routes.Input{
		Slug:              item.Slug,
		Tags:              item.Tags,
		RelatedFundKey:    item.RelatedFundKey,
		RelatedPersonSlug: item.RelatedPersonSlug,
	})
}

// validateSlug normalizes the candidate (falling back to the title) and
// refuses the save before any write happens.
func (s *Service) validateSlug(ctx context.Context, module content.Module, input ContentInput, excludeID string) (string, error) {
	candidate := input.Slug
	if candidate == "" {
		candidate = input.Title
	}
	result := slug.Check(candidate)
	if !result.Valid {
		reason := "slug is required"
		if result.TooShort {
			reason = fmt.Sprintf("slug must have at least %d characters", slug.MinLength)
		}
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid slug", map[string]string{"slug": reason})
	}

	taken, err := s.store.SlugTaken(ctx, module, result.Slug, excludeID)
	if err != nil {
		return "", fmt.Errorf("probe slug: %w", err)
	}
	if taken {
		return "", domainError(http.StatusConflict, "SLUG_TAKEN", fmt.Sprintf("Slug %q is already in use in %s", result.Slug, module), map[string]string{"slug": "already in use"})
	}
	return result.Slug, nil
}

func (s *Service) CreateContent(ctx context.Context, module content.Module, input ContentInput, editorName string) (content.Item, error) {
	normalized, err := s.validateSlug(ctx, module, input, "")
	if err != nil {
		return content.Item{}, err
	}

	status := content.StatusDraft
	if input.Status != "" {
		parsed, err := content.ParseStatus(input.Status)
		if err != nil {
			return content.Item{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		}
		status = parsed
	}

	item := content.Item{
		ID:                util.NewID(util.IDPrefix(string(module))),
		Module:            module,
		Title:             input.Title,
		Slug:              normalized,
		Description:       input.Description,
		CoverImageURL:     input.CoverImageURL,
		Status:            content.StatusDraft,
		Tags:              input.Tags,
		RelatedPersonSlug: input.RelatedPersonSlug,
		RelatedFundKey:    input.RelatedFundKey,
		Featured:          input.Featured,
		SortOrder:         input.SortOrder,
		Payload:           input.Payload,
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}

	created, err := s.store.InsertItem(ctx, item)
	if err != nil {
		return content.Item{}, err
	}
	if status != content.StatusDraft {
		created, err = s.store.UpdateStatus(ctx, module, created.ID, status)
		if err != nil {
			return content.Item{}, err
		}
	}

	s.afterSave(created, editorName, "Create "+created.Slug)
	return created, nil
}

func (s *Service) UpdateContent(ctx context.Context, module content.Module, id string, input ContentInput, editorName string) (content.Item, error) {
	existing, err := s.store.GetItem(ctx, module, id)
	if err != nil {
		return content.Item{}, err
	}

	normalized, err := s.validateSlug(ctx, module, input, id)
	if err != nil {
		return content.Item{}, err
	}

	existing.Title = input.Title
	existing.Slug = normalized
	existing.Description = input.Description
	existing.CoverImageURL = input.CoverImageURL
	existing.Tags = input.Tags
	if existing.Tags == nil {
		existing.Tags = []string{}
	}
	existing.RelatedPersonSlug = input.RelatedPersonSlug
	existing.RelatedFundKey = input.RelatedFundKey
	existing.Featured = input.Featured
	existing.SortOrder = input.SortOrder
	if len(input.Payload) > 0 {
		existing.Payload = input.Payload
	}

	updated, err := s.store.UpdateItem(ctx, existing)
	if err != nil {
		return content.Item{}, err
	}

	if input.Status != "" && input.Status != string(updated.Status) {
		parsed, err := content.ParseStatus(input.Status)
		if err != nil {
			return content.Item{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		}
		updated, err = s.store.UpdateStatus(ctx, module, id, parsed)
		if err != nil {
			return content.Item{}, err
		}
	}

	s.afterSave(updated, editorName, "")
	return updated, nil
}

// SetStatus applies one lifecycle transition. publishedAt handling is in
// the store's single-statement update, mirroring lifecycle.ApplyTransition.
func (s *Service) SetStatus(ctx context.Context, module content.Module, id string, rawStatus, editorName string) (content.Item, error) {
	status, err := content.ParseStatus(rawStatus)
	if err != nil {
		return content.Item{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	updated, err := s.store.UpdateStatus(ctx, module, id, status)
	if err != nil {
		return content.Item{}, err
	}
	s.afterSave(updated, editorName, fmt.Sprintf("Set %s to %s", updated.Slug, status))
	return updated, nil
}

type statusPatcher struct {
	service    *Service
	editorName string
}

func (p statusPatcher) PatchStatus(ctx context.Context, module content.Module, id string, status content.Status) error {
	_, err := p.service.SetStatus(ctx, module, id, string(status), p.editorName)
	return err
}

// BulkSetStatus transitions the selected items best-effort, one at a time.
func (s *Service) BulkSetStatus(ctx context.Context, module content.Module, ids []string, rawStatus, editorName string) (content.BatchResult, error) {
	status, err := content.ParseStatus(rawStatus)
	if err != nil {
		return content.BatchResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	if len(ids) == 0 {
		return content.BatchResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ids is required", nil)
	}
	controller := lifecycle.NewController(statusPatcher{service: s, editorName: editorName})
	return controller.SetBulk(ctx, module, ids, status), nil
}

func (s *Service) DeleteContent(ctx context.Context, module content.Module, id string) error {
	if err := s.store.DeleteItem(ctx, module, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteItem(id)
	}
	return nil
}

func (s *Service) ItemRoutes(ctx context.Context, module content.Module, id string) ([]routes.RouteDescriptor, error) {
	item, err := s.store.GetItem(ctx, module, id)
	if err != nil {
		return nil, err
	}
	return s.resolveItem(item), nil
}

func (s *Service) ItemHistory(module content.Module, id string) ([]history.Revision, error) {
	if s.history == nil {
		return []history.Revision{}, nil
	}
	return s.history.Revisions(module, id)
}

// afterSave triggers the fire-and-forget side effects of a write: the
// revision snapshot and the search index update.
func (s *Service) afterSave(item content.Item, editorName, message string) {
	if s.history != nil {
		if err := s.history.Snapshot(item, editorName, message); err != nil {
			log.Printf("history snapshot %s/%s: %v", item.Module, item.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexItem(search.ItemRecord{
			ID:          item.ID,
			Module:      string(item.Module),
			Title:       item.Title,
			Description: item.Description,
			Slug:        item.Slug,
			Status:      string(item.Status),
			Tags:        item.Tags,
		})
	}
}

// ── Sitemap & search ──

type SitemapModule struct {
	Module         content.Module     `json:"module"`
	PublishedCount int                `json:"publishedCount"`
	Placements     []routes.Placement `json:"placements"`
}

// Sitemap combines the static placement map with live published counts.
func (s *Service) Sitemap(ctx context.Context) ([]SitemapModule, error) {
	counts, err := s.store.CountByModuleStatus(ctx, content.StatusPublished)
	if err != nil {
		return nil, fmt.Errorf("sitemap counts: %w", err)
	}
	out := make([]SitemapModule, 0, len(content.Modules()))
	for _, module := range content.Modules() {
		out = append(out, SitemapModule{
			Module:         module,
			PublishedCount: counts[module],
			Placements:     routes.PlacementsFor(module),
		})
	}
	return out, nil
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// IsNotFound reports whether err means the item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
