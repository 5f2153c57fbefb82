package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"memoria/api/internal/content"
	"memoria/api/internal/listquery"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const itemColumns = `id, module, title, slug, description, cover_image_url, status, tags,
	related_person_slug, related_fund_key, featured, sort_order, payload,
	created_at, updated_at, published_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (content.Item, error) {
	var item content.Item
	var tags []byte
	var payload []byte
	err := row.Scan(
		&item.ID, &item.Module, &item.Title, &item.Slug, &item.Description,
		&item.CoverImageURL, &item.Status, &tags,
		&item.RelatedPersonSlug, &item.RelatedFundKey, &item.Featured,
		&item.SortOrder, &payload,
		&item.CreatedAt, &item.UpdatedAt, &item.PublishedAt,
	)
	if err != nil {
		return content.Item{}, err
	}
	if err := json.Unmarshal(tags, &item.Tags); err != nil {
		return content.Item{}, fmt.Errorf("decode tags for %s: %w", item.ID, err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item.Payload = json.RawMessage(payload)
	return item, nil
}

// sortColumns maps the closed sort enumeration onto real columns. The
// backend default ordering (no valid sort supplied) is updated_at DESC.
var sortColumns = map[string]string{
	"updated":   "updated_at",
	"created":   "created_at",
	"published": "published_at",
	"title":     "title",
	"featured":  "featured",
	"order":     "sort_order",
}

func orderClause(filter ListFilter) string {
	if !filter.HasSort {
		return "ORDER BY updated_at DESC"
	}
	column, ok := sortColumns[filter.Sort.Field()]
	if !ok {
		return "ORDER BY updated_at DESC"
	}
	direction := "ASC"
	if filter.Sort.Descending() {
		direction = "DESC"
	}
	// published_at is nullable; drafts sink to the end either way
	if column == "published_at" {
		return fmt.Sprintf("ORDER BY %s %s NULLS LAST", column, direction)
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", column, direction)
}

// ListItems returns one page of a module's items plus the unpaginated total.
func (s *PostgresStore) ListItems(ctx context.Context, module content.Module, filter ListFilter) ([]content.Item, int, error) {
	conditions := []string{"module = $1"}
	args := []any{string(module)}
	argN := 2

	add := func(condition string, value any) {
		conditions = append(conditions, fmt.Sprintf(condition, argN))
		args = append(args, value)
		argN++
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		add("(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%[1]d || '%%')", q)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Tag != "" {
		tagJSON, _ := json.Marshal([]string{filter.Tag})
		add("tags @> $%d::jsonb", string(tagJSON))
	}
	if filter.PersonSlug != "" {
		add("related_person_slug = $%d", filter.PersonSlug)
	}
	if filter.FundKey != "" {
		add("related_fund_key = $%d", filter.FundKey)
	}
	if filter.Slug != "" {
		add("slug = $%d", filter.Slug)
	}
	if filter.Featured != nil {
		add("featured = $%d", *filter.Featured)
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM content_items WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = listquery.DefaultPage
	}
	limit := filter.Limit
	if limit < 1 {
		limit = listquery.DefaultLimit
	}
	offset := (page - 1) * limit

	listSQL := fmt.Sprintf(
		"SELECT %s FROM content_items WHERE %s %s LIMIT $%d OFFSET $%d",
		itemColumns, where, orderClause(filter), argN, argN+1,
	)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []content.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate items: %w", err)
	}
	return items, total, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, module content.Module, id string) (content.Item, error) {
	query := fmt.Sprintf("SELECT %s FROM content_items WHERE module=$1 AND id=$2", itemColumns)
	return scanItem(s.db.QueryRowContext(ctx, query, string(module), id))
}

func (s *PostgresStore) InsertItem(ctx context.Context, item content.Item) (content.Item, error) {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return content.Item{}, fmt.Errorf("encode tags: %w", err)
	}
	payload := item.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	query := fmt.Sprintf(`
		INSERT INTO content_items (
			id, module, title, slug, description, cover_image_url, status, tags,
			related_person_slug, related_fund_key, featured, sort_order, payload
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING %s
	`, itemColumns)
	row := s.db.QueryRowContext(ctx, query,
		item.ID, string(item.Module), item.Title, item.Slug, item.Description,
		item.CoverImageURL, string(item.Status), tags,
		item.RelatedPersonSlug, item.RelatedFundKey, item.Featured,
		item.SortOrder, []byte(payload),
	)
	inserted, err := scanItem(row)
	if err != nil {
		return content.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item content.Item) (content.Item, error) {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return content.Item{}, fmt.Errorf("encode tags: %w", err)
	}
	payload := item.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	query := fmt.Sprintf(`
		UPDATE content_items SET
			title=$3, slug=$4, description=$5, cover_image_url=$6, tags=$7,
			related_person_slug=$8, related_fund_key=$9, featured=$10,
			sort_order=$11, payload=$12, updated_at=NOW()
		WHERE module=$1 AND id=$2
		RETURNING %s
	`, itemColumns)
	row := s.db.QueryRowContext(ctx, query,
		string(item.Module), item.ID, item.Title, item.Slug, item.Description,
		item.CoverImageURL, tags, item.RelatedPersonSlug, item.RelatedFundKey,
		item.Featured, item.SortOrder, []byte(payload),
	)
	updated, err := scanItem(row)
	if err != nil {
		return content.Item{}, err
	}
	return updated, nil
}

// UpdateStatus applies a status transition in one statement. The CASE
// keeps published_at write-once: set on first publish, untouched on
// republish, preserved through archive.
func (s *PostgresStore) UpdateStatus(ctx context.Context, module content.Module, id string, status content.Status) (content.Item, error) {
	query := fmt.Sprintf(`
		UPDATE content_items SET
			status=$3,
			published_at = CASE
				WHEN $3 = 'published' THEN COALESCE(published_at, NOW())
				ELSE published_at
			END,
			updated_at=NOW()
		WHERE module=$1 AND id=$2
		RETURNING %s
	`, itemColumns)
	return scanItem(s.db.QueryRowContext(ctx, query, string(module), id, string(status)))
}

func (s *PostgresStore) DeleteItem(ctx context.Context, module content.Module, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE module=$1 AND id=$2`, string(module), id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete item rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SlugTaken probes for a conflicting slug in the module, ignoring the
// item being edited.
func (s *PostgresStore) SlugTaken(ctx context.Context, module content.Module, slug, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM content_items
			WHERE module=$1 AND slug=$2 AND id <> $3
		)
	`, string(module), slug, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("probe slug: %w", err)
	}
	return exists, nil
}

// CountByModuleStatus returns item counts per module for one status.
func (s *PostgresStore) CountByModuleStatus(ctx context.Context, status content.Status) (map[content.Module]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT module, COUNT(*) FROM content_items WHERE status=$1 GROUP BY module
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("count by module: %w", err)
	}
	defer rows.Close()

	counts := make(map[content.Module]int)
	for rows.Next() {
		var module string
		var n int
		if err := rows.Scan(&module, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[content.Module(module)] = n
	}
	return counts, rows.Err()
}

// Editors

func (s *PostgresStore) GetEditorByEmail(ctx context.Context, email string) (Editor, error) {
	var editor Editor
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM editors WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&editor.ID, &editor.Email, &editor.DisplayName, &editor.PasswordHash, &editor.CreatedAt, &editor.UpdatedAt)
	if err != nil {
		return Editor{}, err
	}
	return editor, nil
}

func (s *PostgresStore) GetEditorByID(ctx context.Context, id string) (Editor, error) {
	var editor Editor
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at, updated_at
		FROM editors WHERE id = $1
	`, id).Scan(&editor.ID, &editor.Email, &editor.DisplayName, &editor.PasswordHash, &editor.CreatedAt, &editor.UpdatedAt)
	if err != nil {
		return Editor{}, err
	}
	return editor, nil
}

// EnsureEditor creates the editor if the email is new; used at bootstrap
// to provision the first account.
func (s *PostgresStore) EnsureEditor(ctx context.Context, editor Editor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO editors (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, editor.ID, editor.Email, editor.DisplayName, editor.PasswordHash)
	if err != nil {
		return fmt.Errorf("ensure editor: %w", err)
	}
	return nil
}
