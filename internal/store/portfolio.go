package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devfolio/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PortfolioFilter narrows a portfolio listing.
type PortfolioFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Category      string
}

// SitemapEntry is the slug and last modification time of a published item.
type SitemapEntry struct {
	Slug      string
	UpdatedAt time.Time
}

// PortfolioRepository handles persistence for portfolio items.
type PortfolioRepository struct {
	db *sql.DB
}

func NewPortfolioRepository(db *sql.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

const portfolioColumns = `id, slug, title, description, category, client, completion_date,
		technologies, image_urls, project_url, github_url, published, featured,
		sort_order, summary, views, created_at, updated_at`

func (r *PortfolioRepository) List(ctx context.Context, filter PortfolioFilter) ([]types.Portfolio, error) {
	var (
		conds []string
		args  []any
	)
	if filter.PublishedOnly {
		conds = append(conds, "published = TRUE")
	}
	if filter.FeaturedOnly {
		conds = append(conds, "featured = TRUE")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	query := `SELECT ` + portfolioColumns + ` FROM portfolios`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY featured DESC, sort_order ASC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Portfolio, 0)
	for rows.Next() {
		item, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns the item whose id or slug equals idOrSlug. An id match wins
// over a slug match.
func (r *PortfolioRepository) Get(ctx context.Context, idOrSlug string) (types.Portfolio, error) {
	const query = `SELECT ` + portfolioColumns + `
		FROM portfolios
		WHERE id = $1 OR slug = $1
		ORDER BY (id = $1) DESC
		LIMIT 1`
	item, err := scanPortfolio(r.db.QueryRowContext(ctx, query, idOrSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Portfolio{}, ErrNotFound
		}
		return types.Portfolio{}, err
	}
	return item, nil
}

// SlugExists reports whether another item than excludeID already uses slug.
func (r *PortfolioRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM portfolios WHERE slug = $1 AND id <> $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PortfolioRepository) Create(ctx context.Context, item types.Portfolio) (types.Portfolio, error) {
	now := time.Now()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Technologies == nil {
		item.Technologies = []string{}
	}
	if item.ImageURLs == nil {
		item.ImageURLs = []string{}
	}

	const query = `
		INSERT INTO portfolios (` + portfolioColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.Slug,
		item.Title,
		item.Description,
		item.Category,
		item.Client,
		item.CompletionDate,
		textArray(item.Technologies),
		textArray(item.ImageURLs),
		item.ProjectURL,
		item.GithubURL,
		item.Published,
		item.Featured,
		item.Order,
		item.Summary,
		item.Views,
		item.CreatedAt,
		item.UpdatedAt,
	); err != nil {
		return types.Portfolio{}, mapWriteError(err)
	}
	return item, nil
}

func (r *PortfolioRepository) Update(ctx context.Context, item types.Portfolio) (types.Portfolio, error) {
	item.UpdatedAt = time.Now()

	const query = `
		UPDATE portfolios
		SET slug = $1,
			title = $2,
			description = $3,
			category = $4,
			client = $5,
			completion_date = $6,
			technologies = $7,
			image_urls = $8,
			project_url = $9,
			github_url = $10,
			published = $11,
			featured = $12,
			sort_order = $13,
			summary = $14,
			updated_at = $15
		WHERE id = $16`
	result, err := r.db.ExecContext(
		ctx,
		query,
		item.Slug,
		item.Title,
		item.Description,
		item.Category,
		item.Client,
		item.CompletionDate,
		textArray(item.Technologies),
		textArray(item.ImageURLs),
		item.ProjectURL,
		item.GithubURL,
		item.Published,
		item.Featured,
		item.Order,
		item.Summary,
		item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return types.Portfolio{}, mapWriteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Portfolio{}, err
	}
	if affected == 0 {
		return types.Portfolio{}, ErrNotFound
	}
	return item, nil
}

func (r *PortfolioRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM portfolios WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViews bumps the view counter and returns the new value.
// updated_at is left alone so reads do not move sitemap lastmod.
func (r *PortfolioRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	const query = `UPDATE portfolios SET views = views + 1 WHERE id = $1 RETURNING views`
	var views int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

// SetSummary stores a generated summary unless one was stored concurrently.
// It returns the number of rows written, which is 0 when it lost that race.
func (r *PortfolioRepository) SetSummary(ctx context.Context, id, summary string) (int64, error) {
	const query = `UPDATE portfolios SET summary = $1 WHERE id = $2 AND summary IS NULL`
	result, err := r.db.ExecContext(ctx, query, summary, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SitemapEntries lists the slugs of published items.
func (r *PortfolioRepository) SitemapEntries(ctx context.Context) ([]SitemapEntry, error) {
	const query = `
		SELECT slug, updated_at
		FROM portfolios
		WHERE published = TRUE
		ORDER BY featured DESC, sort_order ASC, created_at DESC`
	return querySitemapEntries(ctx, r.db, query)
}

func scanPortfolio(row rowScanner) (types.Portfolio, error) {
	var (
		item           types.Portfolio
		completionDate sql.NullTime
		summary        sql.NullString
	)
	if err := row.Scan(
		&item.ID,
		&item.Slug,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Client,
		&completionDate,
		pq.Array(&item.Technologies),
		pq.Array(&item.ImageURLs),
		&item.ProjectURL,
		&item.GithubURL,
		&item.Published,
		&item.Featured,
		&item.Order,
		&summary,
		&item.Views,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return types.Portfolio{}, err
	}
	if completionDate.Valid {
		t := completionDate.Time
		item.CompletionDate = &t
	}
	if summary.Valid {
		s := summary.String
		item.Summary = &s
	}
	if item.Technologies == nil {
		item.Technologies = []string{}
	}
	if item.ImageURLs == nil {
		item.ImageURLs = []string{}
	}
	return item, nil
}

func querySitemapEntries(ctx context.Context, db *sql.DB, query string) ([]SitemapEntry, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]SitemapEntry, 0)
	for rows.Next() {
		var entry SitemapEntry
		if err := rows.Scan(&entry.Slug, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
