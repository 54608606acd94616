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

// BlogFilter narrows a blog listing.
type BlogFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Category      string
	Tag           string
}

// BlogRepository handles persistence for blog posts.
type BlogRepository struct {
	db *sql.DB
}

func NewBlogRepository(db *sql.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

const blogColumns = `id, slug, title, excerpt, content, cover_image, category, tags,
		published, featured, read_time, views, created_at, updated_at`

func (r *BlogRepository) List(ctx context.Context, filter BlogFilter) ([]types.Blog, error) {
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
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	query := `SELECT ` + blogColumns + ` FROM blogs`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY featured DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Blog, 0)
	for rows.Next() {
		post, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// Get returns the post whose id or slug equals idOrSlug.
func (r *BlogRepository) Get(ctx context.Context, idOrSlug string) (types.Blog, error) {
	const query = `SELECT ` + blogColumns + `
		FROM blogs
		WHERE id = $1 OR slug = $1
		ORDER BY (id = $1) DESC
		LIMIT 1`
	post, err := scanBlog(r.db.QueryRowContext(ctx, query, idOrSlug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Blog{}, ErrNotFound
		}
		return types.Blog{}, err
	}
	return post, nil
}

func (r *BlogRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM blogs WHERE slug = $1 AND id <> $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *BlogRepository) Create(ctx context.Context, post types.Blog) (types.Blog, error) {
	now := time.Now()
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}

	const query = `
		INSERT INTO blogs (` + blogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		post.ID,
		post.Slug,
		post.Title,
		post.Excerpt,
		post.Content,
		post.CoverImage,
		post.Category,
		textArray(post.Tags),
		post.Published,
		post.Featured,
		post.ReadTime,
		post.Views,
		post.CreatedAt,
		post.UpdatedAt,
	); err != nil {
		return types.Blog{}, mapWriteError(err)
	}
	return post, nil
}

func (r *BlogRepository) Update(ctx context.Context, post types.Blog) (types.Blog, error) {
	post.UpdatedAt = time.Now()

	const query = `
		UPDATE blogs
		SET slug = $1,
			title = $2,
			excerpt = $3,
			content = $4,
			cover_image = $5,
			category = $6,
			tags = $7,
			published = $8,
			featured = $9,
			read_time = $10,
			updated_at = $11
		WHERE id = $12`
	result, err := r.db.ExecContext(
		ctx,
		query,
		post.Slug,
		post.Title,
		post.Excerpt,
		post.Content,
		post.CoverImage,
		post.Category,
		textArray(post.Tags),
		post.Published,
		post.Featured,
		post.ReadTime,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return types.Blog{}, mapWriteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Blog{}, err
	}
	if affected == 0 {
		return types.Blog{}, ErrNotFound
	}
	return post, nil
}

func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM blogs WHERE id = $1`
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
func (r *BlogRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	const query = `UPDATE blogs SET views = views + 1 WHERE id = $1 RETURNING views`
	var views int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&views); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return views, nil
}

func (r *BlogRepository) SitemapEntries(ctx context.Context) ([]SitemapEntry, error) {
	const query = `
		SELECT slug, updated_at
		FROM blogs
		WHERE published = TRUE
		ORDER BY featured DESC, created_at DESC`
	return querySitemapEntries(ctx, r.db, query)
}

func scanBlog(row rowScanner) (types.Blog, error) {
	var post types.Blog
	if err := row.Scan(
		&post.ID,
		&post.Slug,
		&post.Title,
		&post.Excerpt,
		&post.Content,
		&post.CoverImage,
		&post.Category,
		pq.Array(&post.Tags),
		&post.Published,
		&post.Featured,
		&post.ReadTime,
		&post.Views,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return types.Blog{}, err
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return post, nil
}
