package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/devfolio/apiserver/types"
	"github.com/google/uuid"
)

// MediaRepository handles persistence for uploaded media.
type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, filename, original_name, mimetype, size, url, path, created_at`

func (r *MediaRepository) Create(ctx context.Context, media types.Media) (types.Media, error) {
	if media.ID == "" {
		media.ID = uuid.NewString()
	}
	media.CreatedAt = time.Now()

	const query = `
		INSERT INTO media (` + mediaColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		media.ID,
		media.Filename,
		media.OriginalName,
		media.Mimetype,
		media.Size,
		media.URL,
		media.Path,
		media.CreatedAt,
	); err != nil {
		return types.Media{}, err
	}
	return media, nil
}
