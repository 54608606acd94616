package types

import "time"

// Blog represents a blog post.
type Blog struct {
	ID string `json:"id" db:"id"`

	// Slug is the URL-safe identifier derived from Title. It is unique
	// across blog posts.
	Slug string `json:"slug" db:"slug"`

	Title   string `json:"title" db:"title"`
	Excerpt string `json:"excerpt" db:"excerpt"`

	// Content is the post body, stored as HTML.
	Content string `json:"content" db:"content"`

	CoverImage string   `json:"coverImage" db:"cover_image"`
	Category   string   `json:"category" db:"category"`
	Tags       []string `json:"tags" db:"tags"`
	Published  bool     `json:"published" db:"published"`
	Featured   bool     `json:"featured" db:"featured"`

	// ReadTime is a display string such as "4 min read".
	ReadTime string `json:"readTime" db:"read_time"`

	// Views counts detail-page reads.
	Views int `json:"views" db:"views"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
