package types

import "time"

// Portfolio represents a project shown in the portfolio section.
type Portfolio struct {
	// ID is the unique identifier of the item.
	ID string `json:"id" db:"id"`

	// Slug is the URL-safe identifier derived from Title. It is unique
	// across portfolio items.
	Slug string `json:"slug" db:"slug"`

	// Title is the human-readable name of the project.
	Title string `json:"title" db:"title"`

	// Description is the project write-up, stored as HTML.
	Description string `json:"description" db:"description"`

	Category string `json:"category" db:"category"`
	Client   string `json:"client" db:"client"`

	// CompletionDate is when the project shipped, if known.
	CompletionDate *time.Time `json:"completionDate" db:"completion_date"`

	// Technologies is the ordered list of technologies used. Order is
	// preserved exactly as submitted.
	Technologies []string `json:"technologies" db:"technologies"`

	// ImageURLs is the ordered gallery of image URLs.
	ImageURLs []string `json:"imageUrls" db:"image_urls"`

	ProjectURL string `json:"projectUrl" db:"project_url"`
	GithubURL  string `json:"githubUrl" db:"github_url"`

	// Published controls visibility to non-admin readers.
	Published bool `json:"published" db:"published"`

	// Featured items sort ahead of all others.
	Featured bool `json:"featured" db:"featured"`

	// Order is the manual sort key, ascending.
	Order int `json:"order" db:"sort_order"`

	// Summary is the AI-generated synopsis of Description. Nil until it
	// has been generated successfully.
	Summary *string `json:"summary" db:"summary"`

	Views int `json:"views" db:"views"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
