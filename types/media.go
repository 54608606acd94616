package types

import "time"

// Media records an uploaded file stored in object storage.
type Media struct {
	ID string `json:"id" db:"id"`

	// Filename is the generated object name, e.g. "1700000000000-ab12cd34.webp".
	Filename string `json:"filename" db:"filename"`

	// OriginalName is the client-supplied file name.
	OriginalName string `json:"originalName" db:"original_name"`

	// Mimetype is the content type of the stored object.
	Mimetype string `json:"mimetype" db:"mimetype"`

	// Size is the stored object size in bytes.
	Size int64 `json:"size" db:"size"`

	// URL is the public URL of the object.
	URL string `json:"url" db:"url"`

	// Path is the object key inside the bucket.
	Path string `json:"path" db:"path"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
