package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/devfolio/apiserver/types"
	"github.com/google/uuid"
)

// ContactRepository handles persistence for contact messages.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

const contactColumns = `id, name, email, subject, message, read, created_at`

func (r *ContactRepository) List(ctx context.Context) ([]types.Contact, error) {
	const query = `SELECT ` + contactColumns + ` FROM contacts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]types.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	contact.CreatedAt = time.Now()
	contact.Read = false

	const query = `
		INSERT INTO contacts (` + contactColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Subject,
		contact.Message,
		contact.Read,
		contact.CreatedAt,
	); err != nil {
		return types.Contact{}, err
	}
	return contact, nil
}

// MarkRead flags a message as read and returns it.
func (r *ContactRepository) MarkRead(ctx context.Context, id string) (types.Contact, error) {
	const query = `UPDATE contacts SET read = TRUE WHERE id = $1 RETURNING ` + contactColumns
	contact, err := scanContact(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return contact, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM contacts WHERE id = $1`
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

func scanContact(row rowScanner) (types.Contact, error) {
	var contact types.Contact
	err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Subject,
		&contact.Message,
		&contact.Read,
		&contact.CreatedAt,
	)
	return contact, err
}
