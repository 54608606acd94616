package services

import (
	"context"
	"strings"

	"github.com/devfolio/apiserver/types"
)

const defaultContactSubject = "No Subject"

// ContactRepository defines persistence operations for contact messages.
type ContactRepository interface {
	List(ctx context.Context) ([]types.Contact, error)
	Create(ctx context.Context, contact types.Contact) (types.Contact, error)
	MarkRead(ctx context.Context, id string) (types.Contact, error)
	Delete(ctx context.Context, id string) error
}

// ContactInput is a public contact form submission.
type ContactInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Subject string `json:"subject" validate:"max=300"`
	Message string `json:"message" validate:"required,max=10000"`
}

// ContactService encapsulates contact message use-cases.
type ContactService struct {
	repo ContactRepository
}

func NewContactService(repo ContactRepository) *ContactService {
	return &ContactService{repo: repo}
}

// Submit stores a new unread message. A blank subject is replaced by a
// placeholder.
func (s *ContactService) Submit(ctx context.Context, input ContactInput) (types.Contact, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Message = strings.TrimSpace(input.Message)
	if err := validateInput(input); err != nil {
		return types.Contact{}, err
	}
	if input.Subject == "" {
		input.Subject = defaultContactSubject
	}
	return s.repo.Create(ctx, types.Contact{
		Name:    input.Name,
		Email:   input.Email,
		Subject: input.Subject,
		Message: input.Message,
	})
}

// List returns all messages, newest first.
func (s *ContactService) List(ctx context.Context) ([]types.Contact, error) {
	return s.repo.List(ctx)
}

func (s *ContactService) MarkRead(ctx context.Context, id string) (types.Contact, error) {
	return s.repo.MarkRead(ctx, strings.TrimSpace(id))
}

func (s *ContactService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}
