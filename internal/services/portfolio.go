package services

import (
	"context"
	"errors"
	"strings"

	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"go.uber.org/zap"
)

// PortfolioRepository defines persistence operations for portfolio items.
type PortfolioRepository interface {
	List(ctx context.Context, filter store.PortfolioFilter) ([]types.Portfolio, error)
	Get(ctx context.Context, idOrSlug string) (types.Portfolio, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, item types.Portfolio) (types.Portfolio, error)
	Update(ctx context.Context, item types.Portfolio) (types.Portfolio, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int, error)
	SetSummary(ctx context.Context, id, summary string) (int64, error)
}

// PortfolioInput is the full set of writable portfolio fields.
type PortfolioInput struct {
	Title          string   `json:"title" validate:"required,max=200"`
	Description    string   `json:"description" validate:"required"`
	Category       string   `json:"category" validate:"required,max=100"`
	Client         string   `json:"client" validate:"max=200"`
	CompletionDate *string  `json:"completionDate"`
	Technologies   []string `json:"technologies" validate:"max=50,dive,max=100"`
	ImageURLs      []string `json:"imageUrls" validate:"max=20"`
	ProjectURL     string   `json:"projectUrl" validate:"omitempty,url"`
	GithubURL      string   `json:"githubUrl" validate:"omitempty,url"`
	Published      bool     `json:"published"`
	Featured       bool     `json:"featured"`
	Order          int      `json:"order"`
}

// PortfolioPatch carries a partial update. Nil fields are left unchanged.
type PortfolioPatch struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Category       *string   `json:"category"`
	Client         *string   `json:"client"`
	CompletionDate *string   `json:"completionDate"`
	Technologies   *[]string `json:"technologies"`
	ImageURLs      *[]string `json:"imageUrls"`
	ProjectURL     *string   `json:"projectUrl"`
	GithubURL      *string   `json:"githubUrl"`
	Published      *bool     `json:"published"`
	Featured       *bool     `json:"featured"`
	Order          *int      `json:"order"`
}

func (p PortfolioPatch) apply(in *PortfolioInput) {
	setIf(&in.Title, p.Title)
	setIf(&in.Description, p.Description)
	setIf(&in.Category, p.Category)
	setIf(&in.Client, p.Client)
	if p.CompletionDate != nil {
		in.CompletionDate = p.CompletionDate
	}
	setIf(&in.Technologies, p.Technologies)
	setIf(&in.ImageURLs, p.ImageURLs)
	setIf(&in.ProjectURL, p.ProjectURL)
	setIf(&in.GithubURL, p.GithubURL)
	setIf(&in.Published, p.Published)
	setIf(&in.Featured, p.Featured)
	setIf(&in.Order, p.Order)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// PortfolioService encapsulates portfolio use-cases.
type PortfolioService struct {
	repo       PortfolioRepository
	summarizer Summarizer
	notifier   ChangeNotifier
	logger     *zap.Logger
}

func NewPortfolioService(repo PortfolioRepository, summarizer Summarizer, notifier ChangeNotifier, logger *zap.Logger) *PortfolioService {
	if summarizer == nil {
		summarizer = noopSummarizer{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortfolioService{
		repo:       repo,
		summarizer: summarizer,
		notifier:   notifier,
		logger:     logger.Named("portfolio"),
	}
}

// ListPublished returns published items, optionally narrowed to a category
// or to featured items.
func (s *PortfolioService) ListPublished(ctx context.Context, category string, featuredOnly bool) ([]types.Portfolio, error) {
	return s.repo.List(ctx, store.PortfolioFilter{
		PublishedOnly: true,
		FeaturedOnly:  featuredOnly,
		Category:      strings.TrimSpace(category),
	})
}

// ListAll returns every item including drafts.
func (s *PortfolioService) ListAll(ctx context.Context) ([]types.Portfolio, error) {
	return s.repo.List(ctx, store.PortfolioFilter{})
}

// Get fetches an item by id or slug, counts the view and fills in a missing
// summary for published items. Drafts are reported as not found unless
// opts.IncludeDrafts is set.
func (s *PortfolioService) Get(ctx context.Context, idOrSlug string, opts ReadOptions) (types.Portfolio, error) {
	item, err := s.repo.Get(ctx, strings.TrimSpace(idOrSlug))
	if err != nil {
		return types.Portfolio{}, err
	}
	if !item.Published && !opts.IncludeDrafts {
		return types.Portfolio{}, store.ErrNotFound
	}

	views, err := s.repo.IncrementViews(ctx, item.ID)
	if err != nil {
		return types.Portfolio{}, err
	}
	item.Views = views

	if item.Published && item.Summary == nil {
		s.fillSummary(ctx, &item)
	}
	return item, nil
}

// fillSummary generates and stores a summary. When another request stored
// one first, the stored text is used so the response matches the row.
func (s *PortfolioService) fillSummary(ctx context.Context, item *types.Portfolio) {
	summary := s.summarizer.Summarize(ctx, item.Description)
	if summary == "" {
		return
	}
	written, err := s.repo.SetSummary(ctx, item.ID, summary)
	if err != nil {
		s.logger.Warn("store summary failed", zap.String("id", item.ID), zap.Error(err))
		return
	}
	if written > 0 {
		item.Summary = &summary
		return
	}
	stored, err := s.repo.Get(ctx, item.ID)
	if err != nil {
		s.logger.Warn("reload summary failed", zap.String("id", item.ID), zap.Error(err))
		return
	}
	item.Summary = stored.Summary
}

func (s *PortfolioService) Create(ctx context.Context, input PortfolioInput) (types.Portfolio, error) {
	item, err := s.build(input)
	if err != nil {
		return types.Portfolio{}, err
	}
	if err := s.checkSlug(ctx, item.Slug, ""); err != nil {
		return types.Portfolio{}, err
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Portfolio{}, ErrSlugTaken
		}
		return types.Portfolio{}, err
	}
	s.notifier.RequestRegeneration(ctx, "portfolio.created")
	return created, nil
}

// Update applies a partial update. A title change regenerates the slug and
// a description change discards the stored summary.
func (s *PortfolioService) Update(ctx context.Context, id string, patch PortfolioPatch) (types.Portfolio, error) {
	existing, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.Portfolio{}, err
	}

	input := portfolioInputFrom(existing)
	patch.apply(&input)
	item, err := s.build(input)
	if err != nil {
		return types.Portfolio{}, err
	}

	if item.Slug != existing.Slug {
		if err := s.checkSlug(ctx, item.Slug, existing.ID); err != nil {
			return types.Portfolio{}, err
		}
	}

	item.ID = existing.ID
	item.Views = existing.Views
	item.CreatedAt = existing.CreatedAt
	if item.Description == existing.Description {
		item.Summary = existing.Summary
	}

	updated, err := s.repo.Update(ctx, item)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Portfolio{}, ErrSlugTaken
		}
		return types.Portfolio{}, err
	}
	s.notifier.RequestRegeneration(ctx, "portfolio.updated")
	return updated, nil
}

func (s *PortfolioService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.notifier.RequestRegeneration(ctx, "portfolio.deleted")
	return nil
}

func (s *PortfolioService) checkSlug(ctx context.Context, slug, excludeID string) error {
	exists, err := s.repo.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrSlugTaken
	}
	return nil
}

// build validates input and converts it to a record without identity fields.
func (s *PortfolioService) build(input PortfolioInput) (types.Portfolio, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.Client = strings.TrimSpace(input.Client)
	input.ProjectURL = strings.TrimSpace(input.ProjectURL)
	input.GithubURL = strings.TrimSpace(input.GithubURL)
	input.Technologies = cleanList(input.Technologies)
	input.ImageURLs = cleanList(input.ImageURLs)

	verr := &ValidationError{}
	if err := validateInput(input); err != nil {
		if !errors.As(err, &verr) {
			return types.Portfolio{}, err
		}
	}
	date, ok := parseDate(derefString(input.CompletionDate))
	if !ok {
		verr.Invalid = append(verr.Invalid, "completionDate")
	}
	slug := Slugify(input.Title)
	if input.Title != "" && slug == "" {
		verr.Invalid = append(verr.Invalid, "title")
	}
	if !verr.empty() {
		return types.Portfolio{}, verr
	}

	return types.Portfolio{
		Slug:           slug,
		Title:          input.Title,
		Description:    input.Description,
		Category:       input.Category,
		Client:         input.Client,
		CompletionDate: date,
		Technologies:   input.Technologies,
		ImageURLs:      input.ImageURLs,
		ProjectURL:     input.ProjectURL,
		GithubURL:      input.GithubURL,
		Published:      input.Published,
		Featured:       input.Featured,
		Order:          input.Order,
	}, nil
}

func portfolioInputFrom(item types.Portfolio) PortfolioInput {
	return PortfolioInput{
		Title:          item.Title,
		Description:    item.Description,
		Category:       item.Category,
		Client:         item.Client,
		CompletionDate: formatDate(item.CompletionDate),
		Technologies:   item.Technologies,
		ImageURLs:      item.ImageURLs,
		ProjectURL:     item.ProjectURL,
		GithubURL:      item.GithubURL,
		Published:      item.Published,
		Featured:       item.Featured,
		Order:          item.Order,
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
