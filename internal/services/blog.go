package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/internal/summary"
	"github.com/devfolio/apiserver/types"
	"go.uber.org/zap"
)

const wordsPerMinute = 200

// BlogRepository defines persistence operations for blog posts.
type BlogRepository interface {
	List(ctx context.Context, filter store.BlogFilter) ([]types.Blog, error)
	Get(ctx context.Context, idOrSlug string) (types.Blog, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, post types.Blog) (types.Blog, error)
	Update(ctx context.Context, post types.Blog) (types.Blog, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) (int, error)
}

// BlogInput is the full set of writable blog fields.
type BlogInput struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Excerpt    string   `json:"excerpt" validate:"required,max=500"`
	Content    string   `json:"content" validate:"required"`
	CoverImage string   `json:"coverImage"`
	Category   string   `json:"category" validate:"required,max=100"`
	Tags       []string `json:"tags" validate:"max=30,dive,max=50"`
	Published  bool     `json:"published"`
	Featured   bool     `json:"featured"`
	ReadTime   string   `json:"readTime" validate:"max=50"`
}

// BlogPatch carries a partial update. Nil fields are left unchanged.
type BlogPatch struct {
	Title      *string   `json:"title"`
	Excerpt    *string   `json:"excerpt"`
	Content    *string   `json:"content"`
	CoverImage *string   `json:"coverImage"`
	Category   *string   `json:"category"`
	Tags       *[]string `json:"tags"`
	Published  *bool     `json:"published"`
	Featured   *bool     `json:"featured"`
	ReadTime   *string   `json:"readTime"`
}

func (p BlogPatch) apply(in *BlogInput) {
	setIf(&in.Title, p.Title)
	setIf(&in.Excerpt, p.Excerpt)
	setIf(&in.Content, p.Content)
	setIf(&in.CoverImage, p.CoverImage)
	setIf(&in.Category, p.Category)
	setIf(&in.Tags, p.Tags)
	setIf(&in.Published, p.Published)
	setIf(&in.Featured, p.Featured)
	setIf(&in.ReadTime, p.ReadTime)
	// New content without an explicit read time gets a fresh estimate.
	if p.Content != nil && p.ReadTime == nil {
		in.ReadTime = ""
	}
}

// BlogService encapsulates blog use-cases.
type BlogService struct {
	repo     BlogRepository
	notifier ChangeNotifier
	logger   *zap.Logger
}

func NewBlogService(repo BlogRepository, notifier ChangeNotifier, logger *zap.Logger) *BlogService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlogService{repo: repo, notifier: notifier, logger: logger.Named("blog")}
}

// ListPublished returns published posts, optionally narrowed by category,
// tag or featured flag.
func (s *BlogService) ListPublished(ctx context.Context, category, tag string, featuredOnly bool) ([]types.Blog, error) {
	return s.repo.List(ctx, store.BlogFilter{
		PublishedOnly: true,
		FeaturedOnly:  featuredOnly,
		Category:      strings.TrimSpace(category),
		Tag:           strings.TrimSpace(tag),
	})
}

// ListAll returns every post including drafts.
func (s *BlogService) ListAll(ctx context.Context) ([]types.Blog, error) {
	return s.repo.List(ctx, store.BlogFilter{})
}

// Get fetches a post by id or slug and counts the view. Drafts are reported
// as not found unless opts.IncludeDrafts is set.
func (s *BlogService) Get(ctx context.Context, idOrSlug string, opts ReadOptions) (types.Blog, error) {
	post, err := s.repo.Get(ctx, strings.TrimSpace(idOrSlug))
	if err != nil {
		return types.Blog{}, err
	}
	if !post.Published && !opts.IncludeDrafts {
		return types.Blog{}, store.ErrNotFound
	}
	views, err := s.repo.IncrementViews(ctx, post.ID)
	if err != nil {
		return types.Blog{}, err
	}
	post.Views = views
	return post, nil
}

func (s *BlogService) Create(ctx context.Context, input BlogInput) (types.Blog, error) {
	post, err := s.build(input)
	if err != nil {
		return types.Blog{}, err
	}
	if err := s.checkSlug(ctx, post.Slug, ""); err != nil {
		return types.Blog{}, err
	}
	created, err := s.repo.Create(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Blog{}, ErrSlugTaken
		}
		return types.Blog{}, err
	}
	s.notifier.RequestRegeneration(ctx, "blog.created")
	return created, nil
}

// Update applies a partial update. A title change regenerates the slug.
func (s *BlogService) Update(ctx context.Context, id string, patch BlogPatch) (types.Blog, error) {
	existing, err := s.repo.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return types.Blog{}, err
	}

	input := blogInputFrom(existing)
	patch.apply(&input)
	post, err := s.build(input)
	if err != nil {
		return types.Blog{}, err
	}
	if post.Slug != existing.Slug {
		if err := s.checkSlug(ctx, post.Slug, existing.ID); err != nil {
			return types.Blog{}, err
		}
	}

	post.ID = existing.ID
	post.Views = existing.Views
	post.CreatedAt = existing.CreatedAt

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.Blog{}, ErrSlugTaken
		}
		return types.Blog{}, err
	}
	s.notifier.RequestRegeneration(ctx, "blog.updated")
	return updated, nil
}

func (s *BlogService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.notifier.RequestRegeneration(ctx, "blog.deleted")
	return nil
}

func (s *BlogService) checkSlug(ctx context.Context, slug, excludeID string) error {
	exists, err := s.repo.SlugExists(ctx, slug, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrSlugTaken
	}
	return nil
}

func (s *BlogService) build(input BlogInput) (types.Blog, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Excerpt = strings.TrimSpace(input.Excerpt)
	input.Category = strings.TrimSpace(input.Category)
	input.CoverImage = strings.TrimSpace(input.CoverImage)
	input.ReadTime = strings.TrimSpace(input.ReadTime)
	input.Tags = cleanList(input.Tags)
	if strings.TrimSpace(input.Content) == "" {
		input.Content = ""
	}

	verr := &ValidationError{}
	if err := validateInput(input); err != nil {
		if !errors.As(err, &verr) {
			return types.Blog{}, err
		}
	}
	slug := Slugify(input.Title)
	if input.Title != "" && slug == "" {
		verr.Invalid = append(verr.Invalid, "title")
	}
	if !verr.empty() {
		return types.Blog{}, verr
	}

	readTime := input.ReadTime
	if readTime == "" {
		readTime = EstimateReadTime(input.Content)
	}

	return types.Blog{
		Slug:       slug,
		Title:      input.Title,
		Excerpt:    input.Excerpt,
		Content:    input.Content,
		CoverImage: input.CoverImage,
		Category:   input.Category,
		Tags:       input.Tags,
		Published:  input.Published,
		Featured:   input.Featured,
		ReadTime:   readTime,
	}, nil
}

func blogInputFrom(post types.Blog) BlogInput {
	return BlogInput{
		Title:      post.Title,
		Excerpt:    post.Excerpt,
		Content:    post.Content,
		CoverImage: post.CoverImage,
		Category:   post.Category,
		Tags:       post.Tags,
		Published:  post.Published,
		Featured:   post.Featured,
		ReadTime:   post.ReadTime,
	}
}

// EstimateReadTime renders the reading time of an HTML body as "N min read",
// never less than one minute.
func EstimateReadTime(content string) string {
	words := len(strings.Fields(summary.PlainText(content)))
	minutes := int(math.Ceil(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
