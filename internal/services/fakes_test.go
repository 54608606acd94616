package services

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/devfolio/apiserver/internal/imaging"
	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type fakePortfolioRepo struct {
	items map[string]types.Portfolio
}

func newFakePortfolioRepo(items ...types.Portfolio) *fakePortfolioRepo {
	r := &fakePortfolioRepo{items: map[string]types.Portfolio{}}
	for _, item := range items {
		r.items[item.ID] = item
	}
	return r
}

func (r *fakePortfolioRepo) List(_ context.Context, f store.PortfolioFilter) ([]types.Portfolio, error) {
	out := make([]types.Portfolio, 0)
	for _, item := range r.items {
		if f.PublishedOnly && !item.Published {
			continue
		}
		if f.FeaturedOnly && !item.Featured {
			continue
		}
		if f.Category != "" && item.Category != f.Category {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakePortfolioRepo) Get(_ context.Context, idOrSlug string) (types.Portfolio, error) {
	if item, ok := r.items[idOrSlug]; ok {
		return item, nil
	}
	for _, item := range r.items {
		if item.Slug == idOrSlug {
			return item, nil
		}
	}
	return types.Portfolio{}, store.ErrNotFound
}

func (r *fakePortfolioRepo) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	for _, item := range r.items {
		if item.Slug == slug && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePortfolioRepo) Create(_ context.Context, item types.Portfolio) (types.Portfolio, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	r.items[item.ID] = item
	return item, nil
}

func (r *fakePortfolioRepo) Update(_ context.Context, item types.Portfolio) (types.Portfolio, error) {
	if _, ok := r.items[item.ID]; !ok {
		return types.Portfolio{}, store.ErrNotFound
	}
	item.UpdatedAt = time.Now()
	r.items[item.ID] = item
	return item, nil
}

func (r *fakePortfolioRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakePortfolioRepo) IncrementViews(_ context.Context, id string) (int, error) {
	item, ok := r.items[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	item.Views++
	r.items[id] = item
	return item.Views, nil
}

func (r *fakePortfolioRepo) SetSummary(_ context.Context, id, summary string) (int64, error) {
	item, ok := r.items[id]
	if !ok || item.Summary != nil {
		return 0, nil
	}
	item.Summary = &summary
	r.items[id] = item
	return 1, nil
}

// mockPortfolioRepo records calls for tests that assert which writes happen.
type mockPortfolioRepo struct {
	mock.Mock
}

func (m *mockPortfolioRepo) List(ctx context.Context, filter store.PortfolioFilter) ([]types.Portfolio, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]types.Portfolio)
	return items, args.Error(1)
}

func (m *mockPortfolioRepo) Get(ctx context.Context, idOrSlug string) (types.Portfolio, error) {
	args := m.Called(ctx, idOrSlug)
	item, _ := args.Get(0).(types.Portfolio)
	return item, args.Error(1)
}

func (m *mockPortfolioRepo) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	args := m.Called(ctx, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPortfolioRepo) Create(ctx context.Context, item types.Portfolio) (types.Portfolio, error) {
	args := m.Called(ctx, item)
	created, _ := args.Get(0).(types.Portfolio)
	return created, args.Error(1)
}

func (m *mockPortfolioRepo) Update(ctx context.Context, item types.Portfolio) (types.Portfolio, error) {
	args := m.Called(ctx, item)
	updated, _ := args.Get(0).(types.Portfolio)
	return updated, args.Error(1)
}

func (m *mockPortfolioRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPortfolioRepo) IncrementViews(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockPortfolioRepo) SetSummary(ctx context.Context, id, summary string) (int64, error) {
	args := m.Called(ctx, id, summary)
	written, _ := args.Get(0).(int64)
	return written, args.Error(1)
}

type fakeBlogRepo struct {
	posts map[string]types.Blog
}

func newFakeBlogRepo(posts ...types.Blog) *fakeBlogRepo {
	r := &fakeBlogRepo{posts: map[string]types.Blog{}}
	for _, p := range posts {
		r.posts[p.ID] = p
	}
	return r
}

func (r *fakeBlogRepo) List(_ context.Context, f store.BlogFilter) ([]types.Blog, error) {
	out := make([]types.Blog, 0)
	for _, p := range r.posts {
		if f.PublishedOnly && !p.Published {
			continue
		}
		if f.Tag != "" {
			found := false
			for _, tag := range p.Tags {
				found = found || tag == f.Tag
			}
			if !found {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeBlogRepo) Get(_ context.Context, idOrSlug string) (types.Blog, error) {
	if p, ok := r.posts[idOrSlug]; ok {
		return p, nil
	}
	for _, p := range r.posts {
		if p.Slug == idOrSlug {
			return p, nil
		}
	}
	return types.Blog{}, store.ErrNotFound
}

func (r *fakeBlogRepo) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	for _, p := range r.posts {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBlogRepo) Create(_ context.Context, post types.Blog) (types.Blog, error) {
	post.ID = uuid.NewString()
	r.posts[post.ID] = post
	return post, nil
}

func (r *fakeBlogRepo) Update(_ context.Context, post types.Blog) (types.Blog, error) {
	if _, ok := r.posts[post.ID]; !ok {
		return types.Blog{}, store.ErrNotFound
	}
	r.posts[post.ID] = post
	return post, nil
}

func (r *fakeBlogRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakeBlogRepo) IncrementViews(_ context.Context, id string) (int, error) {
	p, ok := r.posts[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	p.Views++
	r.posts[id] = p
	return p.Views, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) RequestRegeneration(ctx context.Context, reason string) {
	m.Called(ctx, reason)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, body string) string {
	return m.Called(ctx, body).String(0)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return m.Called(ctx, key, r, size, contentType).Error(0)
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

// putKey returns the key passed to the n-th Put call.
func (m *mockObjectStore) putKey(n int) string {
	seen := 0
	for _, call := range m.Calls {
		if call.Method != "Put" {
			continue
		}
		if seen == n {
			return call.Arguments.String(1)
		}
		seen++
	}
	return ""
}

type mockMediaRepo struct {
	mock.Mock
}

// Create echoes the row back with the ID given to Return.
func (m *mockMediaRepo) Create(ctx context.Context, media types.Media) (types.Media, error) {
	args := m.Called(ctx, media)
	if err := args.Error(1); err != nil {
		return types.Media{}, err
	}
	media.ID = args.String(0)
	return media, nil
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(data []byte) (imaging.Result, error) {
	args := m.Called(data)
	res, _ := args.Get(0).(imaging.Result)
	return res, args.Error(1)
}

var webpResult = imaging.Result{Data: []byte("RIFFwebp"), Width: 10, Height: 10, MimeType: imaging.MimeTypeWebP}

type fakeSitemapSource struct {
	entries []store.SitemapEntry
	err     error
}

func (s fakeSitemapSource) SitemapEntries(context.Context) ([]store.SitemapEntry, error) {
	return s.entries, s.err
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) PublishTask(ctx context.Context, channel string, task mq.Task) (string, error) {
	args := m.Called(ctx, channel, task)
	return args.String(0), args.Error(1)
}

func (m *mockQueue) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	return m.Called(ctx, channel, handler).Error(0)
}
