package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/imaging"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type memUsers struct {
	mu    sync.Mutex
	users map[string]types.User
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) Create(_ context.Context, u types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.NewString()
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) Update(_ context.Context, u types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return u, nil
}

type memPortfolios struct {
	items map[string]types.Portfolio
}

func (m *memPortfolios) List(_ context.Context, f store.PortfolioFilter) ([]types.Portfolio, error) {
	out := make([]types.Portfolio, 0)
	for _, item := range m.items {
		if f.PublishedOnly && !item.Published {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *memPortfolios) Get(_ context.Context, idOrSlug string) (types.Portfolio, error) {
	for _, item := range m.items {
		if item.ID == idOrSlug || item.Slug == idOrSlug {
			return item, nil
		}
	}
	return types.Portfolio{}, store.ErrNotFound
}

func (m *memPortfolios) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	for _, item := range m.items {
		if item.Slug == slug && item.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPortfolios) Create(_ context.Context, item types.Portfolio) (types.Portfolio, error) {
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	m.items[item.ID] = item
	return item, nil
}

func (m *memPortfolios) Update(_ context.Context, item types.Portfolio) (types.Portfolio, error) {
	m.items[item.ID] = item
	return item, nil
}

func (m *memPortfolios) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memPortfolios) IncrementViews(_ context.Context, id string) (int, error) {
	item := m.items[id]
	item.Views++
	m.items[id] = item
	return item.Views, nil
}

func (m *memPortfolios) SetSummary(_ context.Context, id, summary string) (int64, error) {
	item, ok := m.items[id]
	if !ok || item.Summary != nil {
		return 0, nil
	}
	item.Summary = &summary
	m.items[id] = item
	return 1, nil
}

func (m *memPortfolios) SitemapEntries(context.Context) ([]store.SitemapEntry, error) {
	out := make([]store.SitemapEntry, 0)
	for _, item := range m.items {
		if item.Published {
			out = append(out, store.SitemapEntry{Slug: item.Slug, UpdatedAt: item.UpdatedAt})
		}
	}
	return out, nil
}

type memBlogs struct {
	posts map[string]types.Blog
}

func (m *memBlogs) List(_ context.Context, f store.BlogFilter) ([]types.Blog, error) {
	out := make([]types.Blog, 0)
	for _, p := range m.posts {
		if f.PublishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memBlogs) Get(_ context.Context, idOrSlug string) (types.Blog, error) {
	for _, p := range m.posts {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			return p, nil
		}
	}
	return types.Blog{}, store.ErrNotFound
}

func (m *memBlogs) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	for _, p := range m.posts {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memBlogs) Create(_ context.Context, p types.Blog) (types.Blog, error) {
	p.ID = uuid.NewString()
	m.posts[p.ID] = p
	return p, nil
}

func (m *memBlogs) Update(_ context.Context, p types.Blog) (types.Blog, error) {
	m.posts[p.ID] = p
	return p, nil
}

func (m *memBlogs) Delete(_ context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memBlogs) IncrementViews(_ context.Context, id string) (int, error) {
	p := m.posts[id]
	p.Views++
	m.posts[id] = p
	return p.Views, nil
}

func (m *memBlogs) SitemapEntries(context.Context) ([]store.SitemapEntry, error) {
	out := make([]store.SitemapEntry, 0)
	for _, p := range m.posts {
		if p.Published {
			out = append(out, store.SitemapEntry{Slug: p.Slug, UpdatedAt: p.UpdatedAt})
		}
	}
	return out, nil
}

type memContacts struct {
	contacts []types.Contact
}

func (m *memContacts) List(context.Context) ([]types.Contact, error) {
	return m.contacts, nil
}

func (m *memContacts) Create(_ context.Context, c types.Contact) (types.Contact, error) {
	c.ID = uuid.NewString()
	m.contacts = append(m.contacts, c)
	return c, nil
}

func (m *memContacts) MarkRead(_ context.Context, id string) (types.Contact, error) {
	for i := range m.contacts {
		if m.contacts[i].ID == id {
			m.contacts[i].Read = true
			return m.contacts[i], nil
		}
	}
	return types.Contact{}, store.ErrNotFound
}

func (m *memContacts) Delete(_ context.Context, id string) error {
	for i := range m.contacts {
		if m.contacts[i].ID == id {
			m.contacts = append(m.contacts[:i], m.contacts[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type memMedia struct {
	saved []types.Media
}

func (m *memMedia) Create(_ context.Context, media types.Media) (types.Media, error) {
	media.ID = uuid.NewString()
	m.saved = append(m.saved, media)
	return media, nil
}

type memObjects struct {
	mu   sync.Mutex
	puts map[string]int
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := io.Copy(io.Discard, r)
	m.puts[key] = int(n)
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.puts, key)
	return nil
}

func (m *memObjects) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fixedSummarizer string

func (s fixedSummarizer) Summarize(context.Context, string) string { return string(s) }

// testApp wires every router over in-memory repositories.
type testApp struct {
	router     http.Handler
	auth       *Authenticator
	users      *memUsers
	portfolios *memPortfolios
	blogs      *memBlogs
	contacts   *memContacts
	media      *memMedia
	objects    *memObjects
	admin      types.User
	member     types.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zap.NewNop()

	auth, err := NewAuthenticator(config.AuthConfig{Secret: testSecret, TokenTTL: time.Hour, CookieName: "token"})
	require.NoError(t, err)

	app := &testApp{
		auth:       auth,
		users:      &memUsers{users: map[string]types.User{}},
		portfolios: &memPortfolios{items: map[string]types.Portfolio{}},
		blogs:      &memBlogs{posts: map[string]types.Blog{}},
		contacts:   &memContacts{},
		media:      &memMedia{},
		objects:    &memObjects{puts: map[string]int{}},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	app.admin, _ = app.users.Create(context.Background(), types.User{
		Email: "admin@example.com", Name: "Admin", Role: types.RoleAdmin, PasswordHash: string(hash),
	})
	app.member, _ = app.users.Create(context.Background(), types.User{
		Email: "user@example.com", Name: "User", Role: types.RoleUser, PasswordHash: string(hash),
	})

	sitemapSvc := services.NewSitemapService(app.portfolios, app.blogs, nil, services.SitemapOptions{
		SiteURL:      "https://example.com",
		OutputPath:   t.TempDir() + "/sitemap.xml",
		StaticRoutes: []string{"/", "/about", "/portfolio", "/blog", "/contact"},
	}, logger)
	userSvc := services.NewUserService(app.users)
	portfolioSvc := services.NewPortfolioService(app.portfolios, fixedSummarizer(""), sitemapSvc, logger)
	blogSvc := services.NewBlogService(app.blogs, sitemapSvc, logger)
	contactSvc := services.NewContactService(app.contacts)
	uploadSvc := services.NewUploadService(app.media, app.objects,
		imaging.NewProcessor(imaging.Options{MaxWidth: 1920, MaxHeight: 1080, Quality: 80}),
		services.UploadLimits{MaxFileSize: 64 << 10, MaxFiles: 3}, logger)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) { AuthRouter(r, userSvc, auth, logger) })
		r.Route("/portfolio", func(r chi.Router) { PortfolioRouter(r, portfolioSvc, auth, logger) })
		r.Route("/blog", func(r chi.Router) { BlogRouter(r, blogSvc, auth, logger) })
		r.Route("/contact", func(r chi.Router) { ContactRouter(r, contactSvc, auth, logger) })
		r.Route("/upload", func(r chi.Router) { UploadRouter(r, uploadSvc, auth, logger) })
	})
	r.Method(http.MethodGet, "/sitemap.xml", NewSitemapHandler(sitemapSvc, logger))
	app.router = r
	return app
}

func (a *testApp) token(t *testing.T, u types.User) string {
	t.Helper()
	token, _, err := a.auth.Issue(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return token
}

// do sends a request with an optional JSON body and bearer token.
func (a *testApp) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func decodeEnvelope[T any](t *testing.T, rec *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
