package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/internal/sitemap"
	"github.com/devfolio/apiserver/internal/store"
	"go.uber.org/zap"
)

// TaskKindSitemap marks sitemap regeneration tasks.
const TaskKindSitemap = "sitemap.regenerate"

// SitemapSource lists the published records of one content type.
type SitemapSource interface {
	SitemapEntries(ctx context.Context) ([]store.SitemapEntry, error)
}

// TaskQueue is the subset of mq.MQ used for deferred regeneration.
type TaskQueue interface {
	PublishTask(ctx context.Context, channel string, task mq.Task) (string, error)
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// SitemapOptions configures rendering and the static output file.
type SitemapOptions struct {
	SiteURL      string
	OutputPath   string
	StaticRoutes []string
	Channel      string
}

// SitemapService renders the sitemap for live requests and keeps the static
// file current.
type SitemapService struct {
	portfolios SitemapSource
	blogs      SitemapSource
	queue      TaskQueue
	opts       SitemapOptions
	logger     *zap.Logger
}

// NewSitemapService wires the sources. queue may be nil, in which case
// regeneration requests write the file synchronously.
func NewSitemapService(portfolios, blogs SitemapSource, queue TaskQueue, opts SitemapOptions, logger *zap.Logger) *SitemapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Channel == "" {
		opts.Channel = TaskKindSitemap
	}
	return &SitemapService{
		portfolios: portfolios,
		blogs:      blogs,
		queue:      queue,
		opts:       opts,
		logger:     logger.Named("sitemap"),
	}
}

// Render builds the sitemap XML with URLs rooted at baseURL.
func (s *SitemapService) Render(ctx context.Context, baseURL string) ([]byte, error) {
	portfolios, err := s.portfolios.SitemapEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list portfolio entries: %w", err)
	}
	blogs, err := s.blogs.SitemapEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blog entries: %w", err)
	}

	b := sitemap.NewBuilder(baseURL)
	b.AddStatics(s.opts.StaticRoutes)
	b.AddItems("/portfolio", sitemapItems(portfolios))
	b.AddItems("/blog", sitemapItems(blogs))
	return b.Build()
}

// WriteFile renders with the configured site URL and replaces the output
// file atomically.
func (s *SitemapService) WriteFile(ctx context.Context) error {
	body, err := s.Render(ctx, s.opts.SiteURL)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.opts.OutputPath, body); err != nil {
		return err
	}
	s.logger.Info("sitemap written", zap.String("path", s.opts.OutputPath), zap.Int("bytes", len(body)))
	return nil
}

// RequestRegeneration queues a rewrite of the static file. Failures are
// logged and never reach the caller.
func (s *SitemapService) RequestRegeneration(ctx context.Context, reason string) {
	if s.queue == nil {
		if err := s.WriteFile(ctx); err != nil {
			s.logger.Error("sitemap regeneration failed", zap.String("reason", reason), zap.Error(err))
		}
		return
	}
	task := mq.Task{Kind: TaskKindSitemap, Reason: reason}
	if _, err := s.queue.PublishTask(context.WithoutCancel(ctx), s.opts.Channel, task); err != nil {
		s.logger.Warn("queue sitemap regeneration failed", zap.String("reason", reason), zap.Error(err))
	}
}

// Consume processes regeneration tasks until ctx is done.
func (s *SitemapService) Consume(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	return s.queue.Subscribe(ctx, s.opts.Channel, s.HandleTask)
}

// HandleTask rewrites the static file for one queued task.
func (s *SitemapService) HandleTask(ctx context.Context, msg mq.Message) error {
	task, err := mq.DecodeTask(msg)
	if err != nil {
		// Redelivering a malformed body cannot succeed.
		s.logger.Warn("dropping malformed task", zap.String("id", msg.ID), zap.Error(err))
		return nil
	}
	if task.Kind != TaskKindSitemap {
		s.logger.Warn("dropping unexpected task", zap.String("id", msg.ID), zap.String("kind", task.Kind))
		return nil
	}
	s.logger.Debug("regenerating sitemap", zap.String("reason", task.Reason))
	return s.WriteFile(ctx)
}

func sitemapItems(entries []store.SitemapEntry) []sitemap.Item {
	items := make([]sitemap.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, sitemap.Item{Slug: e.Slug, UpdatedAt: e.UpdatedAt})
	}
	return items
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sitemap dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sitemap-*.xml")
	if err != nil {
		return fmt.Errorf("create temp sitemap: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp sitemap: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
