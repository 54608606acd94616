//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/internal/db"
	"github.com/devfolio/apiserver/internal/server"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	serverPort    = 18080
	adminEmail    = "e2e-admin@example.com"
	adminPassword = "testpass123!"
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setTestEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}
	teardown := func() { _ = dockerCompose(context.Background(), root, "down") }

	if err := waitForPostgres(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		teardown()
		os.Exit(1)
	}

	if err := runMigrations(root, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		teardown()
		os.Exit(1)
	}

	if err := seedAdmin(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin: %v\n", err)
		teardown()
		os.Exit(1)
	}

	srvCtx, stopServer := context.WithCancel(context.Background())
	done, err := startServer(srvCtx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		stopServer()
		teardown()
		os.Exit(1)
	}
	shutdown := func() {
		stopServer()
		<-done
		teardown()
	}

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		shutdown()
		os.Exit(1)
	}

	code := m.Run()
	shutdown()
	os.Exit(code)
}

func TestPortfolioLifecycle(t *testing.T) {
	token := login(t)
	title := fmt.Sprintf("E2E Project %d", time.Now().UnixNano())

	var created struct {
		ID           string   `json:"id"`
		Slug         string   `json:"slug"`
		Technologies []string `json:"technologies"`
	}
	status := call(t, http.MethodPost, "/api/portfolio", token, map[string]any{
		"title":        title,
		"description":  "<p>End to end</p>",
		"category":     "web",
		"technologies": []string{"Go", "Postgres", "React"},
		"published":    true,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"Go", "Postgres", "React"}, created.Technologies)

	status = call(t, http.MethodPost, "/api/portfolio", token, map[string]any{
		"title": title, "description": "dup", "category": "web",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var bySlug, byID struct {
		ID    string `json:"id"`
		Views int    `json:"views"`
	}
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, "/api/portfolio/"+created.Slug, "", nil, &bySlug))
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, "/api/portfolio/"+created.ID, "", nil, &byID))
	assert.Equal(t, bySlug.ID, byID.ID)
	assert.Equal(t, bySlug.Views+1, byID.Views)

	require.Eventually(t, func() bool {
		return strings.Contains(fetchSitemap(t), "/portfolio/"+created.Slug)
	}, 5*time.Second, 100*time.Millisecond)

	require.Equal(t, http.StatusOK, call(t, http.MethodPatch, "/api/portfolio/"+created.ID, token,
		map[string]any{"published": false}, nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, "/api/portfolio/"+created.Slug, "", nil, nil))
	assert.NotContains(t, fetchSitemap(t), "/portfolio/"+created.Slug)

	require.Equal(t, http.StatusOK, call(t, http.MethodDelete, "/api/portfolio/"+created.ID, token, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, http.MethodGet, "/api/portfolio/"+created.ID, token, nil, nil))
}

func TestContactRequiresAdminToList(t *testing.T) {
	status := call(t, http.MethodPost, "/api/contact", "", map[string]any{
		"name": "E2E", "email": "e2e@example.com", "message": "hello",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, http.StatusUnauthorized, call(t, http.MethodGet, "/api/contact", "", nil, nil))

	var contacts []struct {
		Email string `json:"email"`
	}
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, "/api/contact", login(t), nil, &contacts))
	assert.NotEmpty(t, contacts)
}

func login(t *testing.T) string {
	t.Helper()
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	status := call(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": adminEmail, "password": adminPassword,
	}, &resp)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

// call sends a JSON request and decodes the envelope's data into out.
func call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return resp.StatusCode
}

func fetchSitemap(t *testing.T) string {
	t.Helper()
	resp, err := http.Get(baseURL + "/sitemap.xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func setTestEnv() {
	env := map[string]string{
		"JWT_SECRET":           "test-secret",
		"SERVER_PORT":          fmt.Sprintf("%d", serverPort),
		"DB_HOST":              "localhost",
		"DB_PORT":              "5432",
		"DB_USER":              "portfolio",
		"DB_PASSWORD":          "password",
		"DB_NAME":              "portfolio_db",
		"DB_USE_SSL":           "false",
		"STORAGE_BACKEND":      "minio",
		"MINIO_ACCESS_KEY":     "minioadmin",
		"MINIO_SECRET_KEY":     "minioadmin",
		"MINIO_BUCKET":         "portfolio-e2e",
		"MQ_BACKEND":           "memory",
		"SITEMAP_OUTPUT_PATH":  filepath.Join(os.TempDir(), "devfolio-e2e-sitemap.xml"),
		"LOG_LEVEL":            "warn",
		"AI_API_KEY":           "",
		"FRONTEND_ORIGIN":      "http://localhost:5173",
		"UPLOAD_MAX_FILE_SIZE": "5242880",
	}
	for k, v := range env {
		_ = os.Setenv(k, v)
	}
}

func seedAdmin(ctx context.Context, cfg config.Config) error {
	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, _, err = services.NewUserService(store.NewUserRepository(conn)).EnsureAdmin(ctx, services.AdminInput{
		Email: adminEmail, Name: "E2E Admin", Password: adminPassword,
	})
	return err
}

func startServer(ctx context.Context, cfg config.Config) (<-chan struct{}, error) {
	srv, err := server.New(ctx, cfg, zap.NewNop())
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	return done, nil
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	conn, err := sql.Open("postgres", db.PostgresURL(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string, cfg config.Config) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")
	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
