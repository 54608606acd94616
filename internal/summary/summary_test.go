package summary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	in := "<p>Hello   <b>world</b></p>\n<script>alert(1)</script><ul><li>A &amp; B</li></ul>"
	assert.Equal(t, "Hello world A & B", PlainText(in))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "éé", Truncate("ééé", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGenerator(config.AIConfig{
		APIKey:        "test-key",
		BaseURL:       srv.URL + "/",
		Model:         "gpt-4o-mini",
		MaxInputChars: 10,
		Timeout:       5 * time.Second,
	}, nil)
}

func TestSummarizeSendsTruncatedPlainText(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  A tidy summary.  "}}]}`)
	})

	out := gen.Summarize(context.Background(), "<p>Hello <i>wide</i> world of Go</p>")
	assert.Equal(t, "A tidy summary.", out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Hello wide", got.Messages[1].Content)
}

func TestSummarizeReturnsEmptyOnFailure(t *testing.T) {
	calls := 0
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
	})

	assert.Equal(t, "", gen.Summarize(context.Background(), "some description"))
	assert.Equal(t, 1, calls)
}

func TestSummarizeReturnsEmptyOnNoChoices(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})
	assert.Equal(t, "", gen.Summarize(context.Background(), "some description"))
}

func TestDisabledGeneratorSkipsCall(t *testing.T) {
	gen := NewGenerator(config.AIConfig{Model: "gpt-4o-mini", MaxInputChars: 3000}, nil)
	assert.False(t, gen.Enabled())
	assert.Equal(t, "", gen.Summarize(context.Background(), "<p>text</p>"))
}

func TestSummarizeSkipsEmptyBody(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	assert.Equal(t, "", gen.Summarize(context.Background(), "<p> </p>"))
}
