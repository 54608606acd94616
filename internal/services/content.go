package services

import (
	"context"
	"strings"
	"time"
)

// Summarizer produces a short plain-text summary of an HTML or text body.
// An empty result means no summary is available.
type Summarizer interface {
	Summarize(ctx context.Context, body string) string
}

// ChangeNotifier is asked to rebuild derived artifacts after published
// content may have changed.
type ChangeNotifier interface {
	RequestRegeneration(ctx context.Context, reason string)
}

type noopNotifier struct{}

func (noopNotifier) RequestRegeneration(context.Context, string) {}

type noopSummarizer struct{}

func (noopSummarizer) Summarize(context.Context, string) string { return "" }

// ReadOptions controls visibility and side effects of a detail read.
type ReadOptions struct {
	// IncludeDrafts lets admins fetch unpublished records.
	IncludeDrafts bool
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and bare calendar dates.
func parseDate(value string) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

// cleanList trims entries and drops empty ones.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
