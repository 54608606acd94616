// Package sitemap renders sitemaps.org XML for the public site.
package sitemap

import (
	"encoding/xml"
	"strings"
	"time"
)

// XMLNamespace is the sitemap XML namespace.
const XMLNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreq represents the change frequency of a URL.
type ChangeFreq string

const (
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
)

// URL is a single <url> entry.
type URL struct {
	Loc        string     `xml:"loc"`
	LastMod    string     `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFreq `xml:"changefreq,omitempty"`
	Priority   string     `xml:"priority,omitempty"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Item is a published record addressed by slug under a section path.
type Item struct {
	Slug      string
	UpdatedAt time.Time
}

// Builder accumulates URLs relative to a base site URL.
type Builder struct {
	baseURL string
	urls    []URL
}

// NewBuilder creates a builder. A trailing slash on baseURL is ignored.
func NewBuilder(baseURL string) *Builder {
	return &Builder{
		baseURL: strings.TrimRight(baseURL, "/"),
		urls:    make([]URL, 0),
	}
}

// AddStatic adds a fixed route such as "/" or "/about".
func (b *Builder) AddStatic(route string) {
	priority := "0.8"
	freq := ChangeFreqMonthly
	if route == "" || route == "/" {
		priority = "1.0"
		freq = ChangeFreqDaily
	}
	b.urls = append(b.urls, URL{
		Loc:        b.loc(route),
		ChangeFreq: freq,
		Priority:   priority,
	})
}

// AddStatics adds each route in order.
func (b *Builder) AddStatics(routes []string) {
	for _, r := range routes {
		b.AddStatic(r)
	}
}

// AddItems adds one URL per item under section, e.g. "/blog/<slug>".
func (b *Builder) AddItems(section string, items []Item) {
	section = "/" + strings.Trim(section, "/")
	for _, item := range items {
		u := URL{
			Loc:        b.loc(section + "/" + item.Slug),
			ChangeFreq: ChangeFreqWeekly,
			Priority:   "0.7",
		}
		if !item.UpdatedAt.IsZero() {
			u.LastMod = item.UpdatedAt.UTC().Format(time.RFC3339)
		}
		b.urls = append(b.urls, u)
	}
}

// Len returns the number of URLs added so far.
func (b *Builder) Len() int {
	return len(b.urls)
}

// Build generates the sitemap XML document.
func (b *Builder) Build() ([]byte, error) {
	doc := urlSet{XMLNS: XMLNamespace, URLs: b.urls}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

func (b *Builder) loc(route string) string {
	if route == "" || route == "/" {
		return b.baseURL + "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return b.baseURL + route
}
