package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const DefaultMaxPageChars = 8000

var logger = slog.Default

type ReadWebPageInput struct {
	URL      string `json:"url" jsonschema_description:"Absolute http(s) URL of the page to read"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema_description:"Maximum number of characters of page text to return, default 8000"`
}

// WebPage holds the readable part of a fetched page.
type WebPage struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated,omitempty"`
}

// PageReader fetches pages and reduces them to their visible text.
type PageReader struct {
	Client *http.Client
}

func NewPageReader(timeout time.Duration) *PageReader {
	return &PageReader{Client: &http.Client{Timeout: timeout}}
}

func (p *PageReader) Read(ctx context.Context, input ReadWebPageInput) (WebPage, error) {
	u, err := url.Parse(strings.TrimSpace(input.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return WebPage{}, errors.New("url must be an absolute http(s) URL")
	}
	maxChars := input.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxPageChars
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return WebPage{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; fundamental-analyst/1.0)")

	resp, err := p.Client.Do(req)
	if err != nil {
		return WebPage{}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WebPage{}, fmt.Errorf("failed to load page: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return WebPage{}, fmt.Errorf("parse page: %w", err)
	}

	page := WebPage{
		URL:   u.String(),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	page.Text, page.Truncated = visibleText(doc, maxChars)
	return page, nil
}

// visibleText collects paragraph-level text from the document body, skipping
// scripts, styles and navigation chrome.
func visibleText(doc *goquery.Document, maxChars int) (string, bool) {
	doc.Find("script, style, noscript, nav, header, footer, aside, form, svg").Remove()

	var b strings.Builder
	doc.Find("body").Find("h1, h2, h3, h4, p, li, td, th, pre").Each(func(i int, s *goquery.Selection) {
		// nested blocks are collected through their innermost element
		if s.Find("p, li, td, th, pre").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	})

	text := b.String()
	if text == "" {
		text = strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		return string(runes[:maxChars]), true
	}
	return text, false
}
