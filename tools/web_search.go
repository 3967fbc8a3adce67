package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const (
	DefaultSerperURL     = "https://google.serper.dev/search"
	DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	DefaultNumResults    = 8
	maxNumResults        = 20
)

var ErrEmptyQuery = errors.New("search query is empty")

// SearchResult is a single organic search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
}

// Searcher is the web search capability used by research agents.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type WebSearchInput struct {
	Query      string `json:"query" jsonschema_description:"Search query, e.g. 'Acme Corp 10-K 2024 revenue'"`
	NumResults int    `json:"num_results,omitempty" jsonschema_description:"Number of results to return, default 8, max 20"`
}

type WebSearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// WebSearch adapts a Searcher to the tool calling convention.
type WebSearch struct {
	searcher       Searcher
	defaultResults int
}

// NewWebSearch wraps searcher. defaultResults applies when a call does not
// ask for a result count; zero means DefaultNumResults.
func NewWebSearch(searcher Searcher, defaultResults int) *WebSearch {
	if defaultResults <= 0 {
		defaultResults = DefaultNumResults
	}
	return &WebSearch{searcher: searcher, defaultResults: defaultResults}
}

func (w *WebSearch) Run(ctx context.Context, input WebSearchInput) (WebSearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return WebSearchOutput{}, ErrEmptyQuery
	}
	limit := input.NumResults
	if limit <= 0 {
		limit = w.defaultResults
	}
	if limit > maxNumResults {
		limit = maxNumResults
	}
	results, err := w.searcher.Search(ctx, query, limit)
	if err != nil {
		return WebSearchOutput{}, err
	}
	return WebSearchOutput{Query: query, Results: results}, nil
}

// SerperSearcher queries the Serper Google search API.
type SerperSearcher struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

func NewSerperSearcher(apiKey string, endpoint string, timeout time.Duration) *SerperSearcher {
	if endpoint == "" {
		endpoint = DefaultSerperURL
	}
	return &SerperSearcher{
		APIKey:   apiKey,
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []SearchResult `json:"organic"`
}

func (s *SerperSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	body, err := json.Marshal(serperRequest{Q: query, Num: limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}
	if len(out.Organic) > limit {
		out.Organic = out.Organic[:limit]
	}
	return out.Organic, nil
}

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML endpoint. It needs no API key.
type DuckDuckGoSearcher struct {
	Endpoint string
	Timeout  time.Duration
}

func NewDuckDuckGoSearcher(endpoint string, timeout time.Duration) *DuckDuckGoSearcher {
	if endpoint == "" {
		endpoint = DefaultDuckDuckGoURL
	}
	return &DuckDuckGoSearcher{Endpoint: endpoint, Timeout: timeout}
}

func (d *DuckDuckGoSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (compatible; fundamental-analyst/1.0)"),
		colly.StdlibContext(ctx),
	)
	if d.Timeout > 0 {
		c.SetRequestTimeout(d.Timeout)
	}

	var results []SearchResult

	c.OnHTML(".result", func(e *colly.HTMLElement) {
		if len(results) >= limit {
			return
		}
		title := cleanTitle(e.ChildText(".result__a"))
		link := resolveResultLink(e.ChildAttr(".result__a", "href"))
		if title == "" || link == "" {
			return
		}
		results = append(results, SearchResult{
			Title:   title,
			Link:    link,
			Snippet: strings.TrimSpace(e.ChildText(".result__snippet")),
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		logger().Warn("search request failed", slog.String("url", r.Request.URL.String()), slog.Int("status", r.StatusCode), slog.String("error", err.Error()))
		visitErr = fmt.Errorf("duckduckgo returned %d: %w", r.StatusCode, err)
	})

	target := d.Endpoint + "?" + url.Values{"q": {query}}.Encode()
	if err := c.Visit(target); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("duckduckgo search: %w", err)
	}
	c.Wait()

	if visitErr != nil {
		return nil, visitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveResultLink unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resolveResultLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// cleanTitle removes duplicate trailing parts in the title
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	words := strings.Fields(title)
	for i := 1; i <= len(words)/2; i++ {
		if strings.Join(words[len(words)-i:], " ") == strings.Join(words[len(words)-2*i:len(words)-i], " ") {
			return strings.Join(words[:len(words)-i], " ")
		}
	}
	return strings.Join(words, " ")
}
