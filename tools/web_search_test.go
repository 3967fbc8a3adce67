package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	query string
	limit int
	err   error
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	s.query, s.limit = query, limit
	if s.err != nil {
		return nil, s.err
	}
	return []SearchResult{{Title: "hit", Link: "https://example.com"}}, nil
}

func TestWebSearch_Run(t *testing.T) {
	tests := []struct {
		name      string
		input     WebSearchInput
		wantQuery string
		wantLimit int
	}{
		{name: "default limit", input: WebSearchInput{Query: " Acme revenue "}, wantQuery: "Acme revenue", wantLimit: DefaultNumResults},
		{name: "explicit limit", input: WebSearchInput{Query: "Acme", NumResults: 3}, wantQuery: "Acme", wantLimit: 3},
		{name: "capped limit", input: WebSearchInput{Query: "Acme", NumResults: 500}, wantQuery: "Acme", wantLimit: maxNumResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSearcher{}
			out, err := NewWebSearch(stub, 0).Run(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, stub.query)
			assert.Equal(t, tt.wantLimit, stub.limit)
			assert.Equal(t, tt.wantQuery, out.Query)
			assert.Len(t, out.Results, 1)
		})
	}
}

func TestWebSearch_ConfiguredDefault(t *testing.T) {
	stub := &stubSearcher{}
	_, err := NewWebSearch(stub, 5).Run(context.Background(), WebSearchInput{Query: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, 5, stub.limit)
}

func TestWebSearch_RunErrors(t *testing.T) {
	_, err := NewWebSearch(&stubSearcher{}, 0).Run(context.Background(), WebSearchInput{Query: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	boom := errors.New("quota")
	_, err = NewWebSearch(&stubSearcher{err: boom}, 0).Run(context.Background(), WebSearchInput{Query: "Acme"})
	assert.ErrorIs(t, err, boom)
}

func TestSerperSearcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var req serperRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Acme Corp earnings", req.Q)
		assert.Equal(t, 2, req.Num)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"Q1","link":"https://a.example","snippet":"up 5%","date":"Apr 2, 2024"},
			{"title":"Q2","link":"https://b.example","snippet":"up 7%"},
			{"title":"Q3","link":"https://c.example","snippet":"flat"}
		]}`))
	}))
	defer srv.Close()

	results, err := NewSerperSearcher("secret", srv.URL, time.Second).Search(context.Background(), "Acme Corp earnings", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Title: "Q1", Link: "https://a.example", Snippet: "up 5%", Date: "Apr 2, 2024"}, results[0])
}

func TestSerperSearcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewSerperSearcher("bad", srv.URL, time.Second).Search(context.Background(), "Acme", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid api key")
}

const duckDuckGoPage = `<html><body>
<div class="result">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Finvestors.acme.example%2F10k&rut=x">Acme 10-K Acme 10-K</a>
  <a class="result__snippet">Annual report for fiscal 2024.</a>
</div>
<div class="result">
  <a class="result__a" href="https://news.example/acme">Acme news</a>
  <a class="result__snippet">Shares rose.</a>
</div>
<div class="result">
  <a class="result__a" href="https://third.example">Third</a>
</div>
</body></html>`

func TestDuckDuckGoSearcher(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(duckDuckGoPage))
	}))
	defer srv.Close()

	results, err := NewDuckDuckGoSearcher(srv.URL+"/html/", time.Second).Search(context.Background(), "Acme Corp 10-K", 2)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp 10-K", gotQuery)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Title: "Acme 10-K", Link: "https://investors.acme.example/10k", Snippet: "Annual report for fiscal 2024."}, results[0])
	assert.Equal(t, "https://news.example/acme", results[1].Link)
}

func TestDuckDuckGoSearcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDuckDuckGoSearcher(srv.URL+"/html/", time.Second)
	_, err := d.Search(context.Background(), "Acme", 5)
	assert.Error(t, err)

	_, err = d.Search(context.Background(), "", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Search(ctx, "Acme", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDuckDuckGoSearcher_CancelInFlight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := NewDuckDuckGoSearcher(srv.URL+"/html/", 10*time.Second).Search(ctx, "Acme", 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveResultLink(t *testing.T) {
	assert.Equal(t, "https://a.example/x", resolveResultLink("//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.example%2Fx"))
	assert.Equal(t, "https://b.example/y", resolveResultLink("//b.example/y"))
	assert.Equal(t, "https://c.example", resolveResultLink(" https://c.example "))
	assert.Equal(t, "", resolveResultLink(""))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Acme 10-K", cleanTitle("Acme 10-K Acme 10-K"))
	assert.Equal(t, "Acme quarterly results", cleanTitle("  Acme   quarterly results "))
}
