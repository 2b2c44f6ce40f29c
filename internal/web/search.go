package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	"github.com/leonardcser/querycache/internal/cache"
)

const maxSearchResults = 20

type SearchResult struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Searcher scrapes DuckDuckGo's HTML endpoint and shields it behind a cache
// instance. Concurrent searches for the same query are collapsed into one
// upstream request.
type Searcher struct {
	client *http.Client
	store  cache.Cacher
	group  singleflight.Group
}

func NewSearcher(store cache.Cacher) *Searcher {
	return &Searcher{
		client: &http.Client{Timeout: 15 * time.Second},
		store:  store,
	}
}

// Search returns up to limit results for query, serving from the cache when
// it can. Fresh results are cached fire-and-forget: a slow daemon never
// delays the caller.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = 10
	}

	if v, hit, err := s.store.Fetch(q); err == nil && hit {
		var cached []SearchResult
		if json.Unmarshal(v, &cached) == nil {
			return clipResults(cached, limit), nil
		}
	}

	v, err, _ := s.group.Do(q, func() (any, error) {
		results, err := s.scrape(ctx, q)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(results); err == nil {
			s.store.Cache(q, b)
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return clipResults(v.([]SearchResult), limit), nil
}

// scrape always collects up to maxSearchResults so the cached set can serve
// any later limit.
func (s *Searcher) scrape(ctx context.Context, q string) ([]SearchResult, error) {
	endpoint := "https://html.duckduckgo.com/html/"
	values := url.Values{"q": {q}, "kl": {"us-en"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", NextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("duckduckgo status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, maxSearchResults)
	// Concrete selectors from the DuckDuckGo HTML endpoint structure.
	doc.Find("div.result.results_links.results_links_deep.web-result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		a := sel.Find("a.result__a").First()
		link := strings.TrimSpace(a.AttrOr("href", ""))
		title := singleLine(a.Text())
		desc := singleLine(sel.Find("a.result__snippet").First().Text())
		if title != "" && link != "" {
			results = append(results, SearchResult{Title: title, Description: desc, Link: extractResultURL(link)})
		}
		return len(results) < maxSearchResults
	})

	if len(results) == 0 {
		// Fallback: scan anchor list and nearest snippet up the tree.
		doc.Find("a.result__a").EachWithBreak(func(_ int, n *goquery.Selection) bool {
			if len(results) >= maxSearchResults {
				return false
			}
			title := singleLine(n.Text())
			link := strings.TrimSpace(n.AttrOr("href", ""))
			desc := singleLine(n.Parents().Find("a.result__snippet").First().Text())
			results = append(results, SearchResult{Title: title, Description: desc, Link: extractResultURL(link)})
			return true
		})
	}
	return results, nil
}

// extractResultURL unwraps DuckDuckGo's redirect URL format.
// Input: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
// Output: https://example.com
// Anything that does not parse as a redirect is returned as-is.
func extractResultURL(ddgURL string) string {
	if strings.HasPrefix(ddgURL, "//duckduckgo.com/l/") {
		ddgURL = "https:" + ddgURL
	}

	u, err := url.Parse(ddgURL)
	if err != nil {
		return ddgURL
	}

	// The uddg parameter carries the destination URL.
	uddg := u.Query().Get("uddg")
	if uddg == "" {
		return ddgURL
	}

	actualURL, err := url.QueryUnescape(uddg)
	if err != nil {
		return ddgURL
	}
	return actualURL
}

func clipResults(results []SearchResult, limit int) []SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(s), " ")
}
