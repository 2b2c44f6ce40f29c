package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/sync/singleflight"

	"github.com/leonardcser/querycache/internal/cache"
	"github.com/leonardcser/querycache/internal/logger"
)

const (
	RequestTimeout  = 20 * time.Second
	MaxResponseSize = 1 * 1024 * 1024 // 1MB
	maxPageLinks    = 50
)

// Page is the readable summary of a fetched document.
type Page struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

// Fetcher downloads pages through a rate-limited colly collector and shields
// the network behind a cache instance. Concurrent fetches of the same URL
// are collapsed into one download.
type Fetcher struct {
	c     *colly.Collector
	store cache.Cacher
	group singleflight.Group
}

func NewFetcher(store cache.Cacher) *Fetcher {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
	)
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       1 * time.Second,
	})
	c.SetRequestTimeout(RequestTimeout)
	return &Fetcher{c: c, store: store}
}

// Fetch returns a summary of the document at rawURL, serving from the cache
// when it can. Fresh pages are cached fire-and-forget.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}

	if v, hit, err := f.store.Fetch(rawURL); err == nil && hit {
		var p Page
		if json.Unmarshal(v, &p) == nil {
			return &p, nil
		}
	}

	v, err, shared := f.group.Do(rawURL, func() (any, error) {
		body, finalURL, contentType, err := f.visit(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		page, err := parsePage(capBody(body), finalURL, contentType)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(page); err == nil {
			f.store.Cache(rawURL, b)
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debugf("fetch %q: joined in-flight download", rawURL)
	}
	return v.(*Page), nil
}

// visit downloads rawURL on a clone of the base collector. Clones share the
// rate-limiting backend but keep callbacks local to this call.
func (f *Fetcher) visit(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	var (
		body        []byte
		finalURL    string
		contentType string
	)

	c := f.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", NextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, "", "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", "", err
	}
	if len(body) == 0 {
		return nil, "", "", errors.New("empty response body")
	}
	return body, finalURL, contentType, nil
}

func capBody(body []byte) []byte {
	if len(body) <= MaxResponseSize {
		return body
	}
	body = body[:MaxResponseSize]
	return append(body, []byte("... [response trimmed due to size]")...)
}

// parsePage turns a downloaded body into a Page. Only text documents are
// supported; HTML additionally gets titles, links and a Markdown rendering.
func parsePage(body []byte, finalURL, contentType string) (*Page, error) {
	lowerCT := strings.ToLower(contentType)
	switch {
	case strings.Contains(lowerCT, "text/html"):
		return parseHTMLPage(body, finalURL)
	case strings.HasPrefix(lowerCT, "text/"):
		return &Page{URL: finalURL, Text: string(body)}, nil
	default:
		return nil, errors.New("unsupported content type: binary files like images or PDFs are not supported")
	}
}

func parseHTMLPage(body []byte, finalURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	// Remove non-visible elements.
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet").Remove()

	title := strings.TrimSpace(doc.Find("head > title").First().Text())
	desc := strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", ""))

	plainText := strings.TrimSpace(doc.Find("body").Text())
	plainText = strings.Join(strings.Fields(plainText), " ")

	links := collectLinks(doc, finalURL)

	// Drop anchors once links are extracted, then boilerplate chrome.
	doc.Find("a").Remove()
	doc.Find("header, footer, aside").Remove()

	bodyText := plainText
	if htmlStr, err := doc.Html(); err == nil {
		if markdown, err := htmltomarkdown.ConvertString(htmlStr); err == nil {
			bodyText = markdown
		}
	}

	return &Page{
		URL:         finalURL,
		Title:       title,
		Description: desc,
		Text:        bodyText,
		Links:       links,
	}, nil
}

// collectLinks gathers absolute, fragment-free links from the document,
// deduplicated and capped at maxPageLinks.
func collectLinks(doc *goquery.Document, finalURL string) []string {
	base, _ := url.Parse(finalURL)
	linkSet := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() && base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme == "javascript" || u.Scheme == "mailto" || u.Scheme == "tel" || u.Scheme == "" {
			return
		}
		u.Fragment = ""
		linkSet[u.String()] = struct{}{}
	})

	links := make([]string, 0, len(linkSet))
	for link := range linkSet {
		links = append(links, link)
	}
	sort.Strings(links)
	if len(links) > maxPageLinks {
		links = links[:maxPageLinks]
	}
	return links
}
