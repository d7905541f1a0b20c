// Package webimport fetches a single web page and reduces it to readable text
// that can be chunked like an uploaded document.
package webimport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	colly "github.com/gocolly/colly/v2"
	"golang.org/x/net/html/charset"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; lms-ai-backend/1.0; +https://github.com/lms-ai-backend)"

// minWords is the least readable text a page must have to be imported.
const minWords = 20

var (
	ErrUnsupportedURL = errors.New("only http and https URLs can be imported")
	ErrNoContent      = errors.New("page has no readable content")
)

// Page is the readable part of a fetched web page.
type Page struct {
	URL        string
	Title      string
	Text       string
	StatusCode int
}

type Fetcher struct {
	timeout   time.Duration
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{timeout: timeout, userAgent: userAgent}
}

// ValidateURL checks that rawURL is an absolute http(s) URL.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrUnsupportedURL
	}
	return u, nil
}

// Fetch downloads rawURL without following links and extracts its text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.MaxDepth(1),
		colly.DetectCharset(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(f.timeout)
	c.UserAgent = f.userAgent

	var (
		mu       sync.Mutex
		page     *Page
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Accept-Encoding", "gzip, br")
	})

	// The transport only decodes gzip; brotli bodies arrive compressed.
	c.OnResponse(func(r *colly.Response) {
		if !strings.Contains(r.Headers.Get("Content-Encoding"), "br") {
			return
		}
		body, err := decodeBody(r.Body, r.Headers.Get("Content-Type"))
		if err == nil {
			r.Body = body
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		mu.Lock()
		defer mu.Unlock()
		if page != nil {
			return
		}
		title, text := ExtractReadableText(e.DOM)
		page = &Page{
			URL:        e.Request.URL.String(),
			Title:      title,
			Text:       text,
			StatusCode: e.Response.StatusCode,
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		defer mu.Unlock()
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("fetch %s: status %d: %w", u, r.StatusCode, err)
			return
		}
		fetchErr = fmt.Errorf("fetch %s: %w", u, err)
	})

	if err := c.Visit(u.String()); err != nil && fetchErr == nil {
		fetchErr = fmt.Errorf("fetch %s: %w", u, err)
	}
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fetchErr != nil {
		return nil, fetchErr
	}
	if page == nil || len(strings.Fields(page.Text)) < minWords {
		return nil, ErrNoContent
	}
	if page.Title == "" {
		page.Title = u.Host
	}
	return page, nil
}

// decodeBody undoes brotli compression and converts the declared charset to UTF-8.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
	if err != nil {
		return nil, fmt.Errorf("brotli decode: %w", err)
	}

	utf8Reader, err := charset.NewReader(bytes.NewReader(decompressed), contentType)
	if err != nil {
		return decompressed, nil
	}
	decoded, err := io.ReadAll(utf8Reader)
	if err != nil || len(decoded) == 0 {
		return decompressed, nil
	}
	return decoded, nil
}

const noiseSelector = "script, style, noscript, template, svg, nav, footer, header, aside, form, " +
	".nav, .navbar, .footer, .header, .sidebar, .advertisement, .ads, .skip-link"

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, figcaption, td, th, dt, dd"

var rootSelectors = []string{"article", "main", "[role='main']", ".main-content", "#content", ".content", ".post", "body"}

// ExtractReadableText returns the page title and its main text with one
// paragraph per line. Navigation, scripts and other chrome are dropped.
func ExtractReadableText(sel *goquery.Selection) (string, string) {
	title := collapse(sel.Find("title").First().Text())
	if title == "" {
		title = collapse(sel.Find("h1").First().Text())
	}

	doc := sel.Clone()
	doc.Find(noiseSelector).Remove()

	root := doc.Find("body")
	for _, s := range rootSelectors {
		candidate := doc.Find(s).First()
		if candidate.Length() > 0 && len(strings.Fields(candidate.Text())) >= minWords {
			root = candidate
			break
		}
	}

	var paragraphs []string
	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Leaf blocks only, so nested lists are not repeated.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if text := collapse(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		for _, line := range strings.Split(root.Text(), "\n") {
			if text := collapse(line); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	}
	return title, strings.Join(paragraphs, "\n")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
