// Package brand turns a company URL into evidence-tagged content for
// URL-derived scene generation. Every section carries the source URL and
// the verbatim extracted text, so downstream prompts can be constrained
// to real page content.
package brand

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"

	"github.com/davidrioja/reelforge/internal/core"
	"github.com/davidrioja/reelforge/internal/logging"
)

const (
	defaultUserAgent = "reelforge/1.0 (+https://github.com/davidrioja/reelforge)"
	maxBodyBytes     = 2 << 20 // 2MB
	maxSections      = 8
	maxSectionChars  = 1200
	maxPalette       = 6
)

var hexColorRe = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)

// Extractor implements core.BrandExtractor over plain HTTP.
type Extractor struct {
	client    *http.Client
	converter *md.Converter
	logger    *logging.Logger
	userAgent string
}

// Option configures the extractor.
type Option func(*Extractor)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

// WithUserAgent sets the User-Agent header sent with fetches.
func WithUserAgent(ua string) Option {
	return func(e *Extractor) { e.userAgent = ua }
}

// NewExtractor creates a brand extractor.
func NewExtractor(logger *logging.Logger, opts ...Option) *Extractor {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	e := &Extractor{
		client:    &http.Client{Timeout: 30 * time.Second},
		converter: converter,
		logger:    logger,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches the page and returns its evidence-tagged brand context.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*core.BrandContext, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return nil, core.ErrValidation("BAD_URL", "brand extraction needs an absolute http(s) URL")
	}

	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(strings.NewReader(body), pageURL)
	if err != nil {
		return nil, core.ErrToolExecution("BRAND_PARSE_FAILED",
			fmt.Sprintf("could not extract readable content from %s", rawURL)).WithCause(err)
	}

	markdown, err := e.converter.ConvertString(article.Content)
	if err != nil {
		return nil, core.ErrToolExecution("BRAND_CONVERT_FAILED",
			"could not convert page content to text").WithCause(err)
	}

	brand := &core.BrandContext{
		URL:         rawURL,
		Title:       strings.TrimSpace(article.Title),
		Sections:    splitSections(markdown, rawURL),
		Palette:     extractPalette(body),
		ExtractedAt: time.Now(),
	}

	e.logger.InfoContext(ctx, "brand context extracted",
		"url", rawURL,
		"title", brand.Title,
		"sections", len(brand.Sections),
		"palette", len(brand.Palette))
	return brand, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", core.ErrValidation("BAD_URL", err.Error())
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", core.ErrToolExecution("BRAND_FETCH_FAILED",
			fmt.Sprintf("fetching %s failed", rawURL)).WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fetchErr := core.ErrToolExecution("BRAND_FETCH_FAILED",
			fmt.Sprintf("fetching %s returned status %d", rawURL, resp.StatusCode))
		fetchErr.Retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", fetchErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", core.ErrToolExecution("BRAND_FETCH_FAILED", "reading page body failed").WithCause(err)
	}
	return string(body), nil
}

// splitSections cuts converted markdown into heading-delimited blocks,
// each tagged with the source URL and the verbatim text it came from.
func splitSections(markdown, sourceURL string) []core.BrandSection {
	var sections []core.BrandSection
	var heading string
	var buf []string

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		if len(text) > maxSectionChars {
			text = text[:maxSectionChars]
		}
		sections = append(sections, core.BrandSection{
			Heading: heading,
			Text:    text,
			Evidence: core.Evidence{
				SourceURL: sourceURL,
				Verbatim:  text,
			},
		})
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		buf = append(buf, line)
	}
	flush()

	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}
	return sections
}

// extractPalette pulls hex colors out of the raw HTML (inline styles and
// embedded CSS), most frequent first.
func extractPalette(html string) []string {
	counts := make(map[string]int)
	var order []string
	for _, m := range hexColorRe.FindAllString(html, -1) {
		c := strings.ToLower(m)
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxPalette {
		order = order[:maxPalette]
	}
	return order
}
