// Package fetch retrieves job descriptions and reduces them to the HTML fragment the
// annotator highlights.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; JDAnnotator/1.0)"

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// RenderFunc renders a page in a browser and returns its HTML.
type RenderFunc func(ctx context.Context, url string) (string, error)

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	// UseBrowser allows falling back to a headless browser when the
	// plain HTTP response carries too little text.
	UseBrowser bool
	// Render overrides the browser renderer.
	Render  RenderFunc
	Verbose bool
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
}

// URL retrieves HTML content from a URL.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	client := &http.Client{
		Timeout: opts.Timeout,
	}

	req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to read response body",
			Cause:   err,
		}
	}

	result := &Result{
		URL:         urlStr,
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:     urlStr,
			Message: fmt.Sprintf("HTTP status %d", resp.StatusCode),
		}
	}

	return result, nil
}

// JobDescription is a job posting reduced to its annotatable content.
type JobDescription struct {
	Source   string
	Platform Platform
	// HTML is the cleaned main-content fragment stored as processed_jd_html.
	HTML string
	// Text is the fragment's visible text.
	Text     string
	Sections []Section
	Rendered bool
}

// FetchJobDescription downloads a posting and extracts its description.
// Pages that look client-rendered are re-fetched through the browser when opts allow it.
func FetchJobDescription(ctx context.Context, urlStr string, opts *Options) (*JobDescription, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	platform := DetectPlatform(urlStr)
	result, err := URL(ctx, urlStr, opts)
	if err != nil {
		return nil, err
	}

	jd, err := ExtractJobDescription(result.HTML, platform)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract job description", Cause: err}
	}
	jd.Source = urlStr

	if !opts.UseBrowser || !NeedsRendering(jd) {
		return jd, nil
	}

	if opts.Verbose {
		log.Printf("[fetch] %s returned %d chars of text, rendering in browser", urlStr, len(jd.Text))
	}
	render := opts.Render
	if render == nil {
		render = NewBrowserRenderer(BoardFor(platform), opts.Timeout, opts.Verbose).Render
	}
	rendered, err := render(ctx, urlStr)
	if err != nil {
		// The static extraction is still usable.
		log.Printf("[fetch] browser rendering failed for %s: %v", urlStr, err)
		return jd, nil
	}

	renderedJD, err := ExtractJobDescription(rendered, platform)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to extract rendered job description", Cause: err}
	}
	renderedJD.Source = urlStr
	renderedJD.Rendered = true
	return renderedJD, nil
}

// ReadJobDescription loads a posting saved to disk. Plain text files are wrapped in paragraphs.
func ReadJobDescription(path string) (*JobDescription, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job description %s: %w", path, err)
	}

	markup := string(content)
	if !looksLikeHTML(markup) {
		markup = TextToHTML(markup)
	}

	jd, err := ExtractJobDescription(markup, PlatformUnknown)
	if err != nil {
		return nil, fmt.Errorf("failed to extract job description from %s: %w", path, err)
	}
	jd.Source = path
	return jd, nil
}

// ExtractJobDescription removes page chrome and returns the main description fragment.
func ExtractJobDescription(rawHTML string, platform Platform) (*JobDescription, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	board := BoardFor(platform)
	removeNoise(doc, board.NoiseSelectors())
	main := selectMain(doc, board.ContentSelectors())
	markBoilerplate(main, board)
	stripAttributes(main)

	fragment, err := main.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render description: %w", err)
	}

	return &JobDescription{
		Platform: platform,
		HTML:     strings.TrimSpace(fragment),
		Text:     cleanWhitespace(main.Text()),
		Sections: sectionsOf(main),
	}, nil
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements using noiseSelectors, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	removeNoise(doc, noiseSelectors)
	return cleanWhitespace(selectMain(doc, contentSelectors).Text()), nil
}

// TextToHTML wraps each blank-line separated block of text in a paragraph.
// Lines starting with "-", "*" or "•" become list items.
func TextToHTML(text string) string {
	var sb strings.Builder
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}

		inList := false
		for _, line := range lines {
			item, isItem := bulletText(line)
			switch {
			case isItem && !inList:
				sb.WriteString("<ul>")
				inList = true
			case !isItem && inList:
				sb.WriteString("</ul>")
				inList = false
			}
			if isItem {
				sb.WriteString("<li>" + escapeText(item) + "</li>")
			} else {
				sb.WriteString("<p>" + escapeText(line) + "</p>")
			}
		}
		if inList {
			sb.WriteString("</ul>")
		}
	}
	return sb.String()
}

// DefaultTextSelectors returns standard selectors for general web content.
func DefaultTextSelectors() []string {
	return []string{
		"main",
		"article",
		".content",
		"#content",
		".main-content",
		"#main-content",
	}
}

// JobPostingSelectors returns selectors optimized for job board pages.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

var noise = "nav, footer, header, script, style, noscript, iframe, svg, button, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup"

func removeNoise(doc *goquery.Document, selectors []string) {
	doc.Find(noise).Remove()
	if len(selectors) > 0 {
		if joined := strings.Join(selectors, ", "); joined != "" {
			doc.Find(joined).Remove()
		}
	}
}

func selectMain(doc *goquery.Document, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			return selection.First()
		}
	}
	return doc.Find("body")
}

// keptAttributes survive extraction. Everything else, including inline handlers and
// styles that would fight the highlight classes, is dropped.
var keptAttributes = map[string]bool{"href": true, "id": true, NoAnnotateAttr: true}

func stripAttributes(sel *goquery.Selection) {
	sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if keptAttributes[attr.Key] && !strings.HasPrefix(strings.ToLower(strings.TrimSpace(attr.Val)), "javascript:") {
				kept = append(kept, attr)
			}
		}
		node.Attr = kept
	})
}

// cleanWhitespace normalizes whitespace in text.
func cleanWhitespace(text string) string {
	return strings.Join(nonEmptyLines(text), "\n")
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func bulletText(line string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return line, false
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

func looksLikeHTML(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "<")
}
