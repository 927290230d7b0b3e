// Package extract fetches article pages and pulls out the title, lead image
// and readable body text used as summarizer input.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/bilgisen/letterpress/internal/apperr"
)

const (
	// MinContentChars is the shortest cleaned text worth summarizing.
	MinContentChars = 150
	// MinContainerChars is the text a content container or the paragraph
	// fallback must reach to be accepted.
	MinContainerChars = 200
	// MinParagraphChars is the trimmed length a <p> needs to count in the
	// paragraph fallback.
	MinParagraphChars = 50
	// MinImageSize is the declared width or height an inline image must
	// exceed to be picked as the lead image.
	MinImageSize = 200

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// UntitledTitle is used when a page has no usable title.
	UntitledTitle = "Untitled"
)

// Content containers in priority order.
var contentSelectors = []string{
	"article",
	"[role='main']",
	"main",
	".post-content",
	".article-content",
	".entry-content",
	".article-body",
	".content",
	"#content",
}

// Markup removed before text extraction.
var stripSelectors = []string{
	"script", "style", "noscript", "iframe", "svg", "template",
	"nav", "header", "footer", "aside", "form",
	"[class*='advert']", "[id*='advert']", "[class*='sponsor']",
	".ad", ".ads", ".ad-container", ".adsbygoogle", "[aria-label='advertisement']",
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "main": true, "blockquote": true,
	"pre": true, "tr": true, "td": true, "th": true, "table": true,
	"figure": true, "figcaption": true, "dd": true, "dt": true,
}

// Page is the extracted, cleaned content of one URL.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
	Text     string `json:"text"`
}

// Options configures an Extractor. Zero values select defaults.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	RetryCount int
	RetryWait  time.Duration
	Logger     *zerolog.Logger
}

// Extractor fetches and parses article pages.
type Extractor struct {
	client *resty.Client
	log    zerolog.Logger
}

func NewExtractor(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.RetryCount < 0 {
		opts.RetryCount = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Extractor{
		client: resty.New().
			SetTimeout(opts.Timeout).
			SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(opts.RetryWait).
			SetRetryMaxWaitTime(5*opts.RetryWait).
			SetHeader("User-Agent", opts.UserAgent).
			SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"),
		log: log,
	}
}

// Extract fetches rawURL and extracts its content.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Page, error) {
	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, apperr.Validation("url must be an absolute http(s) URL")
	}

	resp, err := e.client.R().
		SetContext(ctx).
		Get(pageURL.String())
	if err != nil {
		return nil, apperr.Fetch(fmt.Sprintf("failed to fetch %s", pageURL), err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, apperr.Fetch(fmt.Sprintf("fetching %s returned status %d", pageURL, resp.StatusCode()), nil)
	}

	// Redirects may move the document; relative references resolve against the final URL.
	if final := resp.RawResponse; final != nil && final.Request != nil && final.Request.URL != nil {
		pageURL = final.Request.URL
	}

	page, err := ExtractHTML(pageURL, bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("url", page.URL).
		Int("text_chars", utf8.RuneCountInString(page.Text)).
		Bool("has_image", page.ImageURL != "").
		Msg("Extracted page")

	return page, nil
}

// ExtractHTML extracts content from an already fetched document.
func ExtractHTML(pageURL *url.URL, r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, apperr.Fetch("failed to parse HTML", err)
	}

	// Title and image live in <head> and headers, so resolve them before stripping.
	page := &Page{
		URL:      pageURL.String(),
		Title:    resolveTitle(doc),
		ImageURL: resolveImage(doc, pageURL),
	}

	doc.Find(strings.Join(stripSelectors, ", ")).Remove()

	page.Text = resolveText(doc)
	if utf8.RuneCountInString(page.Text) < MinContentChars {
		return nil, apperr.InsufficientContent(fmt.Sprintf(
			"page text is too short to summarize (%d characters, need %d)",
			utf8.RuneCountInString(page.Text), MinContentChars))
	}

	return page, nil
}

func resolveTitle(doc *goquery.Document) string {
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := collapse(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t, ok := metaContent(doc, "og:title"); ok {
		return t
	}
	return UntitledTitle
}

func resolveImage(doc *goquery.Document, base *url.URL) string {
	if src, ok := metaContent(doc, "og:image"); ok {
		if abs := resolveURL(base, src); abs != "" {
			return abs
		}
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if declaredSize(img, "width") <= MinImageSize && declaredSize(img, "height") <= MinImageSize {
			return true
		}
		src, _ := img.Attr("src")
		found = resolveURL(base, src)
		return found == ""
	})
	return found
}

func resolveText(doc *goquery.Document) string {
	for _, sel := range contentSelectors {
		var best string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := selectionText(s); utf8.RuneCountInString(t) > utf8.RuneCountInString(best) {
				best = t
			}
		})
		if utf8.RuneCountInString(best) >= MinContainerChars {
			return best
		}
	}

	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := selectionText(s); utf8.RuneCountInString(t) > MinParagraphChars {
			paragraphs = append(paragraphs, t)
		}
	})
	if joined := strings.Join(paragraphs, " "); utf8.RuneCountInString(joined) >= MinContainerChars {
		return joined
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return selectionText(doc.Selection)
	}
	return selectionText(body)
}

func metaContent(doc *goquery.Document, name string) (string, bool) {
	sel := fmt.Sprintf("meta[property='%[1]s'], meta[name='%[1]s']", name)
	v, ok := doc.Find(sel).First().Attr("content")
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func declaredSize(img *goquery.Selection, attr string) int {
	v, ok := img.Attr(attr)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0
	}
	return n
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

// selectionText returns the whitespace-collapsed text of s, keeping block
// elements apart so adjacent paragraphs do not run together.
func selectionText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		writeText(&b, n)
	}
	return collapse(b.String())
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
