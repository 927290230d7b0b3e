package render

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/russross/blackfriday/v2"

	"github.com/bilgisen/letterpress/internal/models"
)

// Base classes for each styled slot. Style tokens are appended to these.
const (
	baseCard             = "w-full max-w-2xl mx-auto shadow-lg bg-white rounded-lg overflow-hidden"
	baseHeader           = "p-6"
	baseMainTitle        = "text-3xl font-bold text-center"
	baseArticleContainer = "py-4"
	baseArticleTitle     = "text-xl font-semibold mb-2"
	baseFooter           = "text-center text-xs text-gray-400 pt-6 border-t border-gray-200 mt-8"
)

const markdownExtensions = blackfriday.CommonExtensions | blackfriday.HardLineBreak

// Options configures a Renderer. Zero values select defaults.
type Options struct {
	FooterName string
	FooterURL  string
	Now        func() time.Time
}

// Renderer turns a newsletter draft and style tokens into a standalone
// HTML document suitable for an email body.
type Renderer struct {
	footerName string
	footerURL  string
	now        func() time.Time
}

func New(opts Options) *Renderer {
	if opts.FooterName == "" {
		opts.FooterName = "Your Company"
	}
	if opts.FooterURL == "" {
		opts.FooterURL = "#"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{footerName: opts.FooterName, footerURL: opts.FooterURL, now: opts.Now}
}

type articleView struct {
	Title     string
	ImageURL  string
	SourceURL string
	Body      template.HTML
	Class     string
	TitleCls  string
	Last      bool
}

type documentView struct {
	Title      string
	Subject    string
	Articles   []articleView
	CardCls    string
	HeaderCls  string
	MainTitle  string
	FooterCls  string
	Year       int
	FooterName string
	FooterURL  string
}

// Render validates n and produces the complete HTML document. Output is
// deterministic for identical inputs and clock.
func (r *Renderer) Render(n models.Newsletter, styles models.StyleTokens) (string, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}

	view := documentView{
		Title:      n.Title,
		Subject:    n.Subject,
		CardCls:    mergeClasses(baseCard, styles.Card),
		HeaderCls:  mergeClasses(baseHeader, styles.Header),
		MainTitle:  mergeClasses(baseMainTitle, styles.MainTitle),
		FooterCls:  mergeClasses(baseFooter, styles.Footer),
		Year:       r.now().Year(),
		FooterName: r.footerName,
		FooterURL:  r.footerURL,
	}

	for i, a := range n.Articles {
		view.Articles = append(view.Articles, articleView{
			Title:     a.Title,
			ImageURL:  a.ImageURL,
			SourceURL: a.URL,
			Body:      renderBody(a),
			Class:     mergeClasses(baseArticleContainer, styles.ArticleContainer),
			TitleCls:  mergeClasses(baseArticleTitle, styles.ArticleTitle),
			Last:      i == len(n.Articles)-1,
		})
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderBody converts article content to trusted HTML. HTML content is
// inserted as-is: it is authored by the editing user and not sanitized.
func renderBody(a models.Article) template.HTML {
	switch a.Kind() {
	case models.ContentHTML:
		return template.HTML(a.Content)
	case models.ContentText:
		return textParagraphs(a.Content)
	default:
		out := blackfriday.Run([]byte(a.Content), blackfriday.WithExtensions(markdownExtensions))
		return template.HTML(out)
	}
}

func textParagraphs(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	for _, para := range strings.Split(s, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(template.HTMLEscapeString(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return template.HTML(b.String())
}

// mergeClasses appends extra to base, dropping duplicate class names.
func mergeClasses(base, extra string) string {
	fields := strings.Fields(base + " " + extra)
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}
