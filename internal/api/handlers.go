package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/letterpress/internal/ai"
	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/export"
	"github.com/bilgisen/letterpress/internal/extract"
	"github.com/bilgisen/letterpress/internal/mail"
	"github.com/bilgisen/letterpress/internal/middleware"
	"github.com/bilgisen/letterpress/internal/models"
	"github.com/bilgisen/letterpress/internal/subscriber"
	"github.com/bilgisen/letterpress/internal/utils"
)

type Extractor interface {
	Extract(ctx context.Context, rawURL string) (*extract.Page, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text, apiKey string) (*ai.SummaryResult, error)
}

type Styler interface {
	Redesign(ctx context.Context, request, apiKey string) (models.StyleTokens, error)
}

type Renderer interface {
	Render(n models.Newsletter, styles models.StyleTokens) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, title, html string) (*export.Result, error)
}

type BulkSender interface {
	Send(ctx context.Context, n models.Newsletter, styles models.StyleTokens) (*models.BulkResult, error)
}

type NewsletterStore interface {
	Create(ctx context.Context, n models.Newsletter, styles models.StyleTokens) (*models.SavedNewsletter, error)
	Update(ctx context.Context, id string, n models.Newsletter, styles models.StyleTokens) (*models.SavedNewsletter, error)
	Get(ctx context.Context, id string) (*models.SavedNewsletter, error)
	List(ctx context.Context) ([]*models.SavedNewsletter, error)
	Delete(ctx context.Context, id string) error
}

// Deps are the services behind the HTTP handlers. Mail and Uploader may be
// nil when their credentials are not configured.
type Deps struct {
	Extractor   Extractor
	Summarizer  Summarizer
	Styler      Styler
	Renderer    Renderer
	Mail        mail.Sender
	Bulk        BulkSender
	Uploader    Uploader
	Subscribers subscriber.Store
	Newsletters NewsletterStore
	Logger      zerolog.Logger
}

type Handlers struct {
	Deps
}

func NewHandlers(deps Deps) *Handlers {
	return &Handlers{Deps: deps}
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type summarizeRequest struct {
	URL    string `json:"url" validate:"required,url"`
	APIKey string `json:"api_key"`
}

type redesignRequest struct {
	Prompt string `json:"prompt" validate:"required,max=2000"`
	APIKey string `json:"api_key"`
}

type draftRequest struct {
	Newsletter models.Newsletter  `json:"newsletter"`
	Styles     models.StyleTokens `json:"styles"`
}

// HealthCheck handles the /health endpoint. It reports 503 when the
// subscriber store cannot be reached.
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, code, subs := "ok", fiber.StatusOK, "ok"
	if err := h.Subscribers.Ping(ctx); err != nil {
		h.Logger.Warn().Err(err).Msg("Subscriber store unreachable")
		status, code, subs = "degraded", fiber.StatusServiceUnavailable, "unavailable"
	}

	return c.Status(code).JSON(fiber.Map{
		"status":      status,
		"version":     "1.0.0",
		"time":        time.Now().Format(time.RFC3339),
		"subscribers": subs,
	})
}

// Subscribe handles POST /subscribe
func (h *Handlers) Subscribe(c *fiber.Ctx) error {
	var req emailRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	created, err := h.Subscribers.Subscribe(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	if !created {
		return c.JSON(fiber.Map{"message": "You are already subscribed."})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Successfully subscribed!"})
}

// Unsubscribe handles POST /unsubscribe
func (h *Handlers) Unsubscribe(c *fiber.Ctx) error {
	var req emailRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	if err := h.Subscribers.Unsubscribe(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "You have been unsubscribed."})
}

// Summarize handles POST /summarize: fetch the page, then summarize its text.
func (h *Handlers) Summarize(c *fiber.Ctx) error {
	var req summarizeRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}
	apiKey := middleware.APIKey(c, req.APIKey)
	if apiKey == "" {
		return apperr.ValidationFields("API key is required for AI services", map[string]string{"api_key": "required"})
	}

	ctx := c.UserContext()
	page, err := h.Extractor.Extract(ctx, req.URL)
	if err != nil {
		return err
	}

	result, err := h.Summarizer.Summarize(ctx, page.Text, apiKey)
	if err != nil {
		return err
	}

	title := page.Title
	if title == extract.UntitledTitle && result.Title != "" {
		title = result.Title
	}

	h.Logger.Info().Str("url", page.URL).Int("text_chars", len(page.Text)).Msg("Article summarized")

	return c.JSON(models.Summary{
		Title:    title,
		Summary:  result.Summary,
		ImageURL: page.ImageURL,
	})
}

// Redesign handles POST /redesign
func (h *Handlers) Redesign(c *fiber.Ctx) error {
	var req redesignRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}
	apiKey := middleware.APIKey(c, req.APIKey)
	if apiKey == "" {
		return apperr.ValidationFields("API key is required for AI services", map[string]string{"api_key": "required"})
	}

	styles, err := h.Styler.Redesign(c.UserContext(), req.Prompt, apiKey)
	if err != nil {
		return err
	}
	return c.JSON(styles)
}

// Render handles POST /render. With ?download=1 the document is sent as an
// attachment.
func (h *Handlers) Render(c *fiber.Ctx) error {
	var req draftRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	html, err := h.Renderer.Render(req.Newsletter, req.Styles)
	if err != nil {
		return err
	}

	if c.QueryBool("download") {
		c.Attachment(downloadName(req.Newsletter.Title))
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

// Export handles POST /export: render and upload to object storage.
func (h *Handlers) Export(c *fiber.Ctx) error {
	if h.Uploader == nil {
		return apperr.Configuration("export storage not configured")
	}

	var req draftRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	html, err := h.Renderer.Render(req.Newsletter, req.Styles)
	if err != nil {
		return err
	}

	res, err := h.Uploader.Upload(c.UserContext(), req.Newsletter.Title, html)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Send handles POST /send: one pre-rendered message to one recipient.
func (h *Handlers) Send(c *fiber.Ctx) error {
	var msg mail.Message
	if err := middleware.Bind(c, &msg); err != nil {
		return err
	}
	if h.Mail == nil {
		return apperr.Configuration("mail credentials not configured")
	}

	if err := h.Mail.Send(c.UserContext(), msg); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Email sent successfully!"})
}

// SendBulk handles POST /send-bulk
func (h *Handlers) SendBulk(c *fiber.Ctx) error {
	var req draftRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.Bulk.Send(c.UserContext(), req.Newsletter, req.Styles)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// ListNewsletters handles GET /newsletters
func (h *Handlers) ListNewsletters(c *fiber.Ctx) error {
	items, err := h.Newsletters.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

// CreateNewsletter handles POST /newsletters
func (h *Handlers) CreateNewsletter(c *fiber.Ctx) error {
	var req draftRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	rec, err := h.Newsletters.Create(c.UserContext(), req.Newsletter, req.Styles)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// GetNewsletter handles GET /newsletters/:id
func (h *Handlers) GetNewsletter(c *fiber.Ctx) error {
	rec, err := h.Newsletters.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// UpdateNewsletter handles PUT /newsletters/:id
func (h *Handlers) UpdateNewsletter(c *fiber.Ctx) error {
	var req draftRequest
	if err := middleware.Bind(c, &req); err != nil {
		return err
	}

	rec, err := h.Newsletters.Update(c.UserContext(), c.Params("id"), req.Newsletter, req.Styles)
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// DeleteNewsletter handles DELETE /newsletters/:id
func (h *Handlers) DeleteNewsletter(c *fiber.Ctx) error {
	if err := h.Newsletters.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func downloadName(title string) string {
	return utils.Slug(title, 60, "newsletter") + ".html"
}
