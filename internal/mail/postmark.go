package mail

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/bilgisen/letterpress/internal/apperr"
)

// Postmark reports a bad or missing server token with this code.
const postmarkBadToken = 10

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	From         string
	// BaseURL overrides the API endpoint. Empty keeps the client default.
	BaseURL string
}

type PostmarkSender struct {
	client *postmark.Client
	from   string
}

// NewPostmarkSender requires both tokens and a sender address.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" || cfg.AccountToken == "" {
		return nil, apperr.Configuration("mail credentials not configured: POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required")
	}
	if cfg.From == "" {
		return nil, apperr.Configuration("mail credentials not configured: MAIL_FROM is required for postmark")
	}

	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	return &PostmarkSender{client: client, from: cfg.From}, nil
}

func (p *PostmarkSender) Send(ctx context.Context, m Message) error {
	if err := m.Validate(); err != nil {
		return err
	}

	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:     p.from,
		To:       m.To,
		Subject:  m.Subject,
		HTMLBody: m.HTML,
		Tag:      "newsletter",
	})
	if err != nil {
		return apperr.Upstream("mail provider request failed", err)
	}

	switch resp.ErrorCode {
	case 0:
		return nil
	case postmarkBadToken:
		return apperr.Authentication("mail credentials were rejected by the provider",
			fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	default:
		return apperr.Upstream(fmt.Sprintf("postmark error %d: %s", resp.ErrorCode, resp.Message), nil)
	}
}
