package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/bilgisen/letterpress/internal/apperr"
)

// GmailSendScope is the only scope the sender needs.
const GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

const defaultGmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

// GmailConfig holds the OAuth client and the offline refresh token.
// Endpoint and BaseURL default to Google's production endpoints.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string
	From         string
	Endpoint     oauth2.Endpoint
	BaseURL      string
	Timeout      time.Duration
}

// OAuthConfig returns the oauth2 client configuration for the Gmail send scope.
func (c GmailConfig) OAuthConfig() *oauth2.Config {
	ep := c.Endpoint
	if ep.TokenURL == "" {
		ep = endpoints.Google
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     ep,
		Scopes:       []string{GmailSendScope},
	}
}

// GmailSender sends through the Gmail REST API as the account that granted
// the refresh token.
type GmailSender struct {
	client *resty.Client
	from   string
}

type gmailSendRequest struct {
	Raw string `json:"raw"`
}

type gmailError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewGmailSender fails with a configuration error when any credential is missing.
func NewGmailSender(cfg GmailConfig) (*GmailSender, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if cfg.RefreshToken == "" {
		missing = append(missing, "GOOGLE_REFRESH_TOKEN")
	}
	if len(missing) > 0 {
		return nil, apperr.Configuration("mail credentials not configured: missing " + strings.Join(missing, ", "))
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGmailBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	// The token source refreshes the access token on demand and caches it
	// across sends.
	httpClient := cfg.OAuthConfig().Client(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	client := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &GmailSender{client: client, from: cfg.From}, nil
}

func (g *GmailSender) Send(ctx context.Context, m Message) error {
	mime, err := BuildMIME(g.from, m)
	if err != nil {
		return err
	}

	var apiErr gmailError
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(gmailSendRequest{Raw: EncodeRaw(mime)}).
		SetError(&apiErr).
		Post("/users/me/messages/send")
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return apperr.Authentication("mail credentials were rejected by the provider", err)
		}
		return apperr.Upstream("mail provider request failed", err)
	}

	if resp.IsError() {
		msg := http.StatusText(resp.StatusCode())
		if apiErr.Error != nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
			return apperr.Authentication("mail credentials were rejected by the provider", errors.New(msg))
		}
		return apperr.Upstream(fmt.Sprintf("mail provider returned %d: %s", resp.StatusCode(), msg), nil)
	}
	return nil
}
