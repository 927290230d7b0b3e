package mail

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bilgisen/letterpress/internal/config"
)

// FromConfig builds the sender selected by MAIL_DRIVER. For the gmail and
// postmark drivers a missing credential yields a nil sender and the
// configuration error, so the server can still start and report it per request.
func FromConfig(cfg *config.Config, log zerolog.Logger) (Sender, error) {
	switch cfg.MailDriver {
	case "gmail":
		s, err := NewGmailSender(GmailConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			RefreshToken: cfg.GoogleRefreshToken,
			From:         cfg.MailFrom,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postmark":
		s, err := NewPostmarkSender(PostmarkConfig{
			ServerToken:  cfg.PostmarkServerTok,
			AccountToken: cfg.PostmarkAccountTok,
			From:         cfg.MailFrom,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "log":
		return NewLogSender(cfg.MailLogDir, cfg.MailFrom, log), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
	}
}
