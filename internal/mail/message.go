package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/models"
)

// Message is a single HTML email.
type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=300"`
	HTML    string `json:"html" validate:"required"`
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Validate checks the recipient address and required fields.
func (m Message) Validate() error {
	return models.ValidationError(models.Validator().Struct(m))
}

// BuildMIME serialises m as an RFC 822 message with a UTF-8 HTML body.
// from may be empty, in which case the provider fills it in.
func BuildMIME(from string, m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	msg := gomail.NewMsg(gomail.WithCharset(gomail.CharsetUTF8))
	if from != "" {
		if err := msg.From(from); err != nil {
			return nil, apperr.Configuration(fmt.Sprintf("invalid sender address %q", from))
		}
	}
	if err := msg.To(m.To); err != nil {
		return nil, apperr.ValidationFields("invalid recipient", map[string]string{"to": "email"})
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextHTML, m.HTML)

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialise message: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeRaw returns the base64url form of a MIME message used by the Gmail API.
func EncodeRaw(mime []byte) string {
	return base64.RawURLEncoding.EncodeToString(mime)
}
