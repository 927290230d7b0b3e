package subscriber

import (
	"context"
	"strings"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/models"
)

// Store owns the subscriber list.
type Store interface {
	// Subscribe adds or reactivates email. created is false when the address
	// was already an active subscriber.
	Subscribe(ctx context.Context, email string) (created bool, err error)
	// Unsubscribe deactivates email. Unknown addresses are ignored.
	Unsubscribe(ctx context.Context, email string) error
	// Active lists active subscribers in signup order.
	Active(ctx context.Context) ([]models.Subscriber, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	Close()
}

// normalize lowercases and trims an address so lookups are case-insensitive.
func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) error {
	if err := models.Validator().Var(email, "required,email"); err != nil {
		return apperr.ValidationFields("a valid email address is required", map[string]string{"email": "email"})
	}
	return nil
}
