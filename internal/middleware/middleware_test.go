package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/letterpress/internal/apperr"
)

func call(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func TestAPIKey(t *testing.T) {
	app := fiber.New()
	app.Use(NewAPIKey())
	app.Post("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"key": APIKey(c, c.Query("body"))})
	})

	tests := []struct {
		name   string
		header string
		body   string
		want   string
	}{
		{"none", "", "", ""},
		{"header", "abc", "", "abc"},
		{"bearer header", "Bearer abc", "", "abc"},
		{"body wins", "abc", "xyz", "xyz"},
		{"blank body falls back", "abc", "%20", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/?body="+tt.body, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			status, body := call(t, app, req)
			assert.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, body["key"])
		})
	}
}

type bindTarget struct {
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"min=1"`
}

func TestBind(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/", func(c *fiber.Ctx) error {
		var in bindTarget
		if err := Bind(c, &in); err != nil {
			return err
		}
		return c.JSON(in)
	})

	post := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	status, body := call(t, app, post(`{"email":"a@example.com","count":2}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "a@example.com", body["email"])

	status, body = call(t, app, post(`{"email":"nope","count":0}`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body["error"])
	assert.Equal(t, map[string]any{"email": "email", "count": "min"}, body["fields"])

	status, body = call(t, app, post(`{"email":`))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body["error"])
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"app error", apperr.NotFound("newsletter not found"), http.StatusNotFound, "not_found", "newsletter not found"},
		{"wrapped app error", errors.Join(errors.New("ctx"), apperr.Authentication("API key is invalid", nil)), http.StatusUnauthorized, "authentication_error", "API key is invalid"},
		{"fiber error", fiber.NewError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed, "http_error", "nope"},
		{"unknown error", errors.New("secret detail"), http.StatusInternalServerError, "internal_error", "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
			app.Get("/", func(*fiber.Ctx) error { return tt.err })

			status, body := call(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, body["error"])
			assert.Equal(t, tt.wantMsg, body["message"])
		})
	}
}

func TestLoggerRecordsSentStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(NewLogger(LoggerConfig{Logger: &log, Fields: []string{"status", "path"}}))
	app.Get("/missing", func(*fiber.Ctx) error { return apperr.NotFound("gone") })

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-API-Key", "top-secret")
	status, body := call(t, app, req)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	require.Equal(t, 1, strings.Count(buf.String(), "\n"), "one log line per request")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "not_found: gone", entry["error"])
	assert.EqualValues(t, http.StatusNotFound, entry["status"])
	assert.Equal(t, "/missing", entry["path"])
	assert.NotContains(t, buf.String(), "top-secret")
}

func TestLoggerRecordsRecoveredPanic(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(NewLogger(LoggerConfig{Logger: &log, Fields: []string{"status"}}))
	app.Use(recover.New())
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	status, body := call(t, app, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", body["error"])

	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.EqualValues(t, http.StatusInternalServerError, entry["status"])
}
