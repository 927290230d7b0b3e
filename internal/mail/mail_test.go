package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/config"
)

var hello = Message{To: "bob@example.com", Subject: "Hello", HTML: "<p>Hi</p>"}

func TestBuildMIME(t *testing.T) {
	t.Parallel()

	mime, err := BuildMIME("news@example.com", hello)
	require.NoError(t, err)

	s := string(mime)
	assert.Contains(t, s, "Subject: Hello")
	assert.Contains(t, s, "bob@example.com")
	assert.Contains(t, s, "news@example.com")
	assert.Contains(t, s, "MIME-Version: 1.0")
	assert.Contains(t, s, "text/html")
	assert.Contains(t, strings.ToUpper(s), "CHARSET=UTF-8")
	assert.Contains(t, s, "<p>Hi</p>")

	raw := EncodeRaw(mime)
	assert.NotContains(t, raw, "=")
	assert.NotContains(t, raw, "+")
	assert.NotContains(t, raw, "/")
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	require.NoError(t, err)
	assert.Equal(t, mime, decoded)
}

func TestBuildMIMEValidation(t *testing.T) {
	t.Parallel()

	for name, m := range map[string]Message{
		"bad recipient": {To: "not-an-address", Subject: "s", HTML: "h"},
		"no subject":    {To: "a@example.com", HTML: "h"},
		"no body":       {To: "a@example.com", Subject: "s"},
	} {
		_, err := BuildMIME("", m)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), name)
	}
}

type gmailStub struct {
	tokenStatus int
	sendStatus  int
	sends       atomic.Int32
	lastRaw     atomic.Value
	lastAuth    atomic.Value
}

func (s *gmailStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.tokenStatus != 0 && s.tokenStatus != http.StatusOK {
			w.WriteHeader(s.tokenStatus)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/send", func(w http.ResponseWriter, r *http.Request) {
		s.sends.Add(1)
		s.lastAuth.Store(r.Header.Get("Authorization"))
		var body gmailSendRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.lastRaw.Store(body.Raw)

		w.Header().Set("Content-Type", "application/json")
		if s.sendStatus != 0 {
			w.WriteHeader(s.sendStatus)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission","status":"PERMISSION_DENIED"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"m1","threadId":"t1","labelIds":["SENT"]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGmail(t *testing.T, srv *httptest.Server) *GmailSender {
	t.Helper()
	g, err := NewGmailSender(GmailConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		BaseURL:      srv.URL + "/gmail/v1",
	})
	require.NoError(t, err)
	return g
}

func TestGmailSend(t *testing.T) {
	t.Parallel()

	stub := &gmailStub{}
	g := newTestGmail(t, stub.server(t))

	require.NoError(t, g.Send(context.Background(), hello))
	assert.Equal(t, int32(1), stub.sends.Load())
	assert.Equal(t, "Bearer access-1", stub.lastAuth.Load())

	mime, err := base64.RawURLEncoding.DecodeString(stub.lastRaw.Load().(string))
	require.NoError(t, err)
	assert.Contains(t, string(mime), "Subject: Hello")
	assert.Contains(t, string(mime), "<p>Hi</p>")
}

func TestGmailSendErrors(t *testing.T) {
	t.Parallel()

	t.Run("refresh rejected", func(t *testing.T) {
		stub := &gmailStub{tokenStatus: http.StatusBadRequest}
		g := newTestGmail(t, stub.server(t))

		err := g.Send(context.Background(), hello)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthentication), "got %v", err)
		assert.Zero(t, stub.sends.Load())
	})

	t.Run("forbidden", func(t *testing.T) {
		stub := &gmailStub{sendStatus: http.StatusForbidden}
		g := newTestGmail(t, stub.server(t))

		err := g.Send(context.Background(), hello)
		assert.True(t, apperr.IsKind(err, apperr.KindAuthentication), "got %v", err)
	})

	t.Run("provider failure", func(t *testing.T) {
		stub := &gmailStub{sendStatus: http.StatusServiceUnavailable}
		g := newTestGmail(t, stub.server(t))

		err := g.Send(context.Background(), hello)
		assert.True(t, apperr.IsKind(err, apperr.KindUpstream), "got %v", err)
	})

	t.Run("invalid message never reaches provider", func(t *testing.T) {
		stub := &gmailStub{}
		g := newTestGmail(t, stub.server(t))

		err := g.Send(context.Background(), Message{To: "nope"})
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		assert.Zero(t, stub.sends.Load())
	})
}

func TestNewGmailSenderMissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewGmailSender(GmailConfig{ClientID: "id"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
	assert.Contains(t, err.Error(), "GOOGLE_REFRESH_TOKEN")
}

func TestPostmarkSend(t *testing.T) {
	t.Parallel()

	var code atomic.Int32
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		got.Store(body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ErrorCode": code.Load(),
			"Message":   "msg",
			"MessageID": "abc",
		})
	}))
	t.Cleanup(srv.Close)

	p, err := NewPostmarkSender(PostmarkConfig{ServerToken: "s", AccountToken: "a", From: "news@example.com", BaseURL: srv.URL})
	require.NoError(t, err)

	require.NoError(t, p.Send(context.Background(), hello))
	body := got.Load().(map[string]any)
	assert.Equal(t, "news@example.com", body["From"])
	assert.Equal(t, "bob@example.com", body["To"])
	assert.Equal(t, "<p>Hi</p>", body["HtmlBody"])

	code.Store(postmarkBadToken)
	assert.True(t, apperr.IsKind(p.Send(context.Background(), hello), apperr.KindAuthentication))

	code.Store(300)
	assert.True(t, apperr.IsKind(p.Send(context.Background(), hello), apperr.KindUpstream))
}

func TestNewPostmarkSenderMissingConfig(t *testing.T) {
	t.Parallel()

	_, err := NewPostmarkSender(PostmarkConfig{ServerToken: "s"})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))

	_, err = NewPostmarkSender(PostmarkConfig{ServerToken: "s", AccountToken: "a"})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}

func TestLogSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var logs strings.Builder
	s := NewLogSender(dir, "", zerolog.New(&logs))

	require.NoError(t, s.Send(context.Background(), hello))
	require.NoError(t, s.Send(context.Background(), Message{To: "carol@example.com", Subject: "Second", HTML: "<p>2</p>"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ".eml", filepath.Ext(e.Name()))
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Hello")
	assert.Contains(t, logs.String(), `"to":"bob@example.com"`)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{MailDriver: "log"}
	s, err := FromConfig(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	cfg = &config.Config{MailDriver: "gmail"}
	s, err = FromConfig(cfg, zerolog.Nop())
	assert.Nil(t, s)
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}
