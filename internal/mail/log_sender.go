package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// LogSender records messages instead of delivering them. Each message is
// logged and, when dir is set, written as an .eml file.
type LogSender struct {
	dir  string
	from string
	log  zerolog.Logger
	now  func() time.Time
	seq  atomic.Uint64
}

func NewLogSender(dir, from string, log zerolog.Logger) *LogSender {
	return &LogSender{dir: dir, from: from, log: log, now: time.Now}
}

func (s *LogSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mime, err := BuildMIME(s.from, m)
	if err != nil {
		return err
	}

	event := s.log.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("size", len(mime))

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return fmt.Errorf("failed to create outbox directory: %w", err)
		}
		name := fmt.Sprintf("%s_%04d_%s.eml", s.now().Format("20060102_150405"), s.seq.Add(1), safeName(m.To))
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, mime, 0644); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
		event = event.Str("path", path)
	}

	event.Msg("Mail recorded (log driver)")
	return nil
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func safeName(s string) string {
	s = unsafeName.ReplaceAllString(strings.ReplaceAll(s, "@", "_at_"), "")
	if len(s) > 80 {
		s = s[:80]
	}
	if s == "" {
		s = "message"
	}
	return strings.ToLower(s)
}
