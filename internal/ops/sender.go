// Package ops delivers operator-facing messages to a Telegram chat over the
// Bot API. It backs both the notifier pipeline and the log ops sink.
package ops

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	logx "tgsend/pkg/logx"
)

// Telegram caps message text at 4096 characters.
const textLimit = 4096

type Config struct {
	BotToken string
	ChatID   int64
	ThreadID int
}

// Sender is a send-only Bot API client. It never polls for updates.
type Sender struct {
	cfg Config
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("ops bot token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("ops chat id is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.BotToken})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sender{cfg: cfg, bot: b, log: log}, nil
}

// Send delivers text to the configured chat, chunking at the Bot API limit.
// Implements notifier.Sender.
func (s *Sender) Send(ctx context.Context, text string) error {
	chunks := splitText(text, textLimit)
	if len(chunks) == 0 {
		return nil
	}
	chat := &tele.Chat{ID: s.cfg.ChatID}
	opt := &tele.SendOptions{
		ThreadID:              s.cfg.ThreadID,
		DisableWebPagePreview: true,
	}
	for _, chunk := range chunks {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if _, err := s.bot.Send(chat, chunk, opt); err != nil {
			return err
		}
	}
	return nil
}

// SendLog implements logx.Sender.
func (s *Sender) SendLog(ctx context.Context, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	return s.Send(cctx, text)
}

func splitText(s string, limit int) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) <= limit {
		return []string{s}
	}
	var out []string
	for len(s) > 0 {
		if len(s) <= limit {
			out = append(out, s)
			break
		}
		cut := limit
		// Prefer breaking on a newline near the limit.
		if i := strings.LastIndexByte(s[:limit], '\n'); i > limit/2 {
			cut = i
		}
		out = append(out, strings.TrimRight(s[:cut], "\n"))
		s = strings.TrimLeft(s[cut:], "\n")
	}
	return out
}
