package transport

import (
	"context"
	"os"
	"time"

	logx "tgsend/pkg/logx"
)

func init() {
	Register("dryrun", func(log logx.Logger) (Dialer, error) {
		return &dryRunDialer{log: log}, nil
	})
}

// dryRunDialer rehearses a delivery without touching the network. Sessions
// are always authorized, QR challenges complete instantly, and sends only
// verify that an attachment path exists.
type dryRunDialer struct {
	log logx.Logger
}

func (d *dryRunDialer) Dial(sessionPath string, apiID int, apiHash string) (Client, error) {
	_ = apiID
	_ = apiHash
	return &dryRunClient{log: d.log.With(logx.String("transport", "dryrun"), logx.String("session", sessionPath))}, nil
}

type dryRunClient struct {
	log       logx.Logger
	connected bool
}

func (c *dryRunClient) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.connected = true
	return nil
}

func (c *dryRunClient) Connected() bool { return c.connected }

func (c *dryRunClient) Authorized(ctx context.Context) (bool, error) {
	return c.connected, ctx.Err()
}

func (c *dryRunClient) QRLogin(ctx context.Context) (QRChallenge, error) {
	return NewQRChallenge("tg://login?token=dryrun", func(ctx context.Context) error {
		return ctx.Err()
	}), ctx.Err()
}

func (c *dryRunClient) SignIn(ctx context.Context, secret string) error {
	_ = secret
	return ctx.Err()
}

func (c *dryRunClient) SendText(ctx context.Context, recipient, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Mimic a round trip so delay/rate behavior is observable in rehearsal.
	time.Sleep(10 * time.Millisecond)
	c.log.Info("dry-run send", logx.String("recipient", recipient), logx.Int("text_len", len(text)))
	return nil
}

func (c *dryRunClient) SendFile(ctx context.Context, recipient, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	c.log.Info("dry-run send file", logx.String("recipient", recipient), logx.String("file", path), logx.Int("caption_len", len(caption)))
	return nil
}

func (c *dryRunClient) Disconnect() error {
	c.connected = false
	return nil
}
