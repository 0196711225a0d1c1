// Package ui implements the operator-facing side of the login flow on a
// plain terminal.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	logx "tgsend/pkg/logx"
)

// Console renders QR challenges to a PNG on disk and collects the account
// password from stdin. It satisfies the session login interactor.
type Console struct {
	in     *bufio.Reader
	out    io.Writer
	qrPath string
	log    logx.Logger
}

func NewConsole(qrPath string, log logx.Logger) *Console {
	if strings.TrimSpace(qrPath) == "" {
		qrPath = "./login_qr.png"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Console{
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		qrPath: qrPath,
		log:    log,
	}
}

// ShowQR writes the challenge as a PNG and prints the raw payload so the
// operator can scan either one from the companion app.
func (c *Console) ShowQR(url string) error {
	if err := qrcode.WriteFile(url, qrcode.Medium, 256, c.qrPath); err != nil {
		return fmt.Errorf("render qr: %w", err)
	}
	fmt.Fprintf(c.out, "Scan the QR code saved to %s\n", c.qrPath)
	fmt.Fprintf(c.out, "(or open this link on a signed-in device: %s)\n", url)
	fmt.Fprintln(c.out, "Waiting for approval...")
	return nil
}

// PromptSecret reads the account password from stdin. The read runs in a
// goroutine so a cancelled ctx does not leave the caller stuck; an
// abandoned read leaks until the process exits, which is acceptable for an
// interactive command.
func (c *Console) PromptSecret(ctx context.Context) (string, error) {
	fmt.Fprint(c.out, "Two-step verification password: ")

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return r.line, nil
	}
}
