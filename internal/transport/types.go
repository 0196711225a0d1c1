// Package transport defines the messaging-service capability the engine
// orchestrates. The wire protocol itself lives behind the Client interface;
// this repo ships a dry-run driver and a registry for linking a production
// driver at the composition root.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrSecondFactorRequired is returned by SignIn when the account has an
	// additional password set and none (or a wrong one) was supplied.
	ErrSecondFactorRequired = errors.New("second factor required")

	// ErrConnectionLost marks transport failures that doom the whole
	// connection, not just a single operation. Wrap it so callers can
	// distinguish batch-fatal errors from per-recipient ones.
	ErrConnectionLost = errors.New("connection lost")
)

// IsConnectionErr reports whether err dooms the underlying connection.
func IsConnectionErr(err error) bool {
	return errors.Is(err, ErrConnectionLost)
}

// Client is one live session with the messaging service, bound to a persisted
// session slot on disk. Clients are not safe for concurrent use; the session
// manager serializes access.
type Client interface {
	Connect(ctx context.Context) error
	Connected() bool
	Authorized(ctx context.Context) (bool, error)

	// QRLogin requests a QR challenge from the service. The returned
	// challenge carries the payload URL and blocks in Wait until the
	// challenge is approved on a companion device or ctx is cancelled.
	QRLogin(ctx context.Context) (QRChallenge, error)

	// SignIn completes authorization after a QR approval. secret is the
	// account's additional password; pass "" for the initial attempt.
	// Returns ErrSecondFactorRequired when a password is needed.
	SignIn(ctx context.Context, secret string) error

	SendText(ctx context.Context, recipient, text string) error
	SendFile(ctx context.Context, recipient, path, caption string) error

	Disconnect() error
}

// Dialer creates clients bound to a session slot.
type Dialer interface {
	Dial(sessionPath string, apiID int, apiHash string) (Client, error)
}

// QRChallenge is the payload of a pending QR login.
type QRChallenge struct {
	URL string

	wait func(ctx context.Context) error
}

func NewQRChallenge(url string, wait func(ctx context.Context) error) QRChallenge {
	return QRChallenge{URL: url, wait: wait}
}

// Wait blocks until the challenge completes or ctx is cancelled.
func (q QRChallenge) Wait(ctx context.Context) error {
	if q.wait == nil {
		return nil
	}
	return q.wait(ctx)
}
