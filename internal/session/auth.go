package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tgsend/internal/profile"
	"tgsend/internal/transport"
	logx "tgsend/pkg/logx"
)

var (
	// ErrProfileNotFound is returned when the named credential profile does
	// not exist.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrInvalidCredential is returned when a profile's stored credentials
	// cannot be used to dial (e.g. a non-numeric api_id).
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrConnectionFailed is returned when the transport could not establish
	// a connection for the slot.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSecondFactorRejected is returned by Login after the password attempt
	// budget is exhausted.
	ErrSecondFactorRejected = errors.New("second factor rejected")

	// ErrNotAuthorized is returned when an operation needs an authorized
	// session and the slot has none. Run login first.
	ErrNotAuthorized = errors.New("session not authorized")
)

// maxSecretAttempts bounds interactive password retries during login.
const maxSecretAttempts = 3

// State is the lifecycle phase of the managed connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateQRChallengeIssued
	StateAwaitingSecondFactor
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateQRChallengeIssued:
		return "qr_challenge_issued"
	case StateAwaitingSecondFactor:
		return "awaiting_second_factor"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Interactor is whatever can show a QR challenge to the operator and collect
// the account password when one is required.
type Interactor interface {
	ShowQR(url string) error
	PromptSecret(ctx context.Context) (string, error)
}

// Manager owns at most one live client at a time, bound to a (profile, slot)
// pair. Re-connecting releases the previous client first.
type Manager struct {
	profiles *profile.Store
	dialer   transport.Dialer
	dir      string
	log      logx.Logger

	mu     sync.Mutex
	state  State
	client transport.Client
	profN  string
	slot   string
}

func NewManager(profiles *profile.Store, dialer transport.Dialer, sessionsDir string, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{
		profiles: profiles,
		dialer:   dialer,
		dir:      sessionsDir,
		log:      log,
		state:    StateDisconnected,
	}
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Client returns the live client, or nil when disconnected.
func (m *Manager) Client() transport.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// Connect dials the slot with the named profile's credentials and verifies
// the connection. It does not start an authorization flow: an unauthorized
// slot ends in StateConnected, an authorized one in StateAuthorized.
func (m *Manager) Connect(ctx context.Context, profileName, slot string) (transport.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.profiles.Get(profileName)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
		}
		return nil, err
	}
	apiID, apiHash, err := p.Credentials()
	if err != nil {
		return nil, fmt.Errorf("%w: profile %q: %v", ErrInvalidCredential, profileName, err)
	}

	// Release any previous client before dialing again.
	m.releaseLocked()

	if err := EnsureStorage(m.dir); err != nil {
		return nil, fmt.Errorf("session storage: %w", err)
	}

	m.state = StateConnecting
	m.log.Debug("dialing session",
		logx.String("profile", profileName),
		logx.String("session", slot),
	)

	client, err := m.dialer.Dial(Path(m.dir, slot), apiID, apiHash)
	if err != nil {
		m.state = StateDisconnected
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Disconnect()
		m.state = StateDisconnected
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	m.client = client
	m.profN = profileName
	m.slot = slot
	m.state = StateConnected

	authorized, err := client.Authorized(ctx)
	if err != nil {
		m.log.Warn("authorization check failed", logx.Err(err))
	} else if authorized {
		m.state = StateAuthorized
	}

	m.log.Info("session connected",
		logx.String("profile", profileName),
		logx.String("session", slot),
		logx.String("state", m.state.String()),
	)
	return client, nil
}

// Login connects the slot and, if it is not yet authorized, runs the full QR
// challenge flow: show the challenge, wait for approval on a companion
// device, and collect the account password when the service demands one.
func (m *Manager) Login(ctx context.Context, profileName, slot string, ui Interactor) error {
	client, err := m.Connect(ctx, profileName, slot)
	if err != nil {
		return err
	}

	if m.State() == StateAuthorized {
		m.log.Info("session already authorized", logx.String("session", slot))
		return nil
	}

	challenge, err := client.QRLogin(ctx)
	if err != nil {
		return fmt.Errorf("qr login: %w", err)
	}
	m.setState(StateQRChallengeIssued)
	if challenge.URL == "" {
		return errors.New("qr login: empty challenge")
	}
	if err := ui.ShowQR(challenge.URL); err != nil {
		return fmt.Errorf("show qr: %w", err)
	}
	m.log.Info("qr challenge issued, waiting for approval", logx.String("session", slot))

	err = challenge.Wait(ctx)
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrSecondFactorRequired):
		if err := m.secondFactor(ctx, client, ui); err != nil {
			return err
		}
	default:
		return fmt.Errorf("qr approval: %w", err)
	}

	authorized, err := client.Authorized(ctx)
	if err != nil {
		return err
	}
	if !authorized {
		return ErrNotAuthorized
	}
	m.setState(StateAuthorized)
	m.log.Info("session authorized", logx.String("session", slot))
	return nil
}

func (m *Manager) secondFactor(ctx context.Context, client transport.Client, ui Interactor) error {
	m.setState(StateAwaitingSecondFactor)
	for attempt := 1; attempt <= maxSecretAttempts; attempt++ {
		secret, err := ui.PromptSecret(ctx)
		if err != nil {
			return err
		}
		err = client.SignIn(ctx, secret)
		if err == nil {
			return nil
		}
		if errors.Is(err, transport.ErrSecondFactorRequired) {
			m.log.Warn("password rejected",
				logx.Int("attempt", attempt),
				logx.Int("max", maxSecretAttempts),
			)
			continue
		}
		return fmt.Errorf("sign in: %w", err)
	}
	return ErrSecondFactorRejected
}

// Release disconnects the current client, if any, and returns the manager to
// StateDisconnected. Releasing a disconnected manager is a no-op.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked()
}

func (m *Manager) releaseLocked() {
	if m.client != nil {
		if err := m.client.Disconnect(); err != nil {
			m.log.Debug("disconnect", logx.Err(err))
		}
		m.client = nil
	}
	m.state = StateDisconnected
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
