package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tgsend/internal/profile"
	"tgsend/internal/transport"
	logx "tgsend/pkg/logx"
)

type fakeClient struct {
	authorized   bool
	connectErr   error
	waitErr      error
	password     string
	disconnected bool
	signInCalls  int
}

func (c *fakeClient) Connect(ctx context.Context) error { return c.connectErr }
func (c *fakeClient) Connected() bool                   { return !c.disconnected }
func (c *fakeClient) Authorized(ctx context.Context) (bool, error) {
	return c.authorized, nil
}

func (c *fakeClient) QRLogin(ctx context.Context) (transport.QRChallenge, error) {
	return transport.NewQRChallenge("tg://login?token=test", func(ctx context.Context) error {
		if c.waitErr != nil {
			return c.waitErr
		}
		c.authorized = true
		return nil
	}), nil
}

func (c *fakeClient) SignIn(ctx context.Context, secret string) error {
	c.signInCalls++
	if secret != c.password {
		return transport.ErrSecondFactorRequired
	}
	c.authorized = true
	return nil
}

func (c *fakeClient) SendText(ctx context.Context, recipient, text string) error { return nil }
func (c *fakeClient) SendFile(ctx context.Context, recipient, path, caption string) error {
	return nil
}
func (c *fakeClient) Disconnect() error { c.disconnected = true; return nil }

type fakeDialer struct {
	client *fakeClient
	dials  int
}

func (d *fakeDialer) Dial(sessionPath string, apiID int, apiHash string) (transport.Client, error) {
	d.dials++
	return d.client, nil
}

type scriptedUI struct {
	secrets []string
	qrURLs  []string
}

func (u *scriptedUI) ShowQR(url string) error {
	u.qrURLs = append(u.qrURLs, url)
	return nil
}

func (u *scriptedUI) PromptSecret(ctx context.Context) (string, error) {
	if len(u.secrets) == 0 {
		return "", nil
	}
	s := u.secrets[0]
	u.secrets = u.secrets[1:]
	return s, nil
}

func newTestProfiles(t *testing.T) *profile.Store {
	t.Helper()
	st := profile.NewStore(filepath.Join(t.TempDir(), "api_profiles.json"), logx.Nop())
	if err := st.Create("main", "12345", "abcdef"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return st
}

func TestConnectUnknownProfile(t *testing.T) {
	m := NewManager(newTestProfiles(t), &fakeDialer{client: &fakeClient{}}, t.TempDir(), logx.Nop())
	_, err := m.Connect(context.Background(), "ghost", "s1")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("err = %v, want ErrProfileNotFound", err)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v", m.State())
	}
}

func TestConnectFailure(t *testing.T) {
	d := &fakeDialer{client: &fakeClient{connectErr: errors.New("dial tcp: refused")}}
	m := NewManager(newTestProfiles(t), d, t.TempDir(), logx.Nop())
	_, err := m.Connect(context.Background(), "main", "s1")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("err = %v, want ErrConnectionFailed", err)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v", m.State())
	}
}

func TestConnectAuthorizedSlot(t *testing.T) {
	d := &fakeDialer{client: &fakeClient{authorized: true}}
	m := NewManager(newTestProfiles(t), d, t.TempDir(), logx.Nop())
	if _, err := m.Connect(context.Background(), "main", "s1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if m.State() != StateAuthorized {
		t.Fatalf("state = %v, want authorized", m.State())
	}
}

func TestLoginQRFlow(t *testing.T) {
	d := &fakeDialer{client: &fakeClient{}}
	m := NewManager(newTestProfiles(t), d, t.TempDir(), logx.Nop())
	ui := &scriptedUI{}
	if err := m.Login(context.Background(), "main", "s1", ui); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if m.State() != StateAuthorized {
		t.Fatalf("state = %v, want authorized", m.State())
	}
	if len(ui.qrURLs) != 1 || ui.qrURLs[0] == "" {
		t.Fatalf("qr shown = %v, want one non-empty URL", ui.qrURLs)
	}
}

func TestLoginSecondFactorRetries(t *testing.T) {
	client := &fakeClient{waitErr: transport.ErrSecondFactorRequired, password: "hunter2"}
	m := NewManager(newTestProfiles(t), &fakeDialer{client: client}, t.TempDir(), logx.Nop())
	ui := &scriptedUI{secrets: []string{"wrong", "hunter2"}}
	if err := m.Login(context.Background(), "main", "s1", ui); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if client.signInCalls != 2 {
		t.Fatalf("signInCalls = %d, want 2", client.signInCalls)
	}
	if m.State() != StateAuthorized {
		t.Fatalf("state = %v", m.State())
	}
}

func TestLoginSecondFactorExhausted(t *testing.T) {
	client := &fakeClient{waitErr: transport.ErrSecondFactorRequired, password: "hunter2"}
	m := NewManager(newTestProfiles(t), &fakeDialer{client: client}, t.TempDir(), logx.Nop())
	ui := &scriptedUI{secrets: []string{"a", "b", "c"}}
	err := m.Login(context.Background(), "main", "s1", ui)
	if !errors.Is(err, ErrSecondFactorRejected) {
		t.Fatalf("err = %v, want ErrSecondFactorRejected", err)
	}
}

func TestReconnectReleasesPreviousClient(t *testing.T) {
	first := &fakeClient{authorized: true}
	d := &fakeDialer{client: first}
	m := NewManager(newTestProfiles(t), d, t.TempDir(), logx.Nop())
	if _, err := m.Connect(context.Background(), "main", "s1"); err != nil {
		t.Fatal(err)
	}
	d.client = &fakeClient{authorized: true}
	if _, err := m.Connect(context.Background(), "main", "s2"); err != nil {
		t.Fatal(err)
	}
	if !first.disconnected {
		t.Fatal("previous client not released before reconnect")
	}
	if d.dials != 2 {
		t.Fatalf("dials = %d, want 2", d.dials)
	}
}
