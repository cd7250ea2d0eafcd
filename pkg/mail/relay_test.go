package mail

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/recipients"
	"github.com/telekom/bulkmail/pkg/system"
)

type relayMessage struct {
	from string
	to   []string
	data []byte
}

// testRelayBackend is an in-process submission relay with a single account.
type testRelayBackend struct {
	username   string
	password   string
	rejectRcpt string

	mu       sync.Mutex
	logins   int
	messages []relayMessage
}

func (b *testRelayBackend) Login(_ *smtp.ConnectionState, username, password string) (smtp.Session, error) {
	if username != b.username || password != b.password {
		return nil, &smtp.SMTPError{
			Code:         535,
			EnhancedCode: smtp.EnhancedCode{5, 7, 8},
			Message:      "Authentication credentials invalid",
		}
	}
	b.mu.Lock()
	b.logins++
	b.mu.Unlock()
	return &testRelaySession{backend: b}, nil
}

func (b *testRelayBackend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthRequired
}

func (b *testRelayBackend) delivered() []relayMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]relayMessage(nil), b.messages...)
}

type testRelaySession struct {
	backend *testRelayBackend
	current relayMessage
}

func (s *testRelaySession) Mail(from string, _ smtp.MailOptions) error {
	s.current = relayMessage{from: from}
	return nil
}

func (s *testRelaySession) Rcpt(to string) error {
	if to == s.backend.rejectRcpt {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Mailbox does not exist",
		}
	}
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *testRelaySession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = data
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func (s *testRelaySession) Reset() {
	s.current = relayMessage{}
}

func (s *testRelaySession) Logout() error {
	return nil
}

type relayOptions struct {
	// plaintext serves without TLS, so STARTTLS is never offered.
	plaintext bool
	// implicitTLS wraps the listener in TLS instead of offering STARTTLS.
	implicitTLS  bool
	insecureAuth bool
	authDisabled bool
}

// testCertificate returns a self-signed certificate for 127.0.0.1 and a pool
// that trusts it.
func testCertificate(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "bulkmail test relay"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}, pool
}

// startTestRelay serves be on a loopback port and returns the relay address
// with a dialer that trusts the relay certificate.
func startTestRelay(t *testing.T, be *testRelayBackend, opts relayOptions) (config.Relay, *SMTPDialer) {
	t.Helper()
	cert, pool := testCertificate(t)
	serverTLS := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port

	s := smtp.NewServer(be)
	s.Domain = "localhost"
	s.AllowInsecureAuth = opts.insecureAuth
	s.AuthDisabled = opts.authDisabled
	switch {
	case opts.implicitTLS:
		l = tls.NewListener(l, serverTLS)
	case !opts.plaintext:
		s.TLSConfig = serverTLS
	}
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() { _ = s.Close() })

	relay := config.Relay{
		Host:     "127.0.0.1",
		Port:     port,
		Sender:   be.username,
		Password: be.password,
	}
	dialer := NewSMTPDialer(relay)
	dialer.SSL = opts.implicitTLS
	dialer.TLSConfig = &tls.Config{RootCAs: pool, ServerName: "127.0.0.1", MinVersion: tls.VersionTLS12}
	return relay, dialer
}

func TestDispatcherAgainstRelay(t *testing.T) {
	tests := []struct {
		name string
		opts relayOptions
	}{
		{name: "starttls", opts: relayOptions{}},
		{name: "implicit tls", opts: relayOptions{implicitTLS: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &testRelayBackend{username: "news@example.com", password: "app-password"}
			relay, dialer := startTestRelay(t, be, tt.opts)

			to := recipients.List{"a@example.com", "b@example.com", "c@example.com"}
			body := CompactHTML("<html>\n  <body>\n    <p>Quarterly update</p>\n  </body>\n</html>")
			d := NewDispatcherWithDialer(relay, dialer, system.NewTestLogger())
			require.NoError(t, d.Send("Update", body, to))

			msgs := be.delivered()
			require.Len(t, msgs, len(to))
			assert.Equal(t, 1, be.logins, "one authenticated session for the whole list")
			for i, m := range msgs {
				assert.Equal(t, "news@example.com", m.from)
				assert.Equal(t, []string{to[i]}, m.to)

				header, gotBody := parseMessage(t, m.data)
				assert.Equal(t, to[i], header.Get("To"))
				assert.Equal(t, "Update", header.Get("Subject"))
				assert.Equal(t, body, gotBody)
			}
		})
	}
}

func TestDispatcherRefusesUnprotectedRelay(t *testing.T) {
	tests := []struct {
		name string
		opts relayOptions
		want error
	}{
		{
			name: "no starttls and no auth",
			opts: relayOptions{plaintext: true},
			want: errNoStartTLS,
		},
		{
			name: "auth offered without starttls",
			opts: relayOptions{plaintext: true, insecureAuth: true},
			want: errNoStartTLS,
		},
		{
			name: "tls without auth",
			opts: relayOptions{authDisabled: true},
			want: errNoAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &testRelayBackend{username: "news@example.com", password: "app-password"}
			relay, dialer := startTestRelay(t, be, tt.opts)

			err := NewDispatcherWithDialer(relay, dialer, nil).Send("s", "<p>b</p>", recipients.List{"a@example.com", "b@example.com"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSessionSetup)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, be.delivered())
			assert.Zero(t, be.logins)
		})
	}
}

func TestDispatcherRejectsUntrustedCertificate(t *testing.T) {
	be := &testRelayBackend{username: "news@example.com", password: "app-password"}
	relay, _ := startTestRelay(t, be, relayOptions{})

	err := NewDispatcher(relay, nil).Send("s", "<p>b</p>", recipients.List{"a@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionSetup)
	assert.Empty(t, be.delivered())
	assert.Zero(t, be.logins)
}

func TestDispatcherAgainstRelayBadCredentials(t *testing.T) {
	be := &testRelayBackend{username: "news@example.com", password: "app-password"}
	relay, dialer := startTestRelay(t, be, relayOptions{})
	dialer.Password = "wrong"

	err := NewDispatcherWithDialer(relay, dialer, nil).Send("s", "<p>b</p>", recipients.List{"a@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Empty(t, be.delivered())
}

func TestDispatcherAgainstRelayRejectedRecipient(t *testing.T) {
	be := &testRelayBackend{
		username:   "news@example.com",
		password:   "app-password",
		rejectRcpt: "b@example.com",
	}
	relay, dialer := startTestRelay(t, be, relayOptions{})

	err := NewDispatcherWithDialer(relay, dialer, nil).Send("s", "<p>b</p>", recipients.List{"a@example.com", "b@example.com", "c@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)

	msgs := be.delivered()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"a@example.com"}, msgs[0].to)
}

func TestDispatcherUnreachableRelay(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	relay := config.Relay{Host: "127.0.0.1", Port: port, Sender: "a@example.com", Password: "x"}
	err = NewDispatcher(relay, nil).Send("s", "b", recipients.List{"a@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionSetup)
}
