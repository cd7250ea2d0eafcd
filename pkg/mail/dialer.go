package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/telekom/bulkmail/pkg/config"
)

const defaultDialTimeout = 10 * time.Second

var (
	errNoStartTLS = errors.New("relay does not offer STARTTLS")
	errNoAuth     = errors.New("relay does not offer a supported authentication mechanism")
)

// SMTPDialer opens relay sessions that are always encrypted and always
// authenticated. Unlike gomail.Dialer it never falls back to plaintext when
// the relay leaves STARTTLS or AUTH out of its EHLO reply.
type SMTPDialer struct {
	Host     string
	Port     int
	Username string
	Password string
	// SSL selects implicit TLS instead of STARTTLS. NewSMTPDialer sets it for
	// port 465.
	SSL bool
	// TLSConfig defaults to certificate validation against Host.
	TLSConfig *tls.Config
	// LocalName is sent with EHLO. Defaults to "localhost".
	LocalName string
	Timeout   time.Duration
}

func NewSMTPDialer(relay config.Relay) *SMTPDialer {
	return &SMTPDialer{
		Host:     relay.Host,
		Port:     relay.Port,
		Username: relay.Sender,
		Password: relay.Password,
		SSL:      relay.Port == 465,
		Timeout:  defaultDialTimeout,
	}
}

// Dial connects, upgrades to TLS and authenticates. The returned session has
// passed all three steps; any failure closes the connection.
func (d *SMTPDialer) Dial() (gomail.SendCloser, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), timeout)
	if err != nil {
		return nil, err
	}
	if d.SSL {
		conn = tls.Client(conn, d.tlsConfig())
	}

	c, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := d.handshake(c); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &smtpSession{c: c}, nil
}

func (d *SMTPDialer) handshake(c *smtp.Client) error {
	if d.LocalName != "" {
		if err := c.Hello(d.LocalName); err != nil {
			return err
		}
	}

	if !d.SSL {
		ok, _ := c.Extension("STARTTLS")
		if !ok {
			return errNoStartTLS
		}
		if err := c.StartTLS(d.tlsConfig()); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	ok, mechs := c.Extension("AUTH")
	if !ok {
		return errNoAuth
	}
	auth, err := d.auth(mechs)
	if err != nil {
		return err
	}
	return c.Auth(auth)
}

func (d *SMTPDialer) tlsConfig() *tls.Config {
	if d.TLSConfig != nil {
		return d.TLSConfig
	}
	return &tls.Config{ServerName: d.Host, MinVersion: tls.VersionTLS12}
}

// auth picks PLAIN, then LOGIN, then CRAM-MD5 from the advertised mechanisms.
func (d *SMTPDialer) auth(mechs string) (smtp.Auth, error) {
	offered := strings.Fields(strings.ToUpper(mechs))
	switch {
	case slices.Contains(offered, "PLAIN"):
		return smtp.PlainAuth("", d.Username, d.Password, d.Host), nil
	case slices.Contains(offered, "LOGIN"):
		return &loginAuth{username: d.Username, password: d.Password}, nil
	case slices.Contains(offered, "CRAM-MD5"):
		return smtp.CRAMMD5Auth(d.Username, d.Password), nil
	}
	return nil, fmt.Errorf("%w (offered: %s)", errNoAuth, mechs)
}

type loginAuth struct {
	username string
	password string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errors.New("unencrypted connection")
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected LOGIN challenge %q", fromServer)
}

// smtpSession submits messages on an authenticated client.
type smtpSession struct {
	c *smtp.Client
}

func (s *smtpSession) Send(from string, to []string, msg io.WriterTo) error {
	if err := s.c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.c.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := s.c.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *smtpSession) Close() error {
	return s.c.Quit()
}
