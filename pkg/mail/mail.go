package mail

import (
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"time"

	gomsg "github.com/emersion/go-message/mail"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/metrics"
	"github.com/telekom/bulkmail/pkg/recipients"
	"github.com/telekom/bulkmail/pkg/version"
)

var (
	// ErrAuthentication means the relay rejected the sender credentials. No
	// message was sent.
	ErrAuthentication = errors.New("relay rejected credentials")
	// ErrSessionSetup means the relay could not be reached or the encrypted
	// session could not be established. No message was sent.
	ErrSessionSetup = errors.New("relay session setup failed")
	// ErrSubmission means the relay refused a message mid-run. Messages to
	// earlier recipients have already been accepted.
	ErrSubmission = errors.New("message submission failed")
)

// Dialer opens an authenticated relay session. *SMTPDialer implements it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

// Dispatcher submits one message per recipient over a single relay session.
type Dispatcher struct {
	relay  config.Relay
	dialer Dialer
	log    *zap.SugaredLogger
}

// NewDispatcher returns a dispatcher for relay. The session requires STARTTLS
// (implicit TLS on port 465) with standard certificate validation against
// relay.Host, and authentication. A relay offering neither is a setup error.
func NewDispatcher(relay config.Relay, log *zap.SugaredLogger) *Dispatcher {
	return NewDispatcherWithDialer(relay, NewSMTPDialer(relay), log)
}

func NewDispatcherWithDialer(relay config.Relay, dialer Dialer, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{
		relay:  relay,
		dialer: dialer,
		log:    log.Named("dispatcher"),
	}
}

func (d *Dispatcher) GetHost() string {
	return d.relay.Host
}

func (d *Dispatcher) GetPort() int {
	return d.relay.Port
}

// Send authenticates once and then submits subject and body to every address
// in to, in order, on the same session. It stops at the first failure without
// retrying; recipients before the failing one have already been sent to. The
// session is closed on every path.
func (d *Dispatcher) Send(subject, body string, to recipients.List) error {
	host := d.GetHost()
	log := d.log.With("host", host, "port", d.relay.Port, "recipients", len(to))

	log.Infow("Opening relay session")
	session, err := d.dialer.Dial()
	if err != nil {
		if isAuthError(err) {
			metrics.RelaySessions.WithLabelValues(host, "auth_failed").Inc()
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		metrics.RelaySessions.WithLabelValues(host, "setup_failed").Inc()
		return fmt.Errorf("%w: %w", ErrSessionSetup, err)
	}
	metrics.RelaySessions.WithLabelValues(host, "ok").Inc()
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warnw("Failed to close relay session", "error", cerr)
		}
	}()

	for i, addr := range to {
		msg := d.newMessage(addr, subject, body)
		if err := session.Send(d.relay.Sender, []string{addr}, msg); err != nil {
			metrics.MailSendFailure.WithLabelValues(host).Inc()
			return fmt.Errorf("%w: %w", ErrSubmission, err)
		}
		metrics.MailSendSuccess.WithLabelValues(host).Inc()
		log.Debugw("Message accepted by relay", "index", i+1)
	}

	log.Infow("All messages accepted by relay")
	return nil
}

func (d *Dispatcher) newMessage(to, subject, body string) *message {
	var h gomsg.Header
	h.SetDate(time.Now())
	h.Set("From", d.relay.Sender)
	h.Set("To", to)
	h.SetSubject(subject)
	h.Set("X-Mailer", version.Mailer())
	return &message{header: h, html: body}
}

// message is a multipart/alternative container holding one text/html part.
type message struct {
	header gomsg.Header
	html   string
}

func (m *message) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	mw, err := gomsg.CreateInlineWriter(cw, m.header)
	if err != nil {
		return cw.n, err
	}
	var part gomsg.InlineHeader
	part.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	pw, err := mw.CreatePart(part)
	if err != nil {
		return cw.n, err
	}
	if _, err := io.WriteString(pw, m.html); err != nil {
		return cw.n, err
	}
	if err := pw.Close(); err != nil {
		return cw.n, err
	}
	return cw.n, mw.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// isAuthError reports whether a dial error is the relay refusing the
// credentials (530, 534, 535, 538) rather than a network or TLS problem.
func isAuthError(err error) bool {
	var tpErr *textproto.Error
	if !errors.As(err, &tpErr) {
		return false
	}
	switch tpErr.Code {
	case 530, 534, 535, 538:
		return true
	}
	return false
}
