// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/telekom/bulkmail/pkg/bulk"
	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/mail"
	"github.com/telekom/bulkmail/pkg/recipients"
	"github.com/telekom/bulkmail/pkg/system"
	"github.com/telekom/bulkmail/pkg/version"
)

// Form field names.
const (
	fieldHost       = "smtp_host"
	fieldPort       = "smtp_port"
	fieldSender     = "sender"
	fieldPassword   = "password"
	fieldSubject    = "subject"
	fieldTemplate   = "template"
	fieldRecipients = "recipients"
)

var (
	templateExts  = []string{".html", ".htm"}
	recipientExts = []string{".csv", ".xlsx"}
)

var errUnsupportedFile = errors.New("unsupported file type")

// page is the data rendered by index.html. The password is never echoed.
type page struct {
	Host       string
	Port       string
	Sender     string
	Subject    string
	Recipients recipients.List
	Notice     string
	Outcome    *bulk.Outcome
	Summary    *bulk.Summary
	Version    string
}

func (s *Server) defaultPage() page {
	return page{
		Host:    s.config.SMTP.Host,
		Port:    strconv.Itoa(s.config.SMTP.Port),
		Sender:  s.config.SMTP.Sender,
		Version: version.Version,
	}
}

func (s *Server) formPage(c *gin.Context) page {
	p := s.defaultPage()
	p.Host = strings.TrimSpace(c.PostForm(fieldHost))
	p.Port = strings.TrimSpace(c.PostForm(fieldPort))
	p.Sender = strings.TrimSpace(c.PostForm(fieldSender))
	p.Subject = c.PostForm(fieldSubject)
	return p
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.defaultPage())
}

func (s *Server) previewRecipients(c *gin.Context) {
	log := system.GetReqLogger(c, s.log)
	p := s.formPage(c)

	list, err := readRecipients(c)
	if err == nil && list == nil {
		err = fmt.Errorf("%w: missing recipient list", bulk.ErrIncompleteInput)
	}
	if err != nil {
		log.Infow("Recipient list rejected", "error", err)
		s.renderOutcome(c, p, nil, err)
		return
	}

	p.Recipients = list
	p.Notice = loadedNotice(len(list))
	c.HTML(http.StatusOK, "index.html", p)
}

func (s *Server) send(c *gin.Context) {
	log := system.GetReqLogger(c, s.log)
	p := s.formPage(c)

	list, err := readRecipients(c)
	if err != nil {
		log.Infow("Recipient list rejected", "error", err)
		s.renderOutcome(c, p, nil, err)
		return
	}
	p.Recipients = list
	if list != nil {
		p.Notice = loadedNotice(len(list))
	}

	tmpl, err := readUpload(c, fieldTemplate, templateExts)
	if err != nil {
		s.renderOutcome(c, p, nil, err)
		return
	}

	relay, err := s.relayFromForm(c, p)
	if err != nil {
		s.renderOutcome(c, p, nil, err)
		return
	}

	summary, err := s.runner.Run(bulk.Request{
		Relay:      relay,
		Subject:    p.Subject,
		Template:   tmpl,
		Recipients: list,
	})
	s.renderOutcome(c, p, &summary, err)
}

// relayFromForm takes host, port and sender from the form. An empty password
// field falls back to the configured secret sources.
func (s *Server) relayFromForm(c *gin.Context, p page) (config.Relay, error) {
	smtpCfg := s.config.SMTP
	smtpCfg.Host = p.Host
	smtpCfg.Sender = p.Sender
	smtpCfg.Port = 0
	if port, err := strconv.Atoi(p.Port); err == nil {
		smtpCfg.Port = port
	}

	secret, err := smtpCfg.ResolvePassword(c.PostForm(fieldPassword))
	if err != nil {
		return config.Relay{}, err
	}
	return config.Relay{
		Host:     smtpCfg.Host,
		Port:     smtpCfg.Port,
		Sender:   smtpCfg.Sender,
		Password: secret,
	}, nil
}

func (s *Server) renderOutcome(c *gin.Context, p page, summary *bulk.Summary, err error) {
	outcome := bulk.Describe(err)
	p.Outcome = &outcome
	if summary != nil && summary.RunID != "" {
		p.Summary = summary
	}
	c.HTML(statusFor(err), "index.html", p)
}

// statusFor maps a result to an HTTP status. The page is rendered either way.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, mail.ErrAuthentication),
		errors.Is(err, mail.ErrSessionSetup),
		errors.Is(err, mail.ErrSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

func loadedNotice(n int) string {
	if n == 1 {
		return "1 email address loaded"
	}
	return fmt.Sprintf("%d email addresses loaded", n)
}

// readRecipients returns nil without error when no list was uploaded.
func readRecipients(c *gin.Context) (recipients.List, error) {
	fh, err := c.FormFile(fieldRecipients)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !hasExt(fh.Filename, recipientExts) {
		return nil, fmt.Errorf("%w %q: expected one of %s", errUnsupportedFile, fh.Filename, strings.Join(recipientExts, ", "))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return recipients.Load(f, recipients.FormatFromName(fh.Filename))
}

// readUpload returns nil without error when no file was uploaded and a
// non-nil slice for an uploaded file, even an empty one.
func readUpload(c *gin.Context, field string, exts []string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !hasExt(fh.Filename, exts) {
		return nil, fmt.Errorf("%w %q: expected one of %s", errUnsupportedFile, fh.Filename, strings.Join(exts, ", "))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(f)
}

func hasExt(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}
