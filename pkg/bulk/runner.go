// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package bulk

import (
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/mail"
	"github.com/telekom/bulkmail/pkg/metrics"
	"github.com/telekom/bulkmail/pkg/recipients"
	"github.com/telekom/bulkmail/pkg/system"
)

// Sender delivers one body to a list of recipients. *mail.Dispatcher
// implements it.
type Sender interface {
	Send(subject, body string, to recipients.List) error
}

// SenderFactory builds the Sender for one run.
type SenderFactory func(relay config.Relay, log *zap.SugaredLogger) Sender

// DefaultSenderFactory dispatches over a real SMTP relay.
func DefaultSenderFactory(relay config.Relay, log *zap.SugaredLogger) Sender {
	return mail.NewDispatcher(relay, log)
}

// Summary describes a run. It is filled as far as the run got.
type Summary struct {
	RunID         string `json:"runID" yaml:"runID"`
	Host          string `json:"host" yaml:"host"`
	Recipients    int    `json:"recipients" yaml:"recipients"`
	TemplateBytes int    `json:"templateBytes" yaml:"templateBytes"`
	CompactBytes  int    `json:"compactBytes" yaml:"compactBytes"`
}

type Runner struct {
	log       *zap.SugaredLogger
	newSender SenderFactory
}

func NewRunner(log *zap.SugaredLogger) *Runner {
	return NewRunnerWithFactory(log, DefaultSenderFactory)
}

func NewRunnerWithFactory(log *zap.SugaredLogger, factory SenderFactory) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if factory == nil {
		factory = DefaultSenderFactory
	}
	return &Runner{log: log.Named("bulk"), newSender: factory}
}

// Run validates req, compacts the template and sends it to every recipient.
// It blocks until the relay session is closed. Every failure is returned;
// Run never panics on bad input.
func (r *Runner) Run(req Request) (Summary, error) {
	summary := Summary{
		RunID: uuid.NewString(),
		Host:  req.Relay.Host,
	}
	log := r.log.With(system.RunFields(summary.RunID, req.Relay.Host, req.Relay.Port)...)

	if err := req.Validate(); err != nil {
		log.Warnw("Bulk send rejected", "error", err)
		metrics.BulkRuns.WithLabelValues(outcomeLabel(err)).Inc()
		return summary, err
	}

	body := mail.CompactHTML(mail.DecodeTemplate(req.Template))
	summary.Recipients = len(req.Recipients)
	summary.TemplateBytes = len(req.Template)
	summary.CompactBytes = len(body)
	log.Infow("Starting bulk send",
		"recipients", summary.Recipients,
		"templateBytes", summary.TemplateBytes,
		"compactBytes", summary.CompactBytes)

	sender := r.newSender(req.Relay, log)
	if err := sender.Send(req.Subject, body, req.Recipients); err != nil {
		log.Errorw("Bulk send failed", "error", err)
		metrics.BulkRuns.WithLabelValues(outcomeLabel(err)).Inc()
		return summary, err
	}

	log.Infow("Bulk send completed", "recipients", summary.Recipients)
	metrics.BulkRuns.WithLabelValues(outcomeLabel(nil)).Inc()
	return summary, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrIncompleteInput):
		return "incomplete"
	case errors.Is(err, mail.ErrAuthentication):
		return "auth_failed"
	case errors.Is(err, mail.ErrSessionSetup):
		return "setup_failed"
	case errors.Is(err, mail.ErrSubmission):
		return "submission_failed"
	default:
		return "error"
	}
}
